package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// S3Backend implements a storage backend using Amazon S3 or compatible services.
type S3Backend struct {
	client      s3iface.S3API
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates a new S3 storage backend.
// If accessKey and secretKey are provided they are used as static credentials,
// otherwise the default AWS credential chain applies.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	// Format the URI for tracking
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if accessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", accessKey, bucketName, prefix, region)
	}
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	sess, err := common.NewAWSSession(region, endpoint)
	if err != nil {
		return nil, err
	}

	cfg := aws.NewConfig()
	if accessKey != "" && secretKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKey, secretKey, ""))
	}

	b := NewS3BackendWithClient(s3.New(sess, cfg), bucketName, prefix, log)
	b.locationURI = uri
	return b, nil
}

// NewS3BackendWithClient creates an S3 backend on top of an existing client.
func NewS3BackendWithClient(client s3iface.S3API, bucketName, prefix string, log *slog.Logger) *S3Backend {
	prefix = strings.Trim(prefix, "/")
	return &S3Backend{
		client:      client,
		bucketName:  bucketName,
		prefix:      prefix,
		log:         log,
		locationURI: fmt.Sprintf("s3://%s/%s", bucketName, prefix),
	}
}

// Fetch retrieves an object from S3 by key.
// Returns ErrContentNotFound if the object doesn't exist.
func (b *S3Backend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	objectKey, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			b.log.Debug("Object not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", objectKey),
				slog.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("%w: s3://%s/%s", interfaces.ErrContentNotFound, b.bucketName, objectKey)
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", objectKey),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched object from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store saves data to S3 under key.
func (b *S3Backend) Store(ctx context.Context, key string, data []byte) error {
	objectKey, err := b.objectKey(key)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	}
	if contentType := mime.TypeByExtension(path.Ext(objectKey)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored object in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path.Join(b.prefix, strings.TrimPrefix(clean, "/")), nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return true
	}
	return false
}
