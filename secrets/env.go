package secrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// FunctionNameContextKey is the KMS encryption context key used by the Lambda
// console encryption helpers.
const FunctionNameContextKey = "LambdaFunctionName"

// EnvResolver resolves values from environment variables. Encrypted values are
// base64 encoded KMS ciphertext.
type EnvResolver struct {
	kms    kmsiface.KMSAPI
	lookup func(string) (string, bool)
	// encryptionContext is passed to every Decrypt call when set.
	encryptionContext map[string]*string
	log               *slog.Logger
}

// EnvResolverOpts configures an EnvResolver.
type EnvResolverOpts struct {
	// KMS decrypts encrypted values. May be nil if no value is encrypted.
	KMS kmsiface.KMSAPI
	// FunctionName, when set, is sent as the LambdaFunctionName encryption context.
	FunctionName string
	// Lookup replaces os.LookupEnv.
	Lookup func(string) (string, bool)
}

func NewEnvResolver(opts EnvResolverOpts, log *slog.Logger) *EnvResolver {
	r := &EnvResolver{
		kms:    opts.KMS,
		lookup: opts.Lookup,
		log:    log,
	}
	if r.lookup == nil {
		r.lookup = os.LookupEnv
	}
	if opts.FunctionName != "" {
		r.encryptionContext = map[string]*string{FunctionNameContextKey: aws.String(opts.FunctionName)}
	}
	return r
}

// Resolve implements interfaces.ConfigResolver.
func (r *EnvResolver) Resolve(ctx context.Context, name string, encrypted bool) (string, error) {
	value, ok := r.lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s", interfaces.ErrContentNotFound, name)
	}
	if !encrypted {
		return value, nil
	}

	if r.kms == nil {
		return "", fmt.Errorf("cannot decrypt %s: no KMS client configured", name)
	}

	blob, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("environment variable %s is not base64 ciphertext: %w", name, err)
	}

	out, err := r.kms.DecryptWithContext(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: r.encryptionContext,
	})
	if err != nil {
		r.log.Error("Failed to decrypt environment variable", slog.String("name", name), "err", err)
		return "", fmt.Errorf("%w: kms decrypt %s: %v", interfaces.ErrBackendUnavailable, name, err)
	}

	r.log.Debug("Decrypted environment variable", slog.String("name", name))
	return string(out.Plaintext), nil
}

var _ interfaces.ConfigResolver = (*EnvResolver)(nil)
