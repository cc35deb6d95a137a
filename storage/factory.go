package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/lambda-contact-page/interfaces"
)

// StorageBackendFactory creates storage backends from location URIs and manages
// multi-backend configurations with fallback.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch {
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsFile():
		return sf.createFileBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of location URIs.
// Locations that fail to produce a backend are logged and skipped.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=http://localhost:9000
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", location.Host))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket name", interfaces.ErrInvalidLocationURI)
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Backend(
		location.Host,
		strings.TrimPrefix(location.Path, "/"),
		location.GetParam("region"),
		location.GetParam("endpoint"),
		accessKey,
		secretKey,
		sf.log,
	)
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)
