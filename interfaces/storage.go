package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Bucket or host
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// IsFile checks if this is a file system storage location.
func (loc StorageBackendLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsS3 checks if this is an S3 storage location.
func (loc StorageBackendLocation) IsS3() bool {
	return loc.Scheme == "s3"
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

var (
	// ErrContentNotFound is returned when requested content or a named value cannot be found.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend or secret store is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides keyed object storage for templates and archived submissions.
type StorageBackend interface {
	// Fetch retrieves the object stored under key.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Store saves data under key, overwriting any previous object.
	Store(ctx context.Context, key string, data []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file:// and s3://
	StorageBackendFor(locationURI StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locationURIs []StorageBackendLocation) (StorageBackend, error)
}
