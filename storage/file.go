package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/lambda-contact-page/interfaces"
)

// FileBackend implements a storage backend using the local file system.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend rooted at baseDir,
// creating the directory if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads the file stored under key.
// Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	filePath, err := b.filePath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes data to the file for key, creating parent directories.
func (b *FileBackend) Store(ctx context.Context, key string, data []byte) error {
	filePath, err := b.filePath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// filePath maps a key to a path under the base directory.
func (b *FileBackend) filePath(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if rel == "." || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(b.baseDir, rel), nil
}
