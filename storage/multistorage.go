package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/lambda-contact-page/interfaces"
)

// MultiStorageBackend implements interfaces.StorageBackend using multiple backends with fallback
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the object from the first available backend that has it.
// If every backend reports the key as missing the error wraps ErrContentNotFound.
func (m *MultiStorageBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var errs []error
	allNotFound := true

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key))
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), interfaces.ErrBackendUnavailable))
			allNotFound = false
			continue
		}

		data, err := backend.Fetch(ctx, key)
		if err == nil {
			m.log.Info("Successfully fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if !errors.Is(err, interfaces.ErrContentNotFound) {
			allNotFound = false
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("key", key),
			"err", err)
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("key", key),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	if allNotFound && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, key)
	}
	return nil, fmt.Errorf("all backends failed to fetch %s: %w", key, errors.Join(errs...))
}

// Store saves data to all available backends. It succeeds if at least one backend stored it.
func (m *MultiStorageBackend) Store(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	var stored int
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, key, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store data",
			slog.String("key", key),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("no backend available to store %s: %w", key, interfaces.ErrBackendUnavailable)
		}
		return fmt.Errorf("all backends failed to store %s: %w", key, errors.Join(errs...))
	}

	m.log.Info("Successfully stored content",
		slog.String("key", key),
		slog.Int("backends", stored),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
