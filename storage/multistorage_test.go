package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMultiStorageBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for i, available := range tt.backends {
				mockStorage := &MockStorageBackend{BackendName: fmt.Sprintf("mock-A%x", i)}
				mockStorage.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, mockStorage)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStorageBackend(backends, logger)

			result := multi.Available(context.Background())
			assert.Equal(t, tt.expected, result)

			for _, backend := range backends {
				mockStorage := backend.(*MockStorageBackend)
				mockStorage.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_Fetch(t *testing.T) {
	testKey := "contact.html"
	testData := []byte("<main></main>")
	testErr := errors.New("test error")

	tests := []struct {
		name         string
		setupMocks   func() []interfaces.StorageBackend
		expectedData []byte
		expectedErr  error
		expectError  bool
	}{
		{
			name: "first backend successful",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testKey).Return(testData, nil)

				// Never consulted as the first one succeeds
				mock2 := &MockStorageBackend{BackendName: "mock-B"}

				return []interfaces.StorageBackend{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first backend fails, second succeeds",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testKey).Return(nil, testErr)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testKey).Return(testData, nil)

				return []interfaces.StorageBackend{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testKey).Return(nil, testErr)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testKey).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.StorageBackend{mock1, mock2}
			},
			expectedErr: testErr,
			expectError: true,
		},
		{
			name: "missing everywhere",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, testKey).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.StorageBackend{mock1}
			},
			expectedErr: interfaces.ErrContentNotFound,
			expectError: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, testKey).Return(testData, nil)

				return []interfaces.StorageBackend{mock1, mock2}
			},
			expectedData: testData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStorageBackend(backends, logger)

			data, err := multi.Fetch(context.Background(), testKey)

			if tt.expectError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				mock := backend.(*MockStorageBackend)
				mock.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_Store(t *testing.T) {
	testKey := "submissions/0190.json"
	testData := []byte(`{"uid":"0190"}`)
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.StorageBackend
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testKey, testData).Return(nil)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testKey, testData).Return(nil)

				return []interfaces.StorageBackend{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testKey, testData).Return(nil)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testKey, testData).Return(testErr)

				return []interfaces.StorageBackend{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Store", mock.Anything, testKey, testData).Return(testErr)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testKey, testData).Return(testErr)

				return []interfaces.StorageBackend{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockStorageBackend{BackendName: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Store", mock.Anything, testKey, testData).Return(nil)

				return []interfaces.StorageBackend{mock1, mock2}
			},
		},
		{
			name: "nothing available",
			setupMocks: func() []interfaces.StorageBackend {
				mock1 := &MockStorageBackend{BackendName: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				return []interfaces.StorageBackend{mock1}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStorageBackend(backends, logger)

			err := multi.Store(context.Background(), testKey, testData)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				mock := backend.(*MockStorageBackend)
				mock.AssertExpectations(t)
			}
		})
	}
}
