package notify

import (
	"context"

	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

// Send mocks the Send method
func (m *MockNotifier) Send(ctx context.Context, msg *interfaces.EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockQueue mocks the Queue interface
type MockQueue struct {
	mock.Mock
}

// Enqueue mocks the Enqueue method
func (m *MockQueue) Enqueue(ctx context.Context, payload string) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}
