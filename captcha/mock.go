package captcha

import (
	"context"

	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockVerifier mocks the CaptchaVerifier interface
type MockVerifier struct {
	mock.Mock
}

// Verify mocks the Verify method
func (m *MockVerifier) Verify(ctx context.Context, secret, token string) (*interfaces.CaptchaResult, error) {
	args := m.Called(ctx, secret, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CaptchaResult), args.Error(1)
}
