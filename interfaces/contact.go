package interfaces

import (
	"context"
)

// ConfigResolver looks up named configuration values and secrets.
type ConfigResolver interface {
	// Resolve returns the value of name. When encrypted is set the stored value
	// is ciphertext and the plaintext is returned.
	Resolve(ctx context.Context, name string, encrypted bool) (string, error)
}

// CaptchaResult is the decoded answer of a CAPTCHA verification endpoint.
type CaptchaResult struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
}

// CaptchaVerifier verifies a CAPTCHA response token server side.
type CaptchaVerifier interface {
	Verify(ctx context.Context, secret, token string) (*CaptchaResult, error)
}

// EmailMessage is the provider-agnostic content of a notification e-mail.
type EmailMessage struct {
	SenderName string
	Subject    string
	TextBody   string
	HTMLBody   string
	ReplyTo    []string
}

// Notifier delivers an e-mail and returns the provider's message id.
// Provider rejections are returned as KindDelivery FormErrors.
type Notifier interface {
	Send(ctx context.Context, msg *EmailMessage) (string, error)
}

// Queue publishes a serialized submission for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, payload string) (string, error)
}
