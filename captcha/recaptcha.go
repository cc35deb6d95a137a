package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// DefaultEndpoint is Google's reCAPTCHA siteverify API.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// maxResponseSize bounds the verification response we are willing to decode.
const maxResponseSize = 64 * 1024

// RecaptchaVerifier verifies reCAPTCHA (or API compatible, e.g. hCaptcha, Turnstile) tokens.
type RecaptchaVerifier struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// NewRecaptchaVerifier creates a verifier posting to endpoint (DefaultEndpoint when empty).
// A nil client selects a pooled cleanhttp client.
func NewRecaptchaVerifier(endpoint string, client *http.Client, log *slog.Logger) *RecaptchaVerifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RecaptchaVerifier{endpoint: endpoint, client: client, log: log}
}

// Verify posts the secret and response token and decodes the provider's verdict.
// Transport failures and non-2xx answers are returned as errors; a negative verdict is not an error.
func (v *RecaptchaVerifier) Verify(ctx context.Context, secret, token string) (*interfaces.CaptchaResult, error) {
	start := time.Now()
	form := url.Values{
		"secret":   {secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read captcha response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("captcha endpoint returned status %d", resp.StatusCode)
	}

	var result interfaces.CaptchaResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	v.log.Debug("Verified captcha",
		slog.Bool("success", result.Success),
		slog.Any("error_codes", result.ErrorCodes),
		slog.Duration("duration", time.Since(start)))

	return &result, nil
}
