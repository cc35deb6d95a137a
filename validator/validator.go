package validator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/ruteri/lambda-contact-page/metrics"
)

// DefaultCaptchaField is the field reCAPTCHA posts its response token in.
const DefaultCaptchaField = "g-recaptcha-response"

// User facing messages.
const (
	MsgRequired        = "This field is required"
	MsgInvalidEmail    = "The e-mail address seems to be incorrect"
	MsgCaptchaMissing  = "Please complete the captcha"
	MsgCaptchaExpired  = "The captcha has expired. Please try again."
	MsgCaptchaRejected = "The captcha was incorrect. Please try again."
)

// reCAPTCHA error codes caused by the submitter; anything else is a deployment problem.
var clientCaptchaCodes = map[string]bool{
	"missing-input-response": true,
	"invalid-input-response": true,
	"timeout-or-duplicate":   true,
}

var emailPattern = regexp.MustCompile(`^[^\s]+@[^@\s]+\.[a-zA-Z][a-zA-Z0-9]?[a-zA-Z]$`)

// Config lists the checks a deployment applies to a submission.
type Config struct {
	RequiredFields []string
	HoneypotFields []string

	// EmailField is format-checked when non-empty.
	EmailField string

	// CaptchaField defaults to DefaultCaptchaField.
	CaptchaField  string
	CaptchaSecret string
	// CaptchaDisabled skips the CAPTCHA check entirely.
	CaptchaDisabled bool
}

// Validator runs the honeypot, required-field, e-mail and CAPTCHA checks in that order.
type Validator struct {
	cfg      Config
	verifier interfaces.CaptchaVerifier
	log      *slog.Logger
}

// New creates a Validator. verifier may be nil only when the CAPTCHA check is disabled.
func New(cfg Config, verifier interfaces.CaptchaVerifier, log *slog.Logger) (*Validator, error) {
	if cfg.CaptchaField == "" {
		cfg.CaptchaField = DefaultCaptchaField
	}
	if !cfg.CaptchaDisabled && verifier == nil {
		return nil, fmt.Errorf("captcha verifier is required unless the captcha check is disabled")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Validator{cfg: cfg, verifier: verifier, log: log}, nil
}

// CaptchaField returns the name of the field carrying the CAPTCHA token.
func (v *Validator) CaptchaField() string {
	return v.cfg.CaptchaField
}

// Validate checks a POSTED submission and moves it to VALID, INVALID, SPAM or ERROR.
// Check failures are returned as *interfaces.FormError; a submission that is not
// POSTED yields interfaces.ErrIllegalTransition.
func (v *Validator) Validate(ctx context.Context, s *form.Submission) error {
	checks := []func(context.Context, *form.Submission) (form.State, error){
		v.checkHoneypots,
		v.checkRequired,
		v.checkEmail,
		v.checkCaptcha,
	}
	for _, check := range checks {
		state, err := check(ctx, s)
		if err != nil {
			if terr := s.Transition(state); terr != nil {
				v.log.Warn("Unexpected submission state", "err", terr, slog.String("uid", s.UID))
			}
			return err
		}
	}
	return s.Transition(form.StateValid)
}

func (v *Validator) checkHoneypots(_ context.Context, s *form.Submission) (form.State, error) {
	filled := map[string]string{}
	for _, name := range v.cfg.HoneypotFields {
		if value := s.Fields.Get(name); value != "" {
			filled[name] = value
		}
	}
	if len(filled) > 0 {
		return form.StateSpam, interfaces.NewSpamError(filled)
	}
	return "", nil
}

func (v *Validator) checkRequired(_ context.Context, s *form.Submission) (form.State, error) {
	missing := map[string]string{}
	for _, name := range v.cfg.RequiredFields {
		if s.Fields.Get(name) == "" {
			missing[name] = MsgRequired
		}
	}
	if len(missing) > 0 {
		return form.StateInvalid, interfaces.NewValidationError("missing values in required fields", missing)
	}
	return "", nil
}

func (v *Validator) checkEmail(_ context.Context, s *form.Submission) (form.State, error) {
	if v.cfg.EmailField == "" {
		return "", nil
	}
	address := s.Fields.Unescaped(v.cfg.EmailField)
	if address == "" || emailPattern.MatchString(address) {
		return "", nil
	}
	return form.StateInvalid, interfaces.NewValidationError("malformed e-mail address",
		map[string]string{v.cfg.EmailField: MsgInvalidEmail})
}

func (v *Validator) checkCaptcha(ctx context.Context, s *form.Submission) (form.State, error) {
	if v.cfg.CaptchaDisabled {
		return "", nil
	}

	field := v.cfg.CaptchaField
	token := s.Fields.Unescaped(field)
	if token == "" {
		return form.StateInvalid, interfaces.NewValidationError("captcha not completed",
			map[string]string{field: MsgCaptchaMissing})
	}

	result, err := v.verifier.Verify(ctx, v.cfg.CaptchaSecret, token)
	if err != nil {
		metrics.RecordCaptcha("unreachable")
		return form.StateError, interfaces.NewConfigurationError("captcha verification failed", err)
	}
	if result.Success {
		metrics.RecordCaptcha("success")
		return "", nil
	}

	codes := append([]string(nil), result.ErrorCodes...)
	sort.Strings(codes)

	if isClientFailure(codes) {
		metrics.RecordCaptcha("rejected")
		msg := MsgCaptchaRejected
		for _, c := range codes {
			if c == "timeout-or-duplicate" {
				msg = MsgCaptchaExpired
			}
		}
		return form.StateInvalid, interfaces.NewValidationError(
			"captcha rejected: "+strings.Join(codes, ","),
			map[string]string{field: msg})
	}

	metrics.RecordCaptcha("misconfigured")
	return form.StateError, interfaces.NewConfigurationError(
		"captcha provider reported a configuration error",
		fmt.Errorf("error codes: %s", strings.Join(codes, ",")))
}

// isClientFailure reports whether every code is attributable to the submitter.
// An empty code set is not: the provider failed without saying why.
func isClientFailure(codes []string) bool {
	if len(codes) == 0 {
		return false
	}
	for _, c := range codes {
		if !clientCaptchaCodes[c] {
			return false
		}
	}
	return true
}
