// Package config holds the deployment settings shared by every entry point.
// A Config is built once at startup and read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/notify"
	"github.com/ruteri/lambda-contact-page/validator"
)

// Mode selects what happens to a valid submission.
type Mode string

const (
	// ModeEmail sends valid submissions by e-mail during the request.
	ModeEmail Mode = "email"
	// ModeQueue enqueues every submission for the queue worker.
	ModeQueue Mode = "queue"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEmail, ModeQueue:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown delivery mode %q (want %q or %q)", s, ModeEmail, ModeQueue)
}

type Config struct {
	Mode Mode

	RequiredFields []string
	OptionalFields []string
	HoneypotFields []string

	NameField    string
	EmailField   string
	SubjectField string
	MessageField string

	CaptchaField    string
	CaptchaSecret   string
	CaptchaDisabled bool

	MaxFields int
	// StrictIntake rejects malformed bodies instead of repairing them.
	StrictIntake bool
	// FilterUnknownFields drops fields outside the configured field lists.
	FilterUnknownFields bool

	SenderName string
}

// Default returns the settings of the stock contact form: name, e-mail and
// message are required and a reCAPTCHA widget is present.
func Default() Config {
	return Config{
		Mode:                ModeEmail,
		RequiredFields:      []string{"name", "email", "message"},
		OptionalFields:      []string{"subject"},
		NameField:           "name",
		EmailField:          "email",
		SubjectField:        "subject",
		MessageField:        "message",
		CaptchaField:        validator.DefaultCaptchaField,
		MaxFields:           form.DefaultMaxFields,
		FilterUnknownFields: true,
	}
}

// Validate reports configuration mistakes that would make every request fail.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseMode(string(c.Mode)); err != nil {
		errs = append(errs, err)
	}
	if !c.CaptchaDisabled && c.CaptchaSecret == "" {
		errs = append(errs, errors.New("captcha secret is required unless the captcha is disabled"))
	}
	if !c.CaptchaDisabled && c.CaptchaField == "" {
		errs = append(errs, errors.New("captcha field name is empty"))
	}
	for _, hp := range c.HoneypotFields {
		if slices.Contains(c.RequiredFields, hp) {
			errs = append(errs, fmt.Errorf("field %q cannot be both required and a honeypot", hp))
		}
	}
	if c.MaxFields > 0 && len(c.schemaFields()) > c.MaxFields {
		errs = append(errs, fmt.Errorf("%d configured fields exceed the field cap of %d", len(c.schemaFields()), c.MaxFields))
	}
	return errors.Join(errs...)
}

func (c *Config) schemaFields() []string {
	fields := slices.Concat(c.RequiredFields, c.OptionalFields, c.HoneypotFields,
		[]string{c.NameField, c.EmailField, c.SubjectField, c.MessageField})
	if !c.CaptchaDisabled {
		fields = append(fields, c.CaptchaField)
	}
	return form.NewSchema(fields).Fields()
}

// IntakeOpts returns the form decoding options.
func (c *Config) IntakeOpts() form.IntakeOpts {
	opts := form.IntakeOpts{
		MaxFields: c.MaxFields,
		Strict:    c.StrictIntake,
	}
	if c.FilterUnknownFields {
		opts.Schema = form.NewSchema(c.schemaFields())
	}
	return opts
}

// ValidatorConfig returns the checks applied to each submission.
func (c *Config) ValidatorConfig() validator.Config {
	return validator.Config{
		RequiredFields:  c.RequiredFields,
		HoneypotFields:  c.HoneypotFields,
		EmailField:      c.EmailField,
		CaptchaField:    c.CaptchaField,
		CaptchaSecret:   c.CaptchaSecret,
		CaptchaDisabled: c.CaptchaDisabled,
	}
}

// ComposeOpts returns how notifications are built from submissions.
func (c *Config) ComposeOpts() notify.ComposeOpts {
	return notify.ComposeOpts{
		SenderName:   c.SenderName,
		NameField:    c.NameField,
		EmailField:   c.EmailField,
		SubjectField: c.SubjectField,
		MessageField: c.MessageField,
	}
}
