package interfaces

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMissingContentRegion is returned when a template has no content region to render into.
	ErrMissingContentRegion = errors.New("template is missing the content region")

	// ErrInvalidMarkup is returned when replacement or annotation markup yields no usable nodes.
	ErrInvalidMarkup = errors.New("improper markup supplied")

	// ErrTooManyFields is returned when a form body carries more fields than allowed.
	ErrTooManyFields = errors.New("max number of fields exceeded")

	// ErrMalformedBody is returned by strict intake when a pair or escape is malformed.
	ErrMalformedBody = errors.New("malformed form body")

	// ErrDeliveryDisabled is returned by notifiers that log messages instead of sending them.
	// A submission answered with it was not delivered.
	ErrDeliveryDisabled = errors.New("e-mail delivery disabled")

	// ErrIllegalTransition is returned when a submission is moved to a state its current state does not allow.
	ErrIllegalTransition = errors.New("illegal submission state transition")
)

// ErrorKind tags a FormError with the way the dispatcher must recover from it.
type ErrorKind int

const (
	// KindUnclassified is anything not otherwise recognised.
	KindUnclassified ErrorKind = iota
	// KindValidation is a user-correctable, field-keyed input error.
	KindValidation
	// KindSpam means a honeypot field was filled in.
	KindSpam
	// KindDelivery means the e-mail or queue provider rejected the request.
	KindDelivery
	// KindConfiguration means the deployment is misconfigured (CAPTCHA secret, template, provider setup).
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSpam:
		return "spam"
	case KindDelivery:
		return "delivery"
	case KindConfiguration:
		return "configuration"
	default:
		return "unclassified"
	}
}

// FormError is the single error type raised by the contact pipeline.
//
// Fields is only meaningful for KindValidation (field name → user facing message)
// and KindSpam (honeypot name → offending value, for logs). It is never non-empty
// for the other kinds.
type FormError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *FormError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a field-keyed, user-correctable error. fields must not be empty.
func NewValidationError(message string, fields map[string]string) *FormError {
	return &FormError{Kind: KindValidation, Message: message, Fields: fields}
}

// NewSpamError reports filled honeypots.
func NewSpamError(honeypots map[string]string) *FormError {
	return &FormError{Kind: KindSpam, Message: "probable spam submission", Fields: honeypots}
}

// NewDeliveryError wraps a provider rejection.
func NewDeliveryError(message string, err error) *FormError {
	return &FormError{Kind: KindDelivery, Message: message, Err: err}
}

// NewConfigurationError wraps a deployment or provider misconfiguration.
func NewConfigurationError(message string, err error) *FormError {
	return &FormError{Kind: KindConfiguration, Message: message, Err: err}
}

// KindOf returns the kind of the first FormError in err's chain, or KindUnclassified.
func KindOf(err error) ErrorKind {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnclassified
}

// IsKind reports whether err carries a FormError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldErrors returns the field messages of a validation error in err's chain.
func FieldErrors(err error) map[string]string {
	var fe *FormError
	if errors.As(err, &fe) && fe.Kind == KindValidation {
		return fe.Fields
	}
	return nil
}
