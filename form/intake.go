package form

import (
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ruteri/lambda-contact-page/interfaces"
)

// DefaultMaxFields is the field cap used when none is configured.
const DefaultMaxFields = 30

// Schema is the fixed set of field names a deployment accepts.
type Schema struct {
	known map[string]struct{}
}

// NewSchema builds a schema from one or more field lists. Blank names are ignored.
func NewSchema(groups ...[]string) *Schema {
	s := &Schema{known: map[string]struct{}{}}
	for _, g := range groups {
		for _, name := range g {
			name = strings.TrimSpace(name)
			if name != "" {
				s.known[name] = struct{}{}
			}
		}
	}
	return s
}

// Contains reports whether name belongs to the schema.
func (s *Schema) Contains(name string) bool {
	_, ok := s.known[name]
	return ok
}

// Fields returns the schema's field names in sorted order.
func (s *Schema) Fields() []string {
	out := make([]string, 0, len(s.known))
	for k := range s.known {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IntakeOpts configures form body decoding.
type IntakeOpts struct {
	// MaxFields caps the number of pairs in a body; zero means DefaultMaxFields,
	// a negative value disables the cap.
	MaxFields int

	// Strict rejects malformed pairs and escapes instead of repairing them.
	Strict bool

	// Schema, when set, drops every field it does not contain.
	Schema *Schema
}

// Intake decodes URL-encoded form bodies into cleaned submission values.
type Intake struct {
	opts IntakeOpts
	log  *slog.Logger
}

// NewIntake creates a form intake.
func NewIntake(opts IntakeOpts, log *slog.Logger) *Intake {
	if opts.MaxFields == 0 {
		opts.MaxFields = DefaultMaxFields
	}
	if log == nil {
		log = slog.Default()
	}
	return &Intake{opts: opts, log: log}
}

// Fill decodes the submission's raw body into its fields and moves it to POSTED.
// On failure the submission is marked ERROR and keeps its raw body for logging.
func (in *Intake) Fill(s *Submission) error {
	values, err := in.Parse(s.RawBody)
	if err != nil {
		s.Fail(err.Error())
		return err
	}
	s.Fields = values
	return s.Transition(StatePosted)
}

// Parse decodes body. Only the first value of a repeated key is kept; values are
// trimmed and HTML-escaped so they can be reinserted into markup. Empty values are kept.
func (in *Intake) Parse(body string) (Values, error) {
	if body == "" {
		return Values{}, nil
	}

	// Every separator counts toward the cap, empty pairs included.
	segments := strings.Split(body, "&")
	if in.opts.MaxFields > 0 && len(segments) > in.opts.MaxFields {
		return nil, fmt.Errorf("%w: %d > %d", interfaces.ErrTooManyFields, len(segments), in.opts.MaxFields)
	}

	values := Values{}
	for _, pair := range segments {
		if pair == "" {
			if in.opts.Strict {
				return nil, fmt.Errorf("%w: empty query field", interfaces.ErrMalformedBody)
			}
			continue
		}
		rawKey, rawValue, found := strings.Cut(pair, "=")
		if !found && in.opts.Strict {
			return nil, fmt.Errorf("%w: bad query field %q", interfaces.ErrMalformedBody, pair)
		}

		key, err := in.decode(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := in.decode(rawValue)
		if err != nil {
			return nil, err
		}

		if values.Has(key) {
			continue
		}
		if in.opts.Schema != nil && !in.opts.Schema.Contains(key) {
			in.log.Debug("Dropping unknown form field", slog.String("field", key))
			continue
		}
		values[key] = html.EscapeString(strings.TrimSpace(value))
	}
	return values, nil
}

func (in *Intake) decode(s string) (string, error) {
	out, err := url.QueryUnescape(s)
	if err != nil {
		if in.opts.Strict {
			return "", fmt.Errorf("%w: %v", interfaces.ErrMalformedBody, err)
		}
		out = lenientUnescape(s)
	}
	if !utf8.ValidString(out) {
		if in.opts.Strict {
			return "", fmt.Errorf("%w: invalid utf-8 in %q", interfaces.ErrMalformedBody, s)
		}
		out = strings.ToValidUTF8(out, "\uFFFD")
	}
	return out, nil
}

// lenientUnescape decodes '+' and well-formed %XX escapes, leaving malformed escapes literal.
func lenientUnescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func ishex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
