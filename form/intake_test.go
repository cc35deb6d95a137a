package form

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntake_Parse(t *testing.T) {
	tests := []struct {
		name     string
		opts     IntakeOpts
		body     string
		expected Values
	}{
		{
			name: "typical contact form",
			body: "name=Ann&email=a%40b.com&subject=Hi&message=Hello+there&g-recaptcha-response=tok1",
			expected: Values{
				"name":                 "Ann",
				"email":                "a@b.com",
				"subject":              "Hi",
				"message":              "Hello there",
				"g-recaptcha-response": "tok1",
			},
		},
		{
			name:     "first value wins and whitespace is trimmed",
			body:     "name=+Ann+&name=Bob",
			expected: Values{"name": "Ann"},
		},
		{
			name:     "empty values are kept",
			body:     "name=&email=a%40b.com&message",
			expected: Values{"name": "", "email": "a@b.com", "message": ""},
		},
		{
			name:     "html is escaped",
			body:     "message=%3Cscript%3Ealert(%22x%22)%3C%2Fscript%3E+%26+'q'",
			expected: Values{"message": "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; &#39;q&#39;"},
		},
		{
			name:     "empty pairs are skipped",
			body:     "a=1&&b=2&",
			expected: Values{"a": "1", "b": "2"},
		},
		{
			name:     "malformed escapes stay literal",
			body:     "discount=100%25&bad=50%zz",
			expected: Values{"discount": "100%", "bad": "50%zz"},
		},
		{
			name:     "invalid utf-8 is replaced",
			body:     "name=%FFAnn",
			expected: Values{"name": "\uFFFDAnn"},
		},
		{
			name:     "schema drops unknown fields",
			opts:     IntakeOpts{Schema: NewSchema([]string{"name"}, []string{"message"})},
			body:     "name=Ann&submit=Send&message=Hi",
			expected: Values{"name": "Ann", "message": "Hi"},
		},
		{
			name:     "empty body",
			body:     "",
			expected: Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIntake(tt.opts, testLogger())
			values, err := in.Parse(tt.body)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, values); diff != "" {
				t.Errorf("unexpected values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntake_Strict(t *testing.T) {
	in := NewIntake(IntakeOpts{Strict: true}, testLogger())

	_, err := in.Parse("name=Ann&message")
	assert.ErrorIs(t, err, interfaces.ErrMalformedBody)

	_, err = in.Parse("name=50%zz")
	assert.ErrorIs(t, err, interfaces.ErrMalformedBody)

	_, err = in.Parse("name=%FF")
	assert.ErrorIs(t, err, interfaces.ErrMalformedBody)

	_, err = in.Parse("name=Ann&&message=Hi")
	assert.ErrorIs(t, err, interfaces.ErrMalformedBody)

	_, err = in.Parse("name=Ann&")
	assert.ErrorIs(t, err, interfaces.ErrMalformedBody)

	values, err := in.Parse("name=Ann&message=Hi")
	require.NoError(t, err)
	assert.Equal(t, Values{"name": "Ann", "message": "Hi"}, values)
}

func TestIntake_MaxFields(t *testing.T) {
	in := NewIntake(IntakeOpts{MaxFields: 3}, testLogger())

	_, err := in.Parse("a=1&b=2&c=3")
	require.NoError(t, err)

	_, err = in.Parse("a=1&b=2&c=3&d=4")
	assert.ErrorIs(t, err, interfaces.ErrTooManyFields)

	// empty pairs count toward the cap
	_, err = in.Parse("a=1&&b=2&c=3")
	assert.ErrorIs(t, err, interfaces.ErrTooManyFields)
	_, err = in.Parse("a=1&b=2&c=3&")
	assert.ErrorIs(t, err, interfaces.ErrTooManyFields)

	unlimited := NewIntake(IntakeOpts{MaxFields: -1}, testLogger())
	_, err = unlimited.Parse(strings.Repeat("a=1&", 100))
	assert.NoError(t, err)

	defaults := NewIntake(IntakeOpts{}, testLogger())
	_, err = defaults.Parse(strings.Repeat("a=1&", DefaultMaxFields+1))
	assert.ErrorIs(t, err, interfaces.ErrTooManyFields)
}

func TestIntake_Fill(t *testing.T) {
	in := NewIntake(IntakeOpts{MaxFields: 2}, testLogger())

	s := NewSubmission("name=Ann", nil)
	require.NoError(t, in.Fill(s))
	assert.Equal(t, StatePosted, s.State)
	assert.Equal(t, "Ann", s.Fields.Get("name"))

	bad := NewSubmission("a=1&b=2&c=3", nil)
	err := in.Fill(bad)
	assert.ErrorIs(t, err, interfaces.ErrTooManyFields)
	assert.Equal(t, StateError, bad.State)
	assert.Equal(t, "a=1&b=2&c=3", bad.RawBody)
	assert.Empty(t, bad.Fields)
}
