package form

import (
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// State is the lifecycle state of a Submission.
type State string

const (
	StateEmpty   State = "EMPTY"
	StatePosted  State = "POSTED"
	StateValid   State = "VALID"
	StateInvalid State = "INVALID"
	StateSpam    State = "SPAM"
	StateError   State = "ERROR"
	StateSent    State = "SENT"
)

var transitions = map[State][]State{
	StateEmpty:  {StatePosted, StateError},
	StatePosted: {StateValid, StateInvalid, StateSpam, StateError},
	StateValid:  {StateSent, StateError},
}

// CanTransition reports whether a submission in state from may move to state to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Values maps form field names to cleaned (trimmed, HTML-escaped) values.
type Values map[string]string

// Get returns the cleaned value of name, or "" when absent.
func (v Values) Get(name string) string {
	return v[name]
}

// Has reports whether name was submitted, even with an empty value.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Unescaped returns the value of name as the user typed it.
func (v Values) Unescaped(name string) string {
	return html.UnescapeString(v[name])
}

// Keys returns the field names in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Submission is one contact form post and its processing state.
type Submission struct {
	UID       string
	CreatedAt time.Time
	State     State
	Headers   map[string]string
	Fields    Values
	RawBody   string
	Comments  string
}

// credentialHeaders never leave the request: submissions are queued and archived.
var credentialHeaders = []string{
	"authorization",
	"cookie",
	"proxy-authorization",
	"x-amz-security-token",
	"x-api-key",
}

// StripCredentials returns a copy of headers without credential-bearing entries.
func StripCredentials(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if slices.Contains(credentialHeaders, strings.ToLower(name)) {
			continue
		}
		out[name] = value
	}
	return out
}

// NewSubmission creates an empty submission for a raw request body.
// The id is a time-ordered UUIDv7 so records sort by creation time.
// Credential headers are dropped.
func NewSubmission(rawBody string, headers map[string]string) *Submission {
	now := time.Now().UTC()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Submission{
		UID:       id.String(),
		CreatedAt: now,
		State:     StateEmpty,
		Headers:   StripCredentials(headers),
		Fields:    Values{},
		RawBody:   rawBody,
	}
}

// Transition moves the submission to state to, enforcing the lifecycle.
func (s *Submission) Transition(to State) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", interfaces.ErrIllegalTransition, s.State, to)
	}
	s.State = to
	return nil
}

// Fail marks the submission as errored from whatever non-terminal state it is in.
func (s *Submission) Fail(comment string) {
	if CanTransition(s.State, StateError) {
		s.State = StateError
	}
	if comment != "" {
		s.Comments = comment
	}
}

func (s *Submission) String() string {
	return fmt.Sprintf("submission %s (%s): %v", s.UID, s.State, map[string]string(s.Fields))
}

type submissionRecord struct {
	UID       string            `json:"uid"`
	State     State             `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	Headers   map[string]string `json:"headers"`
	Body      Values            `json:"body"`
	Comments  string            `json:"comments"`
}

// MarshalJSON encodes the queue record of the submission. The raw body is not part
// of the record; the cleaned fields are.
func (s *Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(submissionRecord{
		UID:       s.UID,
		State:     s.State,
		CreatedAt: s.CreatedAt,
		Headers:   s.Headers,
		Body:      s.Fields,
		Comments:  s.Comments,
	})
}

// UnmarshalJSON decodes a queue record.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var rec submissionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.UID == "" {
		return fmt.Errorf("submission record has no uid")
	}
	if rec.Body == nil {
		rec.Body = Values{}
	}
	*s = Submission{
		UID:       rec.UID,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		Headers:   rec.Headers,
		Fields:    rec.Body,
		Comments:  rec.Comments,
	}
	return nil
}

// JSONString returns the queue payload for the submission.
func (s *Submission) JSONString() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SubmissionFromJSON decodes a queue payload.
func SubmissionFromJSON(payload string) (*Submission, error) {
	s := &Submission{}
	if err := json.Unmarshal([]byte(payload), s); err != nil {
		return nil, fmt.Errorf("invalid submission record: %w", err)
	}
	return s, nil
}
