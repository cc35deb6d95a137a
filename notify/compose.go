package notify

import (
	"fmt"
	"strings"

	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// ComposeOpts names the submission fields used to build a notification.
type ComposeOpts struct {
	SenderName   string
	NameField    string
	EmailField   string
	SubjectField string
	MessageField string
}

// DefaultComposeOpts matches the field names of the stock contact form.
var DefaultComposeOpts = ComposeOpts{
	NameField:    "name",
	EmailField:   "email",
	SubjectField: "subject",
	MessageField: "message",
}

// ComposeEmail builds the notification for a validated submission. Field values
// are stored HTML-escaped; the text parts use them unescaped and the HTML body
// keeps them escaped.
func ComposeEmail(s *form.Submission, opts ComposeOpts) *interfaces.EmailMessage {
	fields := s.Fields

	subject := "Website contact"
	if name := fields.Unescaped(opts.NameField); name != "" {
		subject = "Website contact from " + name
	}
	topic := fields.Unescaped(opts.SubjectField)
	if topic != "" {
		subject += ": " + topic
	}

	var text strings.Builder
	if topic != "" {
		fmt.Fprintf(&text, "SUBJECT: %s\r\n\r\n", topic)
	}
	text.WriteString(fields.Unescaped(opts.MessageField))

	msg := &interfaces.EmailMessage{
		SenderName: opts.SenderName,
		Subject:    subject,
		TextBody:   text.String(),
		HTMLBody:   "<p>" + fields.Get(opts.MessageField) + "</p>",
	}
	if email := fields.Unescaped(opts.EmailField); email != "" {
		msg.ReplyTo = []string{email}
	}
	return msg
}
