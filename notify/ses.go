package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/microcosm-cc/bluemonday"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

const charset = "UTF-8"

// SESNotifier delivers notifications through Amazon Simple Email Service.
type SESNotifier struct {
	client     sesiface.SESAPI
	sender     string
	recipients []string
	policy     *bluemonday.Policy
	log        *slog.Logger
}

// ParseRecipients splits a comma separated recipient list.
func ParseRecipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// NewSESNotifier creates a notifier sending from sender to recipients.
func NewSESNotifier(client sesiface.SESAPI, sender string, recipients []string, log *slog.Logger) (*SESNotifier, error) {
	if sender == "" {
		return nil, errors.New("ses: sender address is required")
	}
	if len(recipients) == 0 {
		return nil, errors.New("ses: at least one recipient is required")
	}
	return &SESNotifier{
		client:     client,
		sender:     sender,
		recipients: recipients,
		policy:     bluemonday.UGCPolicy(),
		log:        log,
	}, nil
}

// Send implements interfaces.Notifier.
func (n *SESNotifier) Send(ctx context.Context, msg *interfaces.EmailMessage) (string, error) {
	input := n.sendEmailInput(msg)

	out, err := n.client.SendEmailWithContext(ctx, input)
	if err != nil {
		n.log.Error("SES rejected e-mail",
			slog.String("subject", msg.Subject),
			slog.Int("recipients", len(n.recipients)),
			"err", err)
		return "", interfaces.NewDeliveryError("failed to send e-mail", err)
	}

	messageID := aws.StringValue(out.MessageId)
	n.log.Info("Sent e-mail", slog.String("message_id", messageID))
	return messageID, nil
}

func (n *SESNotifier) sendEmailInput(msg *interfaces.EmailMessage) *ses.SendEmailInput {
	body := &ses.Body{}
	if msg.TextBody != "" || msg.HTMLBody == "" {
		body.Text = &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.TextBody)}
	}
	if msg.HTMLBody != "" {
		body.Html = &ses.Content{Charset: aws.String(charset), Data: aws.String(n.policy.Sanitize(msg.HTMLBody))}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(n.source(msg.SenderName)),
		Destination: &ses.Destination{ToAddresses: aws.StringSlice(n.recipients)},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Subject)},
			Body:    body,
		},
	}
	if len(msg.ReplyTo) > 0 {
		input.ReplyToAddresses = aws.StringSlice(msg.ReplyTo)
	}
	return input
}

func (n *SESNotifier) source(name string) string {
	if name == "" {
		return n.sender
	}
	return (&mail.Address{Name: name, Address: n.sender}).String()
}

var _ interfaces.Notifier = (*SESNotifier)(nil)

// LogNotifier only logs messages, for local runs without SES. Send always
// returns ErrDeliveryDisabled so callers never treat a message as sent.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg *interfaces.EmailMessage) (string, error) {
	n.log.Info("E-mail delivery disabled, dropping message",
		slog.String("subject", msg.Subject),
		slog.Any("reply_to", msg.ReplyTo))
	return "", interfaces.ErrDeliveryDisabled
}
