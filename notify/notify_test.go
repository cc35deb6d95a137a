package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	sesiface.SESAPI
	mock.Mock
}

func (m *mockSES) SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, _ ...request.Option) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

type mockSQS struct {
	sqsiface.SQSAPI
	mock.Mock
}

func (m *mockSQS) SendMessageWithContext(ctx aws.Context, input *sqs.SendMessageInput, _ ...request.Option) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageOutput), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, ParseRecipients(" a@example.com, ,b@example.com,"))
	assert.Nil(t, ParseRecipients(""))
}

func TestComposeEmail(t *testing.T) {
	s := form.NewSubmission("", nil)
	s.Fields = form.Values{
		"name":    "Ada &amp; Co",
		"email":   "ada@example.com",
		"subject": "Quote",
		"message": "&lt;b&gt;hi&lt;/b&gt;",
	}

	msg := ComposeEmail(s, ComposeOpts{
		SenderName:   "Website",
		NameField:    "name",
		EmailField:   "email",
		SubjectField: "subject",
		MessageField: "message",
	})

	assert.Equal(t, "Website", msg.SenderName)
	assert.Equal(t, "Website contact from Ada & Co: Quote", msg.Subject)
	assert.Equal(t, "SUBJECT: Quote\r\n\r\n<b>hi</b>", msg.TextBody)
	assert.Equal(t, "<p>&lt;b&gt;hi&lt;/b&gt;</p>", msg.HTMLBody)
	assert.Equal(t, []string{"ada@example.com"}, msg.ReplyTo)

	t.Run("without optional fields", func(t *testing.T) {
		s := form.NewSubmission("", nil)
		s.Fields = form.Values{"name": "Bob", "message": "hello"}

		msg := ComposeEmail(s, DefaultComposeOpts)
		assert.Equal(t, "Website contact from Bob", msg.Subject)
		assert.Equal(t, "hello", msg.TextBody)
		assert.Empty(t, msg.ReplyTo)
	})
}

func TestNewSESNotifier(t *testing.T) {
	_, err := NewSESNotifier(&mockSES{}, "", []string{"a@example.com"}, testLogger())
	assert.Error(t, err)
	_, err = NewSESNotifier(&mockSES{}, "web@example.com", nil, testLogger())
	assert.Error(t, err)
}

func TestSESNotifier_Send(t *testing.T) {
	client := &mockSES{}
	n, err := NewSESNotifier(client, "web@example.com", []string{"a@example.com", "b@example.com"}, testLogger())
	require.NoError(t, err)

	msg := &interfaces.EmailMessage{
		SenderName: "Contact Form",
		Subject:    "Website contact from Ada",
		TextBody:   "hello",
		HTMLBody:   `<p onclick="x()">hello</p>`,
		ReplyTo:    []string{"ada@example.com"},
	}

	client.On("SendEmailWithContext", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.StringValue(in.Source) == `"Contact Form" <web@example.com>` &&
			assert.ObjectsAreEqual([]string{"a@example.com", "b@example.com"}, aws.StringValueSlice(in.Destination.ToAddresses)) &&
			assert.ObjectsAreEqual([]string{"ada@example.com"}, aws.StringValueSlice(in.ReplyToAddresses)) &&
			aws.StringValue(in.Message.Subject.Data) == "Website contact from Ada" &&
			aws.StringValue(in.Message.Subject.Charset) == "UTF-8" &&
			aws.StringValue(in.Message.Body.Text.Data) == "hello" &&
			aws.StringValue(in.Message.Body.Html.Data) == "<p>hello</p>"
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil).Once()

	id, err := n.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	client.AssertExpectations(t)
}

func TestSESNotifier_SendFailure(t *testing.T) {
	client := &mockSES{}
	n, err := NewSESNotifier(client, "web@example.com", []string{"a@example.com"}, testLogger())
	require.NoError(t, err)

	rejected := errors.New("MessageRejected: Email address is not verified")
	client.On("SendEmailWithContext", mock.Anything, mock.Anything).Return(nil, rejected).Once()

	_, err = n.Send(context.Background(), &interfaces.EmailMessage{Subject: "s", TextBody: "t"})
	require.Error(t, err)
	assert.True(t, interfaces.IsKind(err, interfaces.KindDelivery))
	assert.ErrorIs(t, err, rejected)
}

func TestSESNotifier_PlainSender(t *testing.T) {
	client := &mockSES{}
	n, err := NewSESNotifier(client, "web@example.com", []string{"a@example.com"}, testLogger())
	require.NoError(t, err)

	input := n.sendEmailInput(&interfaces.EmailMessage{Subject: "s", TextBody: "t"})
	assert.Equal(t, "web@example.com", aws.StringValue(input.Source))
	assert.Nil(t, input.Message.Body.Html)
	assert.Nil(t, input.ReplyToAddresses)
}

func TestSQSQueue_Enqueue(t *testing.T) {
	tests := []struct {
		name      string
		queueURL  string
		wantGroup string
	}{
		{name: "standard queue", queueURL: "https://sqs.eu-west-1.amazonaws.com/123/contact"},
		{name: "fifo queue", queueURL: "https://sqs.eu-west-1.amazonaws.com/123/contact.fifo", wantGroup: fifoGroupID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockSQS{}
			q := NewSQSQueue(client, tt.queueURL, testLogger())

			client.On("SendMessageWithContext", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
				return aws.StringValue(in.QueueUrl) == tt.queueURL &&
					aws.StringValue(in.MessageBody) == `{"uid":"1"}` &&
					aws.StringValue(in.MessageGroupId) == tt.wantGroup
			})).Return(&sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil).Once()

			id, err := q.Enqueue(context.Background(), `{"uid":"1"}`)
			require.NoError(t, err)
			assert.Equal(t, "m-1", id)
			client.AssertExpectations(t)
		})
	}

	t.Run("provider error", func(t *testing.T) {
		client := &mockSQS{}
		q := NewSQSQueue(client, "https://sqs/contact", testLogger())
		client.On("SendMessageWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied")).Once()

		_, err := q.Enqueue(context.Background(), "{}")
		assert.True(t, interfaces.IsKind(err, interfaces.KindDelivery))
	})
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	id, err := n.Send(context.Background(), &interfaces.EmailMessage{Subject: "Website contact from Ann"})
	assert.ErrorIs(t, err, interfaces.ErrDeliveryDisabled)
	assert.Empty(t, id)
}
