package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// fifoGroupID is the message group of all submissions on FIFO queues.
const fifoGroupID = "contact-submissions"

// SQSQueue publishes submissions to an Amazon SQS queue.
type SQSQueue struct {
	client   sqsiface.SQSAPI
	queueURL string
	log      *slog.Logger
}

func NewSQSQueue(client sqsiface.SQSAPI, queueURL string, log *slog.Logger) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL, log: log}
}

// Enqueue implements interfaces.Queue. FIFO queues must have content based
// deduplication enabled.
func (q *SQSQueue) Enqueue(ctx context.Context, payload string) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(payload),
	}
	if strings.HasSuffix(q.queueURL, ".fifo") {
		input.MessageGroupId = aws.String(fifoGroupID)
	}

	out, err := q.client.SendMessageWithContext(ctx, input)
	if err != nil {
		q.log.Error("Failed to enqueue submission", slog.String("queue", q.queueURL), "err", err)
		return "", interfaces.NewDeliveryError("failed to enqueue submission", err)
	}

	return aws.StringValue(out.MessageId), nil
}

var _ interfaces.Queue = (*SQSQueue)(nil)
