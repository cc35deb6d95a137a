package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/ruteri/lambda-contact-page/metrics"
	"github.com/ruteri/lambda-contact-page/notify"
)

// ArchiveKey is the storage key of a processed submission.
func ArchiveKey(uid string) string {
	return fmt.Sprintf("submissions/%s.json", uid)
}

// Worker delivers queued submissions by e-mail.
type Worker struct {
	notifier interfaces.Notifier
	compose  notify.ComposeOpts
	// archive is optional.
	archive interfaces.StorageBackend
	log     *slog.Logger
}

func New(notifier interfaces.Notifier, compose notify.ComposeOpts, archive interfaces.StorageBackend, log *slog.Logger) *Worker {
	return &Worker{
		notifier: notifier,
		compose:  compose,
		archive:  archive,
		log:      log,
	}
}

// HandleSQSEvent processes a batch of queued submissions. Records whose
// delivery failed are reported as batch item failures so SQS retries only
// those; undecodable records are logged and dropped.
func (w *Worker) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		if err := w.processRecord(ctx, record); err != nil {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}

	w.log.Info("Processed queue batch",
		slog.Int("records", len(event.Records)),
		slog.Int("failures", len(resp.BatchItemFailures)))
	return resp, nil
}

func (w *Worker) processRecord(ctx context.Context, record events.SQSMessage) error {
	log := w.log.With(slog.String("message_id", record.MessageId))

	s, err := form.SubmissionFromJSON(record.Body)
	if err != nil {
		log.Error("Dropping undecodable queue record", "err", err, slog.String("body", record.Body))
		metrics.RecordQueueRecord("malformed")
		return nil
	}
	log = log.With(slog.String("uid", s.UID))

	var sendErr error
	switch s.State {
	case form.StateValid:
		sendErr = w.send(ctx, s, log)
	default:
		log.Info("Skipping submission", slog.String("state", string(s.State)), slog.String("comments", s.Comments))
		metrics.RecordQueueRecord("skipped")
	}

	w.store(ctx, s, log)
	return sendErr
}

func (w *Worker) send(ctx context.Context, s *form.Submission, log *slog.Logger) error {
	messageID, err := w.notifier.Send(ctx, notify.ComposeEmail(s, w.compose))
	if errors.Is(err, interfaces.ErrDeliveryDisabled) {
		// Stays VALID; redelivery would only log it again.
		s.Comments = err.Error()
		log.Warn("Submission logged, not delivered", slog.String("submission", s.String()))
		metrics.RecordQueueRecord("not_delivered")
		return nil
	}
	if err != nil {
		s.Fail(err.Error())
		log.Error("Unsent contact attempt", "err", err, slog.String("submission", s.String()))
		metrics.RecordQueueRecord("failed")
		return err
	}

	if err := s.Transition(form.StateSent); err != nil {
		log.Warn("Unexpected submission state", "err", err)
	}
	s.Comments = "message id " + messageID
	log.Info("E-mail sent", slog.String("message_id", messageID))
	metrics.RecordQueueRecord("sent")
	return nil
}

// store archives the submission in its final state. Archive failures are
// logged only; retrying the record would send the e-mail again.
func (w *Worker) store(ctx context.Context, s *form.Submission, log *slog.Logger) {
	if w.archive == nil {
		return
	}
	data, err := s.MarshalJSON()
	if err == nil {
		err = w.archive.Store(ctx, ArchiveKey(s.UID), data)
	}
	if err != nil {
		log.Error("Failed to archive submission", "err", err, slog.String("backend", w.archive.Name()))
	}
}
