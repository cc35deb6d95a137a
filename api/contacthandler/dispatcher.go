package contacthandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/ruteri/lambda-contact-page/config"
	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/ruteri/lambda-contact-page/metrics"
	"github.com/ruteri/lambda-contact-page/notify"
	"github.com/ruteri/lambda-contact-page/page"
	"github.com/ruteri/lambda-contact-page/validator"
)

// Outcome is the result class of a handled submission.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeInvalid            Outcome = "invalid"
	OutcomeSpam               Outcome = "spam"
	// OutcomeNotDelivered is a valid submission handled by a log-only notifier.
	OutcomeNotDelivered       Outcome = "not_delivered"
	OutcomeMalformed          Outcome = "malformed"
	OutcomeDeliveryFailure    Outcome = "delivery_failure"
	OutcomeConfigurationError Outcome = "configuration_error"
	OutcomeError              Outcome = "error"
)

// StatusCode returns the HTTP status served for the outcome. Spam is answered
// like a success so automated submitters learn nothing.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSuccess, OutcomeSpam, OutcomeNotDelivered:
		return http.StatusOK
	case OutcomeInvalid, OutcomeMalformed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Request is a transport independent form post.
type Request struct {
	Body    string
	Headers map[string]string
}

// Response is the rendered page to return to the submitter.
type Response struct {
	StatusCode    int
	Body          []byte
	Outcome       Outcome
	SubmissionUID string
}

// Dispatcher runs a form post through intake, validation and delivery and
// renders the response page. It holds only read-only state and is safe for
// concurrent use.
type Dispatcher struct {
	mode      config.Mode
	intake    *form.Intake
	validator *validator.Validator
	template  *page.Template
	compose   notify.ComposeOpts
	notifier  interfaces.Notifier
	queue     interfaces.Queue
	log       *slog.Logger
}

// NewDispatcher wires a dispatcher. Email mode needs a notifier, queue mode a queue.
func NewDispatcher(cfg *config.Config, tmpl *page.Template, verifier interfaces.CaptchaVerifier, notifier interfaces.Notifier, queue interfaces.Queue, log *slog.Logger) (*Dispatcher, error) {
	if tmpl == nil {
		return nil, errors.New("template is required")
	}
	switch cfg.Mode {
	case config.ModeEmail:
		if notifier == nil {
			return nil, errors.New("email mode requires a notifier")
		}
	case config.ModeQueue:
		if queue == nil {
			return nil, errors.New("queue mode requires a queue")
		}
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Mode)
	}

	v, err := validator.New(cfg.ValidatorConfig(), verifier, log)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		mode:      cfg.Mode,
		intake:    form.NewIntake(cfg.IntakeOpts(), log),
		validator: v,
		template:  tmpl,
		compose:   cfg.ComposeOpts(),
		notifier:  notifier,
		queue:     queue,
		log:       log,
	}, nil
}

// Dispatch handles one form post. It always returns a page: unexpected errors
// and panics end in the failure page, or PanicPage if even that cannot be rendered.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (resp *Response) {
	start := time.Now()
	s := form.NewSubmission(req.Body, req.Headers)
	log := d.log.With(slog.String("uid", s.UID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while handling submission",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("body", req.Body))
			s.Fail(fmt.Sprint(r))
			resp = d.renderFailure(log, OutcomeError)
		}
		resp.SubmissionUID = s.UID
		metrics.RecordSubmission(string(resp.Outcome), time.Since(start))
		log.Info("Handled submission",
			slog.String("outcome", string(resp.Outcome)),
			slog.String("state", string(s.State)),
			slog.Duration("duration", time.Since(start)))
	}()

	outcome, fieldErrors := d.process(ctx, s, log)
	return d.render(log, s, outcome, fieldErrors)
}

func (d *Dispatcher) process(ctx context.Context, s *form.Submission, log *slog.Logger) (Outcome, map[string]string) {
	if err := d.intake.Fill(s); err != nil {
		log.Warn("Could not decode form body", "err", err, slog.String("body", s.RawBody))
		return OutcomeMalformed, nil
	}

	outcome, fieldErrors := d.validate(ctx, s, log)

	switch d.mode {
	case config.ModeQueue:
		return d.enqueue(ctx, s, outcome, log), fieldErrors
	default:
		if outcome != OutcomeSuccess {
			return outcome, fieldErrors
		}
		return d.send(ctx, s, log), nil
	}
}

func (d *Dispatcher) validate(ctx context.Context, s *form.Submission, log *slog.Logger) (Outcome, map[string]string) {
	err := d.validator.Validate(ctx, s)
	if err == nil {
		return OutcomeSuccess, nil
	}

	switch interfaces.KindOf(err) {
	case interfaces.KindSpam:
		log.Info("Submission flagged as spam", "err", err)
		log.Debug("Spam submission body", slog.String("body", s.RawBody))
		return OutcomeSpam, nil
	case interfaces.KindValidation:
		log.Debug("Submission failed validation", "err", err, slog.String("body", s.RawBody))
		return OutcomeInvalid, interfaces.FieldErrors(err)
	case interfaces.KindConfiguration:
		log.Error("Configuration error while validating submission", "err", err, slog.String("body", s.RawBody))
		return OutcomeConfigurationError, nil
	default:
		log.Error("Unexpected error while validating submission", "err", err, slog.String("body", s.RawBody))
		s.Fail(err.Error())
		return OutcomeError, nil
	}
}

func (d *Dispatcher) send(ctx context.Context, s *form.Submission, log *slog.Logger) Outcome {
	messageID, err := d.notifier.Send(ctx, notify.ComposeEmail(s, d.compose))
	if errors.Is(err, interfaces.ErrDeliveryDisabled) {
		s.Comments = err.Error()
		log.Warn("Submission logged, not delivered", slog.String("submission", s.String()))
		return OutcomeNotDelivered
	}
	if err != nil {
		s.Fail(err.Error())
		log.Error("Unsent contact attempt", "err", err, slog.String("submission", s.String()))
		if interfaces.IsKind(err, interfaces.KindDelivery) {
			return OutcomeDeliveryFailure
		}
		return OutcomeError
	}

	if err := s.Transition(form.StateSent); err != nil {
		log.Warn("Unexpected submission state", "err", err)
	}
	log.Info("E-mail sent", slog.String("message_id", messageID))
	return OutcomeSuccess
}

// enqueue publishes the submission whatever its state; only a valid
// submission that could not be queued changes the outcome.
func (d *Dispatcher) enqueue(ctx context.Context, s *form.Submission, outcome Outcome, log *slog.Logger) Outcome {
	payload, err := s.JSONString()
	if err == nil {
		var messageID string
		messageID, err = d.queue.Enqueue(ctx, payload)
		if err == nil {
			log.Info("Submission queued",
				slog.String("state", string(s.State)),
				slog.String("message_id", messageID))
			return outcome
		}
	}

	log.Error("Could not queue submission", "err", err, slog.String("body", s.RawBody))
	if outcome != OutcomeSuccess {
		return outcome
	}
	s.Fail(err.Error())
	return OutcomeDeliveryFailure
}

func (d *Dispatcher) render(log *slog.Logger, s *form.Submission, outcome Outcome, fieldErrors map[string]string) *Response {
	p := d.template.NewPage()

	var err error
	switch outcome {
	case OutcomeSuccess, OutcomeSpam, OutcomeNotDelivered:
		err = p.Success()
	case OutcomeInvalid:
		p.Populate(s.Fields)
		err = p.Annotate(fieldErrors)
	default:
		err = p.Failure()
	}
	if err != nil {
		log.Error("Could not render response page", "err", err, slog.String("outcome", string(outcome)))
		return d.renderFailure(log, OutcomeError)
	}

	return &Response{
		StatusCode: outcome.StatusCode(),
		Body:       p.Body(),
		Outcome:    outcome,
	}
}

// renderFailure renders the failure page, falling back to PanicPage.
func (d *Dispatcher) renderFailure(log *slog.Logger, outcome Outcome) (resp *Response) {
	resp = &Response{StatusCode: outcome.StatusCode(), Body: page.PanicPage, Outcome: outcome}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while rendering failure page", slog.Any("panic", r))
		}
	}()

	p := d.template.NewPage()
	if err := p.Failure(); err != nil {
		log.Error("Could not render failure page", "err", err)
		return resp
	}
	resp.Body = p.Body()
	return resp
}

// FailurePage renders the failure page for errors raised before dispatch,
// such as unreadable request bodies.
func (d *Dispatcher) FailurePage(outcome Outcome) *Response {
	resp := d.renderFailure(d.log, outcome)
	metrics.RecordSubmission(string(outcome), 0)
	return resp
}
