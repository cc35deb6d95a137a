package lambdahandler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/ruteri/lambda-contact-page/api/contacthandler"
)

// maxBodySize matches the HTTP server's limit.
const maxBodySize = 1024 * 1024

// Handler adapts Lambda HTTP events to the contact dispatcher.
type Handler struct {
	dispatcher *contacthandler.Dispatcher
	log        *slog.Logger
}

func NewHandler(dispatcher *contacthandler.Dispatcher, log *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, log: log}
}

// Handle serves an API Gateway proxy event. It never returns an error so the
// submitter always receives a page.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := lowerHeaders(req.Headers)
	if req.RequestContext.RequestID != "" {
		headers["x-request-id"] = req.RequestContext.RequestID
	}

	resp := h.dispatch(ctx, req.Body, req.IsBase64Encoded, headers)
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    map[string]string{"Content-Type": contacthandler.ContentType},
		Body:       string(resp.Body),
	}, nil
}

// HandleFunctionURL serves a Lambda function URL event.
func (h *Handler) HandleFunctionURL(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	headers := lowerHeaders(req.Headers)
	if req.RequestContext.RequestID != "" {
		headers["x-request-id"] = req.RequestContext.RequestID
	}

	resp := h.dispatch(ctx, req.Body, req.IsBase64Encoded, headers)
	return events.LambdaFunctionURLResponse{
		StatusCode: resp.StatusCode,
		Headers:    map[string]string{"Content-Type": contacthandler.ContentType},
		Body:       string(resp.Body),
	}, nil
}

func (h *Handler) dispatch(ctx context.Context, body string, isBase64 bool, headers map[string]string) *contacthandler.Response {
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			h.log.Warn("Could not decode base64 request body", "err", err)
			return h.dispatcher.FailurePage(contacthandler.OutcomeMalformed)
		}
		body = string(decoded)
	}
	if len(body) > maxBodySize {
		h.log.Warn("Request body too large", slog.Int("size", len(body)))
		return h.dispatcher.FailurePage(contacthandler.OutcomeMalformed)
	}

	return h.dispatcher.Dispatch(ctx, &contacthandler.Request{Body: body, Headers: headers})
}

func lowerHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
