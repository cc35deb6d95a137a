package contacthandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	// ContentType of every response page.
	ContentType = "text/html; charset=utf-8"

	// maxBodySize is the maximum allowed request body size (1MB).
	maxBodySize = 1024 * 1024
)

// Handler serves the contact form endpoint over HTTP.
type Handler struct {
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewHandler creates a new HTTP request handler around a dispatcher.
func NewHandler(dispatcher *Dispatcher, log *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		log:        log,
	}
}

// RegisterRoutes registers the form post endpoints:
//   - POST / - form action of a page served from the site root
//   - POST /contact
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleContact)
	r.Post("/contact", h.HandleContact)
}

// HandleContact processes a URL-encoded form post and responds with an HTML page.
//
// Status codes:
//   - 200 OK: submission accepted (or silently discarded as spam)
//   - 400 Bad Request: validation failed, the form is returned annotated
//   - 413 Request Entity Too Large: body over 1MB
//   - 500 Internal Server Error: delivery or configuration failure
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.log.Warn("Failed to read request body", "err", err)
		resp := h.dispatcher.FailurePage(OutcomeMalformed)
		status := resp.StatusCode
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writePage(w, status, resp.Body, h.log)
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), &Request{
		Body:    string(body),
		Headers: FlattenHeaders(r.Header),
	})
	writePage(w, resp.StatusCode, resp.Body, h.log)
}

func writePage(w http.ResponseWriter, status int, body []byte, log *slog.Logger) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Debug("Failed to write response", "err", err)
	}
}

// FlattenHeaders returns headers keyed by lower-case name, joining repeated values.
func FlattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
