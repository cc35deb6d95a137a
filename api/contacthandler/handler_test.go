package contacthandler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/lambda-contact-page/config"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleContact(t *testing.T) {
	env := setupDispatcher(t, config.ModeEmail)
	env.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).
		Return(&interfaces.CaptchaResult{Success: true}, nil)
	env.notifier.On("Send", mock.Anything, mock.Anything).Return("msg-1", nil)

	handler := NewHandler(env.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)

	for _, path := range []string{"/", "/contact"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(encode(annSubmission())))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, ContentType, resp.Header.Get("Content-Type"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "Thank you for contacting us.")
		})
	}

	t.Run("invalid submission", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=Ann"))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `value="Ann"`)
	})

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(strings.Repeat("a", maxBodySize+1)))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "Something went wrong.")
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/contact", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestFlattenHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("X-Forwarded-For", "1.1.1.1")
	h.Add("X-Forwarded-For", "2.2.2.2")
	h.Set("User-Agent", "test")

	assert.Equal(t, map[string]string{
		"x-forwarded-for": "1.1.1.1, 2.2.2.2",
		"user-agent":      "test",
	}, FlattenHeaders(h))
}

func TestHandleContact_QueuedRecordHasNoCredentials(t *testing.T) {
	env := setupDispatcher(t, config.ModeQueue)
	env.verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).
		Return(&interfaces.CaptchaResult{Success: true}, nil)
	env.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, `"user-agent":"test"`) &&
			!strings.Contains(p, "session=abc") &&
			!strings.Contains(p, "Bearer")
	})).Return("m-1", nil).Once()

	handler := NewHandler(env.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(encode(annSubmission())))
	req.Header.Set("User-Agent", "test")
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env.queue.AssertExpectations(t)
}
