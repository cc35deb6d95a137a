package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("spam"))
	RecordSubmission("spam", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues("spam")))
}

func TestMetricsServer(t *testing.T) {
	RecordCaptcha("success")
	RecordQueueRecord("sent")

	srv := New("127.0.0.1:0")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `contactpage_captcha_verifications_total{result="success"}`)
	assert.Contains(t, body, `contactpage_queue_records_total{result="sent"}`)
	assert.Contains(t, body, "go_goroutines")
}
