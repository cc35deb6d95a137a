// Package metrics holds the Prometheus collectors of the contact page pipeline
// and the server exposing them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/lambda-contact-page/common"
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

var (
	submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Name:      "submissions_total",
		Help:      "Contact form submissions by outcome.",
	}, []string{"outcome"})

	captchaVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Name:      "captcha_verifications_total",
		Help:      "CAPTCHA verifications by result.",
	}, []string{"result"})

	dispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: common.PackageName,
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent handling a submission, from intake to rendered page.",
		Buckets:   prometheus.DefBuckets,
	})

	queueRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Name:      "queue_records_total",
		Help:      "Queued submissions processed by the worker, by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		submissionsTotal,
		captchaVerifications,
		dispatchDuration,
		queueRecordsTotal,
	)
}

// RecordSubmission counts a handled submission.
func RecordSubmission(outcome string, took time.Duration) {
	submissionsTotal.WithLabelValues(outcome).Inc()
	dispatchDuration.Observe(took.Seconds())
}

// RecordCaptcha counts a CAPTCHA verification result.
func RecordCaptcha(result string) {
	captchaVerifications.WithLabelValues(result).Inc()
}

// RecordQueueRecord counts a record processed by the queue worker.
func RecordQueueRecord(result string) {
	queueRecordsTotal.WithLabelValues(result).Inc()
}

// MetricsServer serves Registry on /metrics.
type MetricsServer struct {
	srv *http.Server
}

func New(listenAddr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the /metrics handler.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}
