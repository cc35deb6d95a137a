package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/lambda-contact-page/api/contacthandler"
	"github.com/ruteri/lambda-contact-page/metrics"
	"go.uber.org/atomic"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 30 * time.Second
)

// HTTPServerConfig configures the standalone server. Zero durations select
// the defaults above; an empty MetricsAddr disables the metrics listener.
type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long /drain reports not-ready before load balancers are expected to notice.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

func (c *HTTPServerConfig) setDefaults() {
	if c.GracefulShutdownDuration == 0 {
		c.GracefulShutdownDuration = defaultShutdownTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	contact    *contacthandler.Handler
}

func New(cfg *HTTPServerConfig, contact *contacthandler.Handler) *Server {
	cfg.setDefaults()
	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metrics.New(cfg.MetricsAddr),
		contact:    contact,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(srv.httpLogger)
		srv.contact.RegisterRoutes(r)

		r.Get("/livez", srv.handleLivenessCheck)
		r.Get("/readyz", srv.handleReadinessCheck)
		r.Get("/drain", srv.handleDrain)
		r.Get("/undrain", srv.handleUndrain)
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}

	srv.log.Info("Server marked as not ready")

	// Load balancers need DrainDuration to notice; don't hold the request for it.
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}

	srv.log.Info("Server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

// Handler returns the API router, without the listener around it.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

func (srv *Server) Shutdown() {
	// api
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
