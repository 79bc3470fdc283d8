package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/evalgraph/internal/ctxlog"
)

const (
	healthReadHeaderTimeout = 5 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(a.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler serves the event of the most recent pass as JSON, or 503
// until the first pass has been observed.
func (a *App) statusHandler(w http.ResponseWriter, _ *http.Request) {
	event := a.Status()
	if event == nil {
		http.Error(w, "no pass has run yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event); err != nil {
		ctxlog.FromContext(a.ctx).Warn("Failed to encode status.", "error", err)
	}
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /status", a.statusHandler)
	return mux
}

// healthCheckServer starts serving /health and /status in the background.
// A non-positive port disables it.
func (a *App) healthCheckServer() {
	logger := ctxlog.FromContext(a.ctx)
	port := a.config.HealthcheckPort
	if port <= 0 {
		logger.Debug("Health check server disabled.")
		return
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.healthMux(),
		ReadHeaderTimeout: healthReadHeaderTimeout,
	}
	a.httpServer = srv

	go func() {
		logger.Info("🩺 Health check server listening.", "port", port, "paths", []string{"/health", "/status"})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server stopped.", "error", err)
		}
	}()
}

// closeHealthCheckServer shuts the server down. It still runs after the run
// context has been cancelled.
func (a *App) closeHealthCheckServer() error {
	srv := a.httpServer
	if srv == nil {
		return nil
	}
	a.httpServer = nil

	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), healthShutdownTimeout)
	defer cancel()

	logger := ctxlog.FromContext(a.ctx)
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("health check shutdown: %w", err)
	}
	logger.Debug("Health check server shut down.")
	return nil
}
