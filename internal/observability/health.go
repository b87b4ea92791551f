package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthServer serves liveness, readiness, and Prometheus metrics on
// one HTTP port.
type HealthServer struct {
	log    zerolog.Logger
	server *http.Server
	ready  atomic.Bool
}

// NewHealthServer builds the server without starting it.
func NewHealthServer(port int, log zerolog.Logger) *HealthServer {
	h := &HealthServer{log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !h.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// SetReady flips the readiness probe. Call after recovery completes
// and subscriptions are live.
func (h *HealthServer) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Start serves until the listener closes.
func (h *HealthServer) Start() error {
	h.log.Info().Str("addr", h.server.Addr).Msg("health server listening")
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}
