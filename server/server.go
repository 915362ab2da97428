// Package server exposes the HTTP surface: health and readiness probes, a
// status summary, Prometheus metrics, and the Twitch OAuth linking flow. It
// injects correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/dotascore/telemetry"
)

const maxOAuthStates = 10000

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a Handlers instance with the given dependencies.
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{
		db:         db,
		stateStore: make(map[string]time.Time),
	}
}

// addOAuthState remembers a pending OAuth state, pruning expired entries so
// the store cannot grow without bound.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	if len(h.stateStore)%100 == 0 {
		now := time.Now()
		for st, exp := range h.stateStore {
			if now.After(exp) {
				delete(h.stateStore, st)
			}
		}
	}
	if len(h.stateStore) >= maxOAuthStates {
		return
	}
	h.stateStore[state] = expiry
}

// takeOAuthState consumes a pending state, reporting whether it was valid.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	delete(h.stateStore, state)
	return ok && time.Now().Before(exp)
}

// NewMux returns the HTTP handler with all routes.
func NewMux(db *sql.DB) http.Handler {
	handlers := NewHandlers(db)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)
	mux.HandleFunc("/status", handlers.HandleStatus)
	mux.HandleFunc("/auth/twitch/start", handlers.HandleTwitchOAuthStart)
	mux.HandleFunc("/auth/twitch/callback", handlers.HandleTwitchOAuthCallback)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(rec, r.WithContext(ctx))
		if rec.statusCode < 400 {
			telemetry.SetSpanSuccess(span)
		}
	})
}

// statusRecorder wraps ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context
// cancellation.
func Start(ctx context.Context, db *sql.DB, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(db),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
