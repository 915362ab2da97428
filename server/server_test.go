package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOAuthStateLifecycle(t *testing.T) {
	h := NewHandlers(nil)

	h.addOAuthState("state-1", time.Now().Add(time.Minute))
	if !h.takeOAuthState("state-1") {
		t.Error("fresh state rejected")
	}
	// Single use.
	if h.takeOAuthState("state-1") {
		t.Error("state accepted twice")
	}

	h.addOAuthState("state-2", time.Now().Add(-time.Minute))
	if h.takeOAuthState("state-2") {
		t.Error("expired state accepted")
	}

	if h.takeOAuthState("never-issued") {
		t.Error("unknown state accepted")
	}
}

func TestOAuthStateStoreBounded(t *testing.T) {
	h := NewHandlers(nil)
	for i := 0; i < maxOAuthStates+500; i++ {
		h.addOAuthState(fmt.Sprintf("state-%d", i), time.Now().Add(time.Hour))
	}
	h.stateMu.RLock()
	n := len(h.stateStore)
	h.stateMu.RUnlock()
	if n > maxOAuthStates {
		t.Errorf("state store grew to %d entries", n)
	}
}

func TestCorrelationHeader(t *testing.T) {
	database := setupServerDB(t)
	mux := NewMux(database)

	t.Run("generated when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Header().Get("X-Correlation-ID") == "" {
			t.Error("no correlation id issued")
		}
	})

	t.Run("echoed when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Correlation-ID", "corr-abc")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Correlation-ID"); got != "corr-abc" {
			t.Errorf("correlation id = %q", got)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	database := setupServerDB(t)
	mux := NewMux(database)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}
