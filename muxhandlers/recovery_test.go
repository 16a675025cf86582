package muxhandlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitalvas/waypoint/mux"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		target    mux.DispatchFunc
		cfg       RecoveryConfig
		wantCode  int
		wantLog   string
		wantStack bool
	}{
		{
			name:     "success passes through",
			target:   textHandler(http.StatusOK, "ok"),
			wantCode: http.StatusOK,
		},
		{
			name: "error returns 500",
			target: func(*mux.Context) (*mux.Response, error) {
				return nil, errors.New("database down")
			},
			wantCode: http.StatusInternalServerError,
			wantLog:  "database down",
		},
		{
			name: "panic returns 500",
			target: func(*mux.Context) (*mux.Response, error) {
				panic("something went wrong")
			},
			wantCode: http.StatusInternalServerError,
			wantLog:  "something went wrong",
		},
		{
			name: "panic stack is logged on request",
			target: func(*mux.Context) (*mux.Response, error) {
				panic(42)
			},
			cfg:       RecoveryConfig{LogStack: true},
			wantCode:  http.StatusInternalServerError,
			wantLog:   "panic=true",
			wantStack: true,
		},
		{
			name: "custom response",
			target: func(*mux.Context) (*mux.Response, error) {
				return nil, errors.New("nope")
			},
			cfg: RecoveryConfig{Response: func(*mux.Context) *mux.Response {
				return mux.JSON(http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
			}},
			wantCode: http.StatusServiceUnavailable,
			wantLog:  "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

			r := newTestRouter(t, mux.PhaseThrowableCaught, RecoveryMiddleware(tt.cfg), tt.target)
			r.Debug(true)

			w := do(r, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantLog == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "request failed")
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Contains(t, buf.String(), "route=/test")
			if tt.wantStack {
				assert.Contains(t, buf.String(), "stack=")
			}
		})
	}
}

func TestRecoveryMiddlewareDefaultLogger(t *testing.T) {
	mw := RecoveryMiddleware(RecoveryConfig{})
	r := newTestRouter(t, mux.PhaseThrowableCaught, mw, mux.DispatchFunc(func(*mux.Context) (*mux.Response, error) {
		return nil, errors.New("fail")
	}))

	assert.NotPanics(t, func() {
		w := do(r, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
