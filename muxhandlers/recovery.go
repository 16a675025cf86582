package muxhandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vitalvas/waypoint/mux"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives one error record per failed request. When nil,
	// slog.Default is used.
	Logger *slog.Logger

	// Response builds the response sent to the client. When nil, a plain
	// text 500 Internal Server Error is sent.
	Response func(c *mux.Context) *mux.Response

	// LogStack adds the goroutine stack of recovered panics to the record.
	LogStack bool
}

// RecoveryMiddleware returns a throwable-caught middleware that logs the
// error or recovered panic of a request and turns it into a response, so
// the error never reaches the router's debug handling.
//
//	r.Use(mux.PhaseThrowableCaught, muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{}))
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *mux.Context, _ *mux.Response, _ mux.Next) (*mux.Response, error) {
		err := c.Err()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		}
		if route := c.Route(); route != nil {
			attrs = append(attrs, slog.String("route", route.Path()))
		}

		var pe *mux.PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, slog.Bool("panic", true))
			if cfg.LogStack {
				attrs = append(attrs, slog.String("stack", string(pe.Stack)))
			}
		}

		logger.LogAttrs(c.Request.Context(), slog.LevelError, "request failed", attrs...)

		if cfg.Response != nil {
			if res := cfg.Response(c); res != nil {
				return res, nil
			}
		}

		return mux.Error(http.StatusInternalServerError), nil
	}
}
