package muxhandlers

import (
	"log/slog"
	"time"

	"github.com/vitalvas/waypoint/mux"
)

// AccessLogConfig configures the Access Log middleware behaviour.
type AccessLogConfig struct {
	// Logger receives one record per request. When nil, slog.Default is used.
	Logger *slog.Logger

	// Level is the level of successful requests. Responses with a 5xx status
	// are always logged at error level and 4xx at warn level.
	Level slog.Level

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// AccessLogMiddleware returns a terminated middleware that writes one
// structured record per request after the response was sent. The record
// carries the method, path, matched route pattern, status, body size,
// duration and, when RequestIDMiddleware ran, the request ID.
func AccessLogMiddleware(cfg AccessLogConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		status := 0
		size := 0
		if res != nil {
			status = res.StatusCode()
			size = len(res.Body)
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("size", size),
			slog.Duration("duration", now().Sub(c.Started())),
		}

		if route := c.Route(); route != nil {
			attrs = append(attrs, slog.String("route", route.Path()))
			if name := route.Name(); name != "" {
				attrs = append(attrs, slog.String("route_name", name))
			}
		}

		if id := RequestIDFromContext(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		level := cfg.Level
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)

		return next(c, res)
	}
}
