package muxhandlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vitalvas/waypoint/mux"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored on the Context by
// RequestIDMiddleware. Returns an empty string if no ID is present.
func RequestIDFromContext(c *mux.Context) string {
	if v, ok := c.Get(requestIDKey{}); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}

	return ""
}

// RequestIDConfig configures the Request ID middleware behaviour.
type RequestIDConfig struct {
	// HeaderName overrides the header used to propagate the request ID.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc is an optional callback that returns a new unique ID.
	// It receives the current request, allowing ID generation based on
	// request context. Defaults to GenerateUUIDv4.
	GenerateFunc func(r *http.Request) string

	// TrustIncoming, when true, reuses an existing request ID from the
	// incoming request header instead of generating a new one.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that assigns a request ID once
// per request and stores it on the Context.
//
// In the route-matched phase the ID becomes available to the dispatch
// target. In any phase that carries a response (sending-response being the
// usual one) the ID is also written to the response header, including for
// 404 and 500 responses.
//
//	mw := muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{})
//	r.Use(mux.PhaseRouteMatched, mw)
//	r.Use(mux.PhaseSendingResponse, mw)
func RequestIDMiddleware(cfg RequestIDConfig) mux.MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		id := RequestIDFromContext(c)
		if id == "" {
			if trustIncoming {
				id = c.Request.Header.Get(headerName)
			}

			if id == "" {
				id = generate(c.Request)
			}

			if id != "" {
				c.Request.Header.Set(headerName, id)
				c.Set(requestIDKey{}, id)
			}
		}

		if res != nil && id != "" {
			if res.Header == nil {
				res.Header = make(http.Header)
			}
			res.Header.Set(headerName, id)
		}

		return next(c, res)
	}
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4(_ *http.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7(_ *http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
