package muxhandlers

import (
	"errors"
	"net/http"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidMaxSize is returned when RequestSizeLimitConfig.MaxBytes is not
// greater than zero.
var ErrInvalidMaxSize = errors.New("request size limit: max size must be greater than zero")

// RequestSizeLimitConfig configures the Request Size Limit middleware behaviour.
type RequestSizeLimitConfig struct {
	// MaxBytes is the maximum allowed request body size in bytes.
	// Must be greater than zero.
	MaxBytes int64
}

// RequestSizeLimitMiddleware returns a route-matched middleware that limits
// the size of incoming request bodies. A declared Content-Length above the
// limit short-circuits with 413 Content Too Large; otherwise the body is
// wrapped with http.MaxBytesReader so that reading past the limit fails with
// *http.MaxBytesError.
//
// It returns ErrInvalidMaxSize if MaxBytes is not greater than zero.
func RequestSizeLimitMiddleware(cfg RequestSizeLimitConfig) (mux.MiddlewareFunc, error) {
	if cfg.MaxBytes <= 0 {
		return nil, ErrInvalidMaxSize
	}

	maxBytes := cfg.MaxBytes

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		if c.Request.ContentLength > maxBytes {
			return mux.Error(http.StatusRequestEntityTooLarge), nil
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(nil, c.Request.Body, maxBytes)
		}

		return next(c, res)
	}, nil
}
