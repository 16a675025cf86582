package muxhandlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

func TestRequestSizeLimitMiddleware(t *testing.T) {
	readBody := mux.DispatchFunc(func(c *mux.Context) (*mux.Response, error) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return mux.Error(http.StatusRequestEntityTooLarge), nil
			}
			return nil, err
		}
		return mux.Text(http.StatusOK, string(body)), nil
	})

	mw, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: 8})
	require.NoError(t, err)

	r := newTestRouter(t, mux.PhaseRouteMatched, mw, readBody)

	t.Run("within limit", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("12345678")))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "12345678", w.Body.String())
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("123456789")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("unknown length over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", io.NopCloser(strings.NewReader("0123456789abcdef")))
		req.ContentLength = -1

		w := do(r, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("no body", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestSizeLimitMiddlewareInvalidSize(t *testing.T) {
	for _, size := range []int64{0, -1} {
		_, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: size})
		assert.ErrorIs(t, err, ErrInvalidMaxSize)
	}
}
