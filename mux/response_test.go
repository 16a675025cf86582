package mux

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseConstructors(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		res := Text(http.StatusAccepted, "hello")
		assert.Equal(t, http.StatusAccepted, res.Status)
		assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
		assert.Equal(t, "hello", string(res.Body))
	})

	t.Run("json", func(t *testing.T) {
		res := JSON(http.StatusOK, map[string]int{"n": 1})
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"n":1}`, string(res.Body))
	})

	t.Run("json encoding failure", func(t *testing.T) {
		res := JSON(http.StatusOK, math.Inf(1))
		assert.Equal(t, http.StatusInternalServerError, res.Status)
	})

	t.Run("error", func(t *testing.T) {
		res := Error(http.StatusNotFound)
		assert.Equal(t, http.StatusNotFound, res.Status)
		assert.Equal(t, "Not Found\n", string(res.Body))
		assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	})

	t.Run("zero status defaults to ok", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, (&Response{}).StatusCode())
		assert.Equal(t, http.StatusNoContent, (&Response{Status: http.StatusNoContent}).StatusCode())
	})
}

func TestResponseSend(t *testing.T) {
	t.Run("writes header status and body", func(t *testing.T) {
		res := Text(http.StatusCreated, "made")
		res.Header.Add("X-Multi", "a")
		res.Header.Add("X-Multi", "b")

		w := httptest.NewRecorder()
		require.NoError(t, res.Send(w))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "made", w.Body.String())
		assert.Equal(t, []string{"a", "b"}, w.Header().Values("X-Multi"))
	})

	t.Run("nil header and empty body", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, (&Response{}).Send(w))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, w.Body.Len())
	})

	t.Run("write error is returned", func(t *testing.T) {
		err := Text(http.StatusOK, "x").Send(failingWriter{httptest.NewRecorder()})
		assert.Error(t, err)
	})
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
