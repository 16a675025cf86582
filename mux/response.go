package mux

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Response is the value dispatch targets and phase middleware agree on.
// The router only inspects Status to build its own fallbacks.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns a response with the given status and body.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status: status,
		Header: make(http.Header),
		Body:   body,
	}
}

// Text returns a text/plain response.
func Text(status int, body string) *Response {
	res := NewResponse(status, []byte(body))
	res.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return res
}

// JSON encodes v as JSON with the given status code. The Content-Type header
// is set to "application/json". If encoding fails, a 500 Internal Server
// Error response is returned instead.
func JSON(status int, v any) *Response {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return Error(http.StatusInternalServerError)
	}

	res := NewResponse(status, buf.Bytes())
	res.Header.Set("Content-Type", "application/json")
	return res
}

// Error returns a plain text response carrying the standard status text.
func Error(status int) *Response {
	res := Text(status, http.StatusText(status)+"\n")
	res.Header.Set("X-Content-Type-Options", "nosniff")
	return res
}

// StatusCode returns the status, defaulting to 200 OK when unset.
func (res *Response) StatusCode() int {
	if res.Status == 0 {
		return http.StatusOK
	}
	return res.Status
}

// Send writes headers, status and body to w.
func (res *Response) Send(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range res.Header {
		h[k] = v
	}
	w.WriteHeader(res.StatusCode())
	if len(res.Body) == 0 {
		return nil
	}
	_, err := w.Write(res.Body)
	return err
}
