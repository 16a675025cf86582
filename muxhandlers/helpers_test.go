package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

// textHandler returns a dispatch target responding with a fixed body.
func textHandler(status int, body string) mux.DispatchFunc {
	return func(*mux.Context) (*mux.Response, error) {
		return mux.Text(status, body), nil
	}
}

// newTestRouter registers mw for phase and a GET, POST and PUT route on /test.
func newTestRouter(t *testing.T, phase mux.Phase, mw mux.Middleware, target mux.Dispatchable) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	r.Use(phase, mw)
	r.Handle("/test", target).Method(http.MethodGet, http.MethodPost, http.MethodPut)
	require.NoError(t, r.Build())

	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
