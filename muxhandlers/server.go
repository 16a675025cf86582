package muxhandlers

import (
	"net/http"
	"os"

	"github.com/vitalvas/waypoint/mux"
)

// ServerConfig configures the Server middleware behaviour.
type ServerConfig struct {
	// Hostname is the value written to the X-Server-Hostname response
	// header. Resolution order: Hostname field, then HostnameEnv
	// environment variable, then os.Hostname.
	Hostname string

	// HostnameEnv is a list of environment variable names checked in
	// order (e.g. ["POD_NAME", "HOSTNAME"]). The first non-empty
	// value is used.
	HostnameEnv []string
}

// ServerMiddleware returns a sending-response middleware that sets server
// identification headers. The hostname is resolved once when the middleware
// is created. It returns an error if the hostname cannot be determined.
func ServerMiddleware(cfg ServerConfig) (mux.MiddlewareFunc, error) {
	hostname := cfg.Hostname

	if hostname == "" {
		for _, env := range cfg.HostnameEnv {
			if v, ok := os.LookupEnv(env); ok && v != "" {
				hostname = v
				break
			}
		}
	}

	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, err
		}

		hostname = h
	}

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		if res != nil {
			if res.Header == nil {
				res.Header = make(http.Header)
			}
			res.Header.Set("X-Server-Hostname", hostname)
		}

		return next(c, res)
	}, nil
}
