package muxhandlers

import "net/http"

// HandlerWrapper decorates the http.Handler in front of a router. Wrappers
// run before the path is matched, so they may rewrite the method, host or
// peer address the route table and phase middleware see.
type HandlerWrapper func(next http.Handler) http.Handler

// Wrap applies wrappers to h. The first wrapper is the outermost one and
// sees the request first.
func Wrap(h http.Handler, wrappers ...HandlerWrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] != nil {
			h = wrappers[i](h)
		}
	}
	return h
}
