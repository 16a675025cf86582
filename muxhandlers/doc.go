// Package muxhandlers provides phase middleware for the mux router.
//
// Every middleware documents the phase it belongs to. A middleware built for
// the route-matched phase may short-circuit dispatch; one built for the
// sending-response phase decorates every outgoing response, including the
// 404, 405 and 500 fallbacks.
//
// # Basic Auth Middleware
//
// BasicAuthMiddleware implements HTTP Basic Authentication per RFC 7617.
// Credentials can be validated via a dynamic callback or a static map.
// Static credential comparison uses constant-time comparison to prevent
// timing attacks.
//
//	mw, err := muxhandlers.BasicAuthMiddleware(muxhandlers.BasicAuthConfig{
//	    Realm: "My App",
//	    Credentials: map[string]string{
//	        "admin": "secret",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Registry(mux.Registry{"auth": mw})
//	r.HandleFunc("/admin", admin).Use(mux.PhaseRouteMatched, "auth")
//
// # CORS Middleware
//
// CORSMiddleware implements the CORS protocol per the Fetch Standard. It
// answers preflight requests from the route-not-matched phase and returns a
// sending-response middleware for the actual response headers.
//
//	mw, err := muxhandlers.CORSMiddleware(r, muxhandlers.CORSConfig{
//	    AllowedOrigins:   []string{"https://example.com"},
//	    AllowCredentials: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mux.PhaseSendingResponse, mw)
//
// # Handler Wrappers
//
// ProxyHeadersHandler and MethodOverrideHandler rewrite the request before
// the router matches it, so they wrap the router as an http.Handler instead
// of joining a phase. A method override therefore takes part in the 404 and
// 405 decision like a real method would.
//
//	proxy, _ := muxhandlers.ProxyHeadersHandler(muxhandlers.ProxyHeadersConfig{})
//	override, _ := muxhandlers.MethodOverrideHandler(muxhandlers.MethodOverrideConfig{})
//	http.ListenAndServe(":8080", muxhandlers.Wrap(r, proxy, override))
//
// # Observability
//
// AccessLogMiddleware and Metrics.Middleware belong to the terminated phase
// and see the response that was actually written. RecoveryMiddleware
// belongs to the throwable-caught phase and logs failures with log/slog.
//
//	m, err := muxhandlers.NewMetrics(muxhandlers.MetricsConfig{Namespace: "app"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mux.PhaseTerminated, m.Middleware(), muxhandlers.AccessLogMiddleware(muxhandlers.AccessLogConfig{}))
//	r.Use(mux.PhaseThrowableCaught, muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{}))
package muxhandlers
