package muxhandlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true. Use AllowOriginFunc for dynamic origin checks
// with credentials.
var ErrWildcardCredentials = errors.New("wildcard origin \"*\" cannot be used with AllowCredentials; use AllowOriginFunc instead")

// CORSConfig configures the CORS middleware behaviour.
//
// Spec references:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
//   - HTTP Vary:     https://www.rfc-editor.org/rfc/rfc9110#field.vary
type CORSConfig struct {
	// AllowedOrigins is a list of exact origin strings, "*" for wildcard,
	// or subdomain wildcard patterns like "https://*.example.com".
	AllowedOrigins []string

	// AllowOriginFunc is an optional dynamic callback invoked when the
	// origin does not match any entry in AllowedOrigins. Return true to allow.
	AllowOriginFunc func(origin string) bool

	// AllowedMethods overrides the set of methods advertised in preflight
	// and actual responses. When empty the methods of the routes matching
	// the request path are advertised.
	AllowedMethods []string

	// AllowedHeaders lists the headers the client may send in the actual
	// request. When empty the middleware reflects the
	// Access-Control-Request-Headers value. Use "*" to reflect all requested
	// headers.
	AllowedHeaders []string

	// ExposeHeaders lists the headers the browser may expose to client code.
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Positive values are sent as-is, negative values emit "0", zero omits
	// the header.
	MaxAge int

	// OptionsStatusCode overrides the HTTP status code for preflight responses.
	// When zero (default) the middleware uses 204 No Content.
	OptionsStatusCode int

	// OptionsPassthrough, when true, keeps the response of a route that
	// handles OPTIONS itself instead of replacing it with an empty preflight
	// response.
	OptionsPassthrough bool

	// AllowPrivateNetwork, when true, responds to
	// Access-Control-Request-Private-Network preflight headers with
	// Access-Control-Allow-Private-Network: true.
	AllowPrivateNetwork bool
}

// wildcardPattern represents a subdomain wildcard pattern split at the "*".
type wildcardPattern struct {
	prefix string
	suffix string
}

func (c *CORSConfig) hasWildcardOrigin() bool {
	return slices.Contains(c.AllowedOrigins, "*")
}

// corsPolicy is the validated form of CORSConfig.
type corsPolicy struct {
	cfg             CORSConfig
	exact           []string
	patterns        []wildcardPattern
	headersWildcard bool
	preflightStatus int
}

// CORSMiddleware implements the CORS protocol per the Fetch Standard.
//
// Preflight requests to paths without an OPTIONS route end up as 405 in the
// route-not-matched phase; CORSMiddleware registers a middleware for that
// phase on r which answers them. The returned middleware belongs to the
// sending-response phase and adds CORS headers to every response:
//
//	mw, err := muxhandlers.CORSMiddleware(r, muxhandlers.CORSConfig{AllowedOrigins: []string{"https://example.com"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mux.PhaseSendingResponse, mw)
//
// It returns an error if the configuration is invalid (e.g. wildcard origin
// combined with AllowCredentials).
func CORSMiddleware(r *mux.Router, cfg CORSConfig) (mux.MiddlewareFunc, error) {
	if cfg.hasWildcardOrigin() && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	exact, patterns, err := parseOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	p := &corsPolicy{
		cfg:             cfg,
		exact:           exact,
		patterns:        patterns,
		headersWildcard: slices.Contains(cfg.AllowedHeaders, "*"),
		preflightStatus: cfg.OptionsStatusCode,
	}
	if p.preflightStatus == 0 {
		p.preflightStatus = http.StatusNoContent
	}

	r.Use(mux.PhaseRouteNotMatched, mux.MiddlewareFunc(p.preflight))

	return p.headers, nil
}

// preflight answers preflight requests for paths that have routes but no
// OPTIONS route.
func (p *corsPolicy) preflight(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
	var mna *mux.MethodNotAllowedError
	if !isPreflight(c.Request) || !errors.As(c.MatchErr(), &mna) {
		return next(c, res)
	}

	origin := c.Request.Header.Get("Origin")
	if !p.allowed(origin) {
		return next(c, res)
	}

	out := mux.NewResponse(p.preflightStatus, nil)
	p.setOrigin(out.Header, origin)
	p.setPreflight(out.Header, c.Request, mna.Allowed)

	return next(c, out)
}

// headers adds CORS headers to an outgoing response.
func (p *corsPolicy) headers(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
	if res == nil {
		return next(c, res)
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}

	origin := c.Request.Header.Get("Origin")
	if origin == "" {
		if p.hasSpecificOrigins() {
			res.Header.Add("Vary", "Origin")
		}
		return next(c, res)
	}

	if res.Header.Get("Access-Control-Allow-Origin") != "" || !p.allowed(origin) {
		return next(c, res)
	}

	var methods []string
	if route := c.Route(); route != nil {
		methods = route.Methods()
	}

	if isPreflight(c.Request) && c.Route() != nil {
		if !p.cfg.OptionsPassthrough {
			res = mux.NewResponse(p.preflightStatus, nil)
		}
		p.setOrigin(res.Header, origin)
		p.setPreflight(res.Header, c.Request, methods)
		return next(c, res)
	}

	p.setOrigin(res.Header, origin)

	if len(p.cfg.AllowedMethods) > 0 {
		methods = p.cfg.AllowedMethods
	}
	if len(methods) > 0 {
		res.Header.Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
	}

	if len(p.cfg.ExposeHeaders) > 0 {
		res.Header.Set("Access-Control-Expose-Headers", strings.Join(p.cfg.ExposeHeaders, ","))
	}

	return next(c, res)
}

func (p *corsPolicy) hasSpecificOrigins() bool {
	return !p.cfg.hasWildcardOrigin() && (len(p.exact) > 0 || len(p.patterns) > 0 || p.cfg.AllowOriginFunc != nil)
}

func (p *corsPolicy) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if matchOrigin(strings.ToLower(origin), p.exact, p.patterns) {
		return true
	}
	return p.cfg.AllowOriginFunc != nil && p.cfg.AllowOriginFunc(origin)
}

// setOrigin sets Access-Control-Allow-Origin, Vary, and
// Access-Control-Allow-Credentials.
func (p *corsPolicy) setOrigin(h http.Header, origin string) {
	if p.cfg.hasWildcardOrigin() && !p.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}

	if p.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (p *corsPolicy) setPreflight(h http.Header, req *http.Request, discovered []string) {
	methods := p.cfg.AllowedMethods
	if len(methods) == 0 {
		methods = discovered
	}

	if len(methods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
	}

	reqHeaders := req.Header.Get("Access-Control-Request-Headers")
	switch {
	case p.headersWildcard:
		if reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		}
	case len(p.cfg.AllowedHeaders) > 0:
		h.Set("Access-Control-Allow-Headers", strings.Join(p.cfg.AllowedHeaders, ","))
	case reqHeaders != "":
		h.Set("Access-Control-Allow-Headers", reqHeaders)
	}

	if p.cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.cfg.MaxAge))
	} else if p.cfg.MaxAge < 0 {
		h.Set("Access-Control-Max-Age", "0")
	}

	if p.cfg.AllowPrivateNetwork && req.Header.Get("Access-Control-Request-Private-Network") == "true" {
		h.Set("Access-Control-Allow-Private-Network", "true")
		h.Add("Vary", "Access-Control-Request-Private-Network")
	}

	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// parseOrigins normalizes AllowedOrigins to lowercase and splits them into
// exact matches and wildcard patterns. Returns an error if a pattern contains
// multiple wildcards.
func parseOrigins(origins []string) ([]string, []wildcardPattern, error) {
	var exact []string
	var patterns []wildcardPattern

	for _, o := range origins {
		if o == "*" {
			exact = append(exact, o)
			continue
		}

		lower := strings.ToLower(o)

		if strings.Contains(lower, "*") {
			parts := strings.SplitN(lower, "*", 2)
			if strings.Contains(parts[1], "*") {
				return nil, nil, errors.New("origin pattern contains multiple wildcards: " + o)
			}

			patterns = append(patterns, wildcardPattern{
				prefix: parts[0],
				suffix: parts[1],
			})
		} else {
			exact = append(exact, lower)
		}
	}

	return exact, patterns, nil
}

// matchOrigin reports whether originLower matches any exact origin or wildcard pattern.
func matchOrigin(originLower string, exactOrigins []string, patterns []wildcardPattern) bool {
	for _, o := range exactOrigins {
		if o == "*" || o == originLower {
			return true
		}
	}

	for _, wp := range patterns {
		if len(originLower) >= len(wp.prefix)+len(wp.suffix) &&
			strings.HasPrefix(originLower, wp.prefix) &&
			strings.HasSuffix(originLower, wp.suffix) {
			return true
		}
	}

	return false
}
