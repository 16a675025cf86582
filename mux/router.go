package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
)

// Dispatchable is the application target a route dispatches to. It must
// return a response or an error.
type Dispatchable interface {
	Invoke(c *Context) (*Response, error)
}

// DispatchFunc is an adapter to allow the use of ordinary functions as
// dispatch targets.
type DispatchFunc func(c *Context) (*Response, error)

// Invoke implements Dispatchable.
func (f DispatchFunc) Invoke(c *Context) (*Response, error) {
	return f(c)
}

// Resolver turns a target descriptor into a Dispatchable. It is the
// boundary to an external dependency container.
type Resolver interface {
	Resolve(ctx context.Context, target string) (Dispatchable, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as
// resolvers.
type ResolverFunc func(ctx context.Context, target string) (Dispatchable, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, target string) (Dispatchable, error) {
	return f(ctx, target)
}

// Router compiles route definitions into a table and drives each request
// through the phase pipeline.
//
// Routes are registered, then Build freezes them into a Table. After Build
// the router holds no mutable shared state; everything a request changes
// lives on its own Context.
//
//	r := mux.NewRouter()
//	r.HandleFunc("/users/{id:num}[/edit]", showUser).Method(http.MethodGet)
//	if err := r.Build(); err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", r)
type Router struct {
	// NotFoundResponse builds the 404 Not Found response.
	// If nil, a plain text response is used.
	NotFoundResponse func(c *Context) *Response

	// MethodNotAllowedResponse builds the 405 Method Not Allowed response.
	// If nil, a plain text response is used. Per RFC 9110 Section 15.5.6 the
	// Allow header is always set on the result.
	MethodNotAllowedResponse func(c *Context, allowed []string) *Response

	// InternalErrorResponse builds the fallback response when an error is
	// not handled by the throwable-caught phase outside debug mode.
	// If nil, a plain text 500 response is used.
	InternalErrorResponse func(c *Context) *Response

	defs     []*Definition
	table    *Table
	routeMW  map[*Route][phaseCount][]Middleware
	global   [phaseCount][]Middleware
	registry Registry
	resolver Resolver
	logger   *slog.Logger
	debug    bool
}

// NewRouter returns a new router instance.
func NewRouter() *Router {
	return &Router{
		registry: make(Registry),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// Debug toggles debug mode. In debug mode an error that no throwable-caught
// middleware turns into a response is re-panicked instead of being hidden
// behind a generic 500.
func (r *Router) Debug(value bool) *Router {
	r.debug = value
	return r
}

// Logger sets the structured logger.
func (r *Router) Logger(l *slog.Logger) *Router {
	if l != nil {
		r.logger = l
	}
	return r
}

// Registry adds named middleware that route definitions refer to by id.
func (r *Router) Registry(reg Registry) *Router {
	for id, mw := range reg {
		r.registry[id] = mw
	}
	return r
}

// Resolver sets the resolver for route targets declared by descriptor.
func (r *Router) Resolver(res Resolver) *Router {
	r.resolver = res
	return r
}

// Use appends middleware that runs for every request in the given phase,
// before any middleware declared by the matched route.
func (r *Router) Use(phase Phase, mw ...Middleware) *Router {
	if phase.valid() {
		r.global[phase] = append(r.global[phase], mw...)
	}
	return r
}

// Handle registers a route dispatching to h and returns its definition for
// further configuration. Methods default to GET when none are added.
func (r *Router) Handle(path string, h Dispatchable) *Definition {
	def := &Definition{Path: path, Handler: h}
	r.defs = append(r.defs, def)
	return def
}

// HandleFunc registers a route dispatching to f.
func (r *Router) HandleFunc(path string, f func(c *Context) (*Response, error)) *Definition {
	return r.Handle(path, DispatchFunc(f))
}

// Add registers route definitions, typically produced by a declarative
// source.
func (r *Router) Add(defs ...Definition) *Router {
	for i := range defs {
		def := defs[i]
		r.defs = append(r.defs, &def)
	}
	return r
}

// Definitions returns copies of the registered definitions.
func (r *Router) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, *d)
	}
	return out
}

// Build compiles every registered definition and freezes the route table.
// It must be called before the router serves requests; any error means the
// route configuration is broken and the application should not start.
func (r *Router) Build() error {
	routes := make([]*Route, 0, len(r.defs))
	for _, def := range r.defs {
		d := *def
		if len(d.Methods) == 0 {
			d.Methods = []string{http.MethodGet}
		}

		route, err := Compile(d)
		if err != nil {
			return err
		}
		routes = append(routes, route)
	}

	t, err := NewTable(routes...)
	if err != nil {
		return err
	}

	return r.LoadTable(t)
}

// LoadTable installs a prebuilt table, for example one read from a cache,
// and resolves the middleware its routes declare.
func (r *Router) LoadTable(t *Table) error {
	routeMW := make(map[*Route][phaseCount][]Middleware, t.Len())

	for _, route := range t.routes {
		if route.handler == nil {
			if route.target == "" {
				return fmt.Errorf("%w: %q", ErrNoTarget, route.path)
			}
			if r.resolver == nil {
				return fmt.Errorf("%w: route %q targets %q", ErrNoResolver, route.path, route.target)
			}
		}

		var resolved [phaseCount][]Middleware
		for phase := Phase(0); phase < phaseCount; phase++ {
			mw, err := r.registry.Resolve(route.middleware[phase]...)
			if err != nil {
				return fmt.Errorf("%w in %s of route %q", err, phase, route.path)
			}
			resolved[phase] = mw
		}
		routeMW[route] = resolved

		r.logger.Debug("route registered",
			slog.String("path", route.path),
			slog.Any("methods", route.methods),
			slog.String("name", route.name),
			slog.String("regex", route.Regex()),
		)
	}

	r.table = t
	r.routeMW = routeMW

	return nil
}

// Table returns the frozen route table, or nil before Build.
func (r *Router) Table() *Table {
	return r.table
}

// URL builds the path of the named route.
func (r *Router) URL(name string, values map[string]string) (string, error) {
	if r.table == nil {
		return "", ErrNotBuilt
	}
	return r.table.URL(name, values)
}

// NewContext returns a Context for req whose chains hold the router's
// global middleware.
func (r *Router) NewContext(req *http.Request) *Context {
	c := NewContext(req)
	for phase := Phase(0); phase < phaseCount; phase++ {
		c.chains[phase].Add(r.global[phase]...)
	}
	return c
}

// Dispatch resolves the request to a route and runs it through the
// route-matched, dispatch and route-dispatched steps, or through the
// route-not-matched phase when nothing matched.
//
// The path is percent-decoded and cleaned before matching: dot segments are
// resolved and repeated or trailing slashes dropped, so "/static/../admin"
// is dispatched to the "/admin" route without a redirect. Invalid
// percent-encoding answers 400 through the route-not-matched phase.
//
// Errors are returned to the caller, which owns the throwable-caught,
// sending-response and terminated phases; ServeHTTP is such a caller.
func (r *Router) Dispatch(c *Context) (*Response, error) {
	if r.table == nil {
		return nil, ErrNotBuilt
	}

	path, err := requestPath(c.Request.URL)
	if err != nil {
		c.matchErr = err
		return c.Chain(PhaseRouteNotMatched).Run(c, Error(http.StatusBadRequest))
	}

	m, err := r.table.Resolve(path, c.Request.Method)
	if err != nil {
		c.matchErr = err
		return c.Chain(PhaseRouteNotMatched).Run(c, r.notMatched(c, err))
	}

	c.setMatch(m)
	mw := r.routeMW[m.Route]
	for phase := Phase(0); phase < phaseCount; phase++ {
		c.chains[phase].Add(mw[phase]...)
	}

	res, err := c.Chain(PhaseRouteMatched).Run(c, nil)
	if err != nil || res != nil {
		return res, err
	}

	target, err := r.dispatchable(c, m.Route)
	if err != nil {
		return nil, err
	}

	res, err = target.Invoke(c)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidDispatchResult, c.Request.Method, m.Route.path)
	}

	return c.Chain(PhaseRouteDispatched).Run(c, res)
}

// ServeHTTP is the outer request boundary. It dispatches the request,
// translates errors and panics through the throwable-caught phase, runs the
// sending-response phase, writes the response and finally runs the
// terminated phase.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	c := r.NewContext(req)

	res, err := protect(func() (*Response, error) {
		res, err := r.Dispatch(c)
		if err != nil {
			return nil, err
		}
		if res, err = c.Chain(PhaseSendingResponse).Run(c, res); err == nil && res == nil {
			err = ErrInvalidDispatchResult
		}
		return res, err
	})
	if err != nil {
		res = r.handleError(c, err)
		sent, serr := protect(func() (*Response, error) {
			return c.Chain(PhaseSendingResponse).Run(c, res)
		})
		switch {
		case serr != nil:
			r.logger.Warn("sending-response phase failed on error response", slog.Any("error", serr))
		case sent != nil:
			res = sent
		}
	}

	if err := res.Send(w); err != nil {
		r.logger.Warn("response write failed", slog.String("path", req.URL.Path), slog.Any("error", err))
	}

	if _, err := protect(func() (*Response, error) {
		return c.Chain(PhaseTerminated).Run(c, res)
	}); err != nil {
		r.logger.Warn("terminated phase failed", slog.String("path", req.URL.Path), slog.Any("error", err))
	}
}

// handleError runs the throwable-caught phase for err and returns the
// response to send. Outside debug mode an unhandled error becomes a generic
// 500; in debug mode it is re-panicked.
func (r *Router) handleError(c *Context, err error) *Response {
	c.err = err

	res, herr := protect(func() (*Response, error) {
		return c.Chain(PhaseThrowableCaught).Run(c, nil)
	})
	if herr != nil {
		r.logger.Error("throwable-caught phase failed", slog.Any("error", herr))
		res = nil
	}

	if res != nil {
		return res
	}

	r.logger.Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Any("error", err),
	)

	if r.debug {
		panic(err)
	}

	if r.InternalErrorResponse != nil {
		if res := r.InternalErrorResponse(c); res != nil {
			return res
		}
	}
	return Error(http.StatusInternalServerError)
}

// notMatched builds the 404 or 405 fallback response for a resolve error.
func (r *Router) notMatched(c *Context, err error) *Response {
	var mna *MethodNotAllowedError
	if errors.As(err, &mna) {
		var res *Response
		if r.MethodNotAllowedResponse != nil {
			res = r.MethodNotAllowedResponse(c, mna.Allowed)
		}
		if res == nil {
			res = Error(http.StatusMethodNotAllowed)
		}
		if res.Header == nil {
			res.Header = make(http.Header)
		}
		res.Header.Set("Allow", strings.Join(mna.Allowed, ", "))
		return res
	}

	if r.NotFoundResponse != nil {
		if res := r.NotFoundResponse(c); res != nil {
			return res
		}
	}
	return Error(http.StatusNotFound)
}

// dispatchable returns the target of route, resolving its descriptor when
// no handler is attached directly.
func (r *Router) dispatchable(c *Context, route *Route) (Dispatchable, error) {
	if route.handler != nil {
		return route.handler, nil
	}
	if r.resolver == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoResolver, route.target)
	}

	target, err := r.resolver.Resolve(c.Request.Context(), route.target)
	if err != nil {
		return nil, fmt.Errorf("mux: resolve target %q: %w", route.target, err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoResolver, route.target)
	}
	return target, nil
}

// protect runs fn and converts a panic into a *PanicError.
// http.ErrAbortHandler is re-panicked so net/http can abort the response.
func protect(fn func() (*Response, error)) (res *Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				panic(v)
			}
			res = nil
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// requestPath percent-decodes the request path and brings it to the
// canonical form routes are compiled to.
func requestPath(u *url.URL) (string, error) {
	p := u.Path
	if u.RawPath != "" {
		var err error
		if p, err = url.PathUnescape(u.RawPath); err != nil {
			return "", err
		}
	}
	return trimTrailingSlash(cleanPath(p)), nil
}
