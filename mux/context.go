package mux

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// contextKey is an unexported type for the single context key.
type contextKey struct{}

// ctxKey is the context key under which the request Context is stored.
var ctxKey = contextKey{}

// Context carries the state of one request through the pipeline: the
// matched route, its captured values, request-scoped values and the live
// phase chains. A Context is created per request and never shared.
type Context struct {
	// Request is the incoming request. Its context holds the Context itself
	// so handlers that only see *http.Request can reach it via FromContext.
	Request *http.Request

	match    *Match
	matchErr error
	err      error
	started  time.Time
	values   map[any]any
	chains   [phaseCount]*Chain
}

// NewContext returns a Context for req with empty phase chains.
func NewContext(req *http.Request) *Context {
	c := &Context{started: time.Now()}
	for phase := Phase(0); phase < phaseCount; phase++ {
		c.chains[phase] = NewChain(phase)
	}
	c.Request = req.WithContext(context.WithValue(req.Context(), ctxKey, c))
	return c
}

// FromContext returns the Context stored in ctx, or nil.
func FromContext(ctx context.Context) *Context {
	c, _ := ctx.Value(ctxKey).(*Context)
	return c
}

// Vars returns the captured route values for the request, if any.
func Vars(r *http.Request) map[string]string {
	if c := FromContext(r.Context()); c != nil {
		return c.Vars()
	}
	return nil
}

// CurrentRoute returns the matched route for the request, if any.
func CurrentRoute(r *http.Request) *Route {
	if c := FromContext(r.Context()); c != nil {
		return c.Route()
	}
	return nil
}

// Route returns the matched route, or nil before matching or when nothing
// matched.
func (c *Context) Route() *Route {
	if c.match == nil {
		return nil
	}
	return c.match.Route
}

// Match returns the match result, or nil.
func (c *Context) Match() *Match {
	return c.match
}

// Vars returns the captured values keyed by parameter name.
func (c *Context) Vars() map[string]string {
	if c.match == nil {
		return nil
	}
	return c.match.Vars
}

// Param returns the value of a single captured parameter and whether it
// was present.
func (c *Context) Param(name string) (string, bool) {
	if c.match == nil {
		return "", false
	}
	v, ok := c.match.Vars[name]
	return v, ok
}

// Args returns the captured values in parameter declaration order.
func (c *Context) Args() []string {
	if c.match == nil {
		return nil
	}
	return c.match.Values
}

// MatchErr returns why the request did not match a route: ErrNotFound, a
// *MethodNotAllowedError or a path decoding error. It is nil once a route
// matched.
func (c *Context) MatchErr() error {
	return c.matchErr
}

// Err returns the error being handled by the throwable-caught phase.
func (c *Context) Err() error {
	return c.err
}

// Started returns the time the Context was created.
func (c *Context) Started() time.Time {
	return c.started
}

// Set stores a request-scoped value, such as a resolved dependency.
func (c *Context) Set(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

// Get returns a request-scoped value stored with Set.
func (c *Context) Get(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Chain returns the request's own chain for phase. Middleware may add to
// the chain of a later phase to schedule work for the same request.
func (c *Context) Chain(phase Phase) *Chain {
	if !phase.valid() {
		return nil
	}
	return c.chains[phase]
}

// BindJSON decodes the request body as JSON into v.
// Unknown fields are rejected and exactly one JSON value must be present.
func (c *Context) BindJSON(v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data after JSON value")
	}

	return nil
}

// setMatch publishes the matched route on the Context.
func (c *Context) setMatch(m *Match) {
	c.match = m
}
