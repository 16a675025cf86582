package mux

import (
	"fmt"
	"slices"
)

// Phase names one stage of the request pipeline.
type Phase int

// Pipeline phases in the order a request passes through them.
const (
	// PhaseRouteMatched runs after a route matched and before the dispatch
	// target. A response returned here skips the target.
	PhaseRouteMatched Phase = iota
	// PhaseRouteDispatched runs over the response of the dispatch target.
	PhaseRouteDispatched
	// PhaseRouteNotMatched runs over the 400/404/405 fallback response.
	PhaseRouteNotMatched
	// PhaseThrowableCaught runs when an error escapes matching or dispatch.
	PhaseThrowableCaught
	// PhaseSendingResponse runs right before the response is written.
	PhaseSendingResponse
	// PhaseTerminated runs after the response was written.
	PhaseTerminated

	phaseCount
)

var phaseNames = [phaseCount]string{
	PhaseRouteMatched:    "route_matched",
	PhaseRouteDispatched: "route_dispatched",
	PhaseRouteNotMatched: "route_not_matched",
	PhaseThrowableCaught: "throwable_caught",
	PhaseSendingResponse: "sending_response",
	PhaseTerminated:      "terminated",
}

// Phases returns all phases in pipeline order.
func Phases() []Phase {
	return []Phase{
		PhaseRouteMatched,
		PhaseRouteDispatched,
		PhaseRouteNotMatched,
		PhaseThrowableCaught,
		PhaseSendingResponse,
		PhaseTerminated,
	}
}

func (p Phase) valid() bool {
	return p >= 0 && p < phaseCount
}

func (p Phase) String() string {
	if !p.valid() {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase returns the phase with the given name.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("mux: unknown phase %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("mux: unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Next invokes the remainder of a phase chain.
type Next func(c *Context, res *Response) (*Response, error)

// Middleware is one link of a phase chain.
//
// A middleware either calls next and returns what the rest of the chain
// produces, or returns its own response without calling next, which ends
// the chain. In the route-matched phase res is nil and a non-nil result
// short-circuits dispatch; in the other phases res is the response produced
// so far and the result replaces it.
type Middleware interface {
	Handle(c *Context, res *Response, next Next) (*Response, error)
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as
// phase middleware.
type MiddlewareFunc func(c *Context, res *Response, next Next) (*Response, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(c *Context, res *Response, next Next) (*Response, error) {
	return f(c, res, next)
}

// Chain is an ordered, append-only list of middleware for one phase of one
// request. Chains are created fresh for every request and must not be
// shared across requests.
type Chain struct {
	phase    Phase
	handlers []Middleware
}

// NewChain returns a chain for the phase holding a copy of handlers.
func NewChain(phase Phase, handlers ...Middleware) *Chain {
	return &Chain{phase: phase, handlers: slices.Clone(handlers)}
}

// Phase returns the phase the chain belongs to.
func (ch *Chain) Phase() Phase {
	return ch.phase
}

// Add appends middleware to the end of the chain.
func (ch *Chain) Add(handlers ...Middleware) {
	ch.handlers = append(ch.handlers, handlers...)
}

// Len returns the number of middleware in the chain.
func (ch *Chain) Len() int {
	return len(ch.handlers)
}

// Run invokes the chain in registration order starting with res. When every
// middleware forwards, the result is res unchanged.
func (ch *Chain) Run(c *Context, res *Response) (*Response, error) {
	return ch.next(0)(c, res)
}

// next returns the continuation starting at index i. The cursor is captured
// by value so a middleware calling next twice re-runs the same tail.
func (ch *Chain) next(i int) Next {
	return func(c *Context, res *Response) (*Response, error) {
		if i >= len(ch.handlers) {
			return res, nil
		}
		return ch.handlers[i].Handle(c, res, ch.next(i+1))
	}
}

// Registry maps middleware identifiers used in route definitions to
// middleware instances.
type Registry map[string]Middleware

// Resolve returns the middleware for the identifiers in order.
func (reg Registry) Resolve(ids ...string) ([]Middleware, error) {
	out := make([]Middleware, 0, len(ids))
	for _, id := range ids {
		mw, ok := reg[id]
		if !ok || mw == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMiddleware, id)
		}
		out = append(out, mw)
	}
	return out, nil
}
