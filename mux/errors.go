package mux

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCompile is wrapped by every error returned while compiling a route
// definition. Compile errors are registration-time failures and should
// abort startup.
var ErrCompile = errors.New("mux: route compilation failed")

// Compile-time errors for optional segments and parameter constraints.
var (
	ErrInvalidOptionalPart       = fmt.Errorf("%w: empty optional segment", ErrCompile)
	ErrOptionalSegmentsMismatch  = fmt.Errorf("%w: number of opening and closing optional brackets does not match", ErrCompile)
	ErrOptionalSegmentsMisplaced = fmt.Errorf("%w: optional segments can only occur at the end of a route", ErrCompile)
	ErrRegexRequired             = fmt.Errorf("%w: parameter requires a constraint", ErrCompile)
	ErrInvalidMethod             = fmt.Errorf("%w: invalid request method", ErrCompile)
	ErrNoMethods                 = fmt.Errorf("%w: route has no methods", ErrCompile)
)

// Table and router configuration errors.
var (
	ErrDuplicateRoute    = errors.New("mux: duplicate route")
	ErrDuplicateName     = errors.New("mux: duplicate route name")
	ErrUnknownMiddleware = errors.New("mux: unknown middleware")
	ErrNotBuilt          = errors.New("mux: router is not built")
	ErrStaleCache        = errors.New("mux: route cache is stale")
)

// ErrNotFound is returned when no route matches the request path. Translated
// to 404 Not Found per RFC 9110 Section 15.5.5.
var ErrNotFound = errors.New("no matching route was found")

// ErrInvalidDispatchResult is returned when a dispatch target returns neither
// a response nor an error. This is a programming error in the target.
var ErrInvalidDispatchResult = errors.New("mux: dispatch target returned no response")

// ErrNoTarget is returned when a route has neither a handler nor a target
// descriptor.
var ErrNoTarget = errors.New("mux: route has no dispatch target")

// ErrNoResolver is returned when a route names a target but the router has
// no Resolver to turn it into a Dispatchable.
var ErrNoResolver = errors.New("mux: no resolver for dispatch target")

// InvalidRoutePathError reports a malformed path or a token that does not
// correspond to a usable parameter.
type InvalidRoutePathError struct {
	Path   string
	Token  string
	Reason string
}

func (e *InvalidRoutePathError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("mux: invalid route path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("mux: invalid route path %q: %s %q", e.Path, e.Reason, e.Token)
}

func (e *InvalidRoutePathError) Unwrap() error {
	return ErrCompile
}

// MethodNotAllowedError is returned when the path matches at least one route
// but none of them accepts the request method. Translated to 405 Method Not
// Allowed per RFC 9110 Section 15.5.6.
type MethodNotAllowedError struct {
	Method  string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s is not allowed, allowed: %s", e.Method, strings.Join(e.Allowed, ", "))
}

// PanicError wraps a value recovered from a panic during dispatch.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("mux: panic during dispatch: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
