// Package mux compiles declarative route definitions into a frozen route
// table and dispatches requests through an ordered, short-circuitable
// pipeline of phase middleware.
//
// The package implements routing semantics based on:
//   - RFC 9110 (HTTP Semantics)
//   - RFC 3986 (URIs)
//
// # Path Syntax
//
// Routes have parameters enclosed in curly braces, optionally followed by a
// colon and a constraint, and optional trailing segments in square brackets:
//
//	/users/{id:num}
//	/users/{id:num}[/edit]
//	/archive[/{year:\d{4}}[/{month:\d{2}}]]
//
// Optional segments may only appear as a suffix of the path; "/a[/b]/c" is
// rejected with ErrOptionalSegmentsMisplaced. A path with n optional
// segments compiles into n+1 variants ("/a[/b][/c]" matches "/a", "/a/b"
// and "/a/b/c").
//
// A token without an inline constraint must refer to a declared parameter:
//
//	r.HandleFunc("/posts/{slug}", showPost).Param("slug", "slug")
//
// # Constraint Aliases
//
// Instead of writing full regex patterns, constraints may name an alias:
//
//	num                  - \d+
//	slug                 - [a-zA-Z0-9-]+
//	alpha                - [a-zA-Z]+
//	alpha-lowercase      - [a-z]+
//	alpha-uppercase      - [A-Z]+
//	alpha-num            - [a-zA-Z0-9]+
//	alpha-num-underscore - \w+
//	uuid, int, float, date, hex
//
// If the text after the colon is not a known alias, it is treated as a raw
// regular expression.
//
// # Route Table
//
// Compile turns a Definition into an immutable Route; NewTable indexes
// routes into a static map, an ordered dynamic list and a named map. Static
// routes win over dynamic ones. Among dynamic routes the first registered
// match wins, so registration order is significant: register specific
// routes before general ones.
//
//	t := mux.MustTable(
//	    mux.MustCompile(mux.Definition{Path: "/users/me", Methods: []string{"GET"}, Target: "users.me"}),
//	    mux.MustCompile(mux.Definition{Path: "/users/{id:num}", Methods: []string{"GET"}, Target: "users.show"}),
//	)
//	m := t.Match("/users/42", "GET") // m.Vars["id"] == "42"
//
// Match with an empty method probes for a structural match only. Resolve
// combines both calls and returns ErrNotFound or a *MethodNotAllowedError.
//
// # Phases
//
// Every request passes through phase chains:
//
//	route_matched     - before the dispatch target; a response skips it
//	route_dispatched  - over the target's response
//	route_not_matched - over the 400/404/405 fallback response
//	throwable_caught  - when an error or panic escapes
//	sending_response  - right before the response is written
//	terminated        - after the response was written
//
// A middleware forwards by calling next or short-circuits by returning its
// own response:
//
//	auth := mux.MiddlewareFunc(func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
//	    if c.Request.Header.Get("Authorization") == "" {
//	        return mux.Error(http.StatusUnauthorized), nil
//	    }
//	    return next(c, res)
//	})
//	r.Registry(mux.Registry{"auth": auth})
//	r.HandleFunc("/admin", admin).Use(mux.PhaseRouteMatched, "auth")
//
// Router.Use adds middleware to a phase for every request.
//
// # Request State
//
// All per-request state lives on a Context created for the request: the
// match, captured values, request-scoped values and the request's own phase
// chains. The router and the table are read-only after Build, so one router
// serves concurrent requests without locking.
//
// # Errors
//
// Compile and table errors wrap ErrCompile, ErrDuplicateRoute or
// ErrDuplicateName and are returned by Build; they mean the application
// must not start. Errors and panics during a request reach the
// throwable-caught phase. When no middleware handles them, the router
// responds with 500 Internal Server Error, or re-panics in debug mode.
//
// # Cache
//
// WriteCache stores the compiled table as YAML together with a fingerprint
// of the definitions; LoadCache rebuilds it without running the compiler
// and returns ErrStaleCache when the definitions changed.
package mux
