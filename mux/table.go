package mux

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"sort"
)

// captureGroup matches the opening of a named capture group.
var captureGroup = regexp.MustCompile(`\(\?P?<[^>]+>`)

// patternKey identifies what a variant matches regardless of how its
// parameters are named or whether they are captured.
func patternKey(v Variant) string {
	if v.Static() {
		return v.Path
	}
	return captureGroup.ReplaceAllLiteralString(v.Regex, "(?:")
}

// Match is the request-scoped result of matching a path against the table.
// It is never stored on the Route.
type Match struct {
	// Route is the matched route.
	Route *Route
	// Values holds captured values in parameter declaration order. An
	// absent optional parameter yields an empty string.
	Values []string
	// Vars maps captured parameter names to values. Absent optional
	// parameters are omitted.
	Vars map[string]string
}

// dynamicEntry is one dynamic variant in registration order.
type dynamicEntry struct {
	route   *Route
	variant Variant
}

// Table is a frozen route table. It holds a static index keyed by exact
// path, a dynamic index tried in registration order and a named index.
//
// A Table is never modified after NewTable returns and is safe for
// concurrent use without locking.
type Table struct {
	routes  []*Route
	static  map[string][]*Route
	dynamic []dynamicEntry
	named   map[string]*Route
}

// NewTable builds a table from compiled routes.
//
// Registration order is significant: when several dynamic routes match the
// same path, the first registered wins, so more specific routes must be
// registered before more general ones. Static routes always win over
// dynamic ones.
func NewTable(routes ...*Route) (*Table, error) {
	t := &Table{
		static: make(map[string][]*Route),
		named:  make(map[string]*Route),
	}

	seen := make(map[string]*Route)
	for _, r := range routes {
		if r == nil {
			continue
		}

		if r.name != "" {
			if prev, ok := t.named[r.name]; ok {
				return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateName, r.name, prev.path, r.path)
			}
			t.named[r.name] = r
		}

		for _, v := range r.variants {
			key := patternKey(v)
			for _, m := range r.methods {
				k := m + " " + key
				if prev, ok := seen[k]; ok && prev != r {
					return nil, fmt.Errorf("%w: %s %s declared by %q and %q", ErrDuplicateRoute, m, v.Path, prev.path, r.path)
				}
				seen[k] = r
			}

			if v.Static() {
				if !slices.Contains(t.static[v.Path], r) {
					t.static[v.Path] = append(t.static[v.Path], r)
				}
				continue
			}
			t.dynamic = append(t.dynamic, dynamicEntry{route: r, variant: v})
		}

		t.routes = append(t.routes, r)
	}

	return t, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(routes ...*Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Match resolves path to a route. An empty method probes for a structural
// match regardless of method; otherwise the route must also allow method.
// Returns nil when nothing matches.
//
// Calling Match with the request method and, on failure, again with an
// empty method tells "not found" apart from "method not allowed".
func (t *Table) Match(path, method string) *Match {
	for _, r := range t.static[path] {
		if method == "" || r.AllowsMethod(method) {
			return newMatch(r, Variant{}, path, nil)
		}
	}

	for _, e := range t.dynamic {
		if method != "" && !e.route.AllowsMethod(method) {
			continue
		}
		idx := e.variant.regexp.FindStringSubmatchIndex(path)
		if idx == nil {
			continue
		}
		return newMatch(e.route, e.variant, path, idx)
	}

	return nil
}

// Resolve matches path and method and reports why nothing matched:
// ErrNotFound when no route matches the path at all, or a
// *MethodNotAllowedError listing the methods of every structural match.
func (t *Table) Resolve(path, method string) (*Match, error) {
	if m := t.Match(path, method); m != nil {
		return m, nil
	}
	if t.Match(path, "") == nil {
		return nil, ErrNotFound
	}
	return nil, &MethodNotAllowedError{Method: method, Allowed: t.Allowed(path)}
}

// Allowed returns the sorted methods accepted by any route matching path.
func (t *Table) Allowed(path string) []string {
	var allowed []string
	add := func(r *Route) {
		for _, m := range r.methods {
			if !slices.Contains(allowed, m) {
				allowed = append(allowed, m)
			}
		}
		if slices.Contains(r.methods, http.MethodGet) && !slices.Contains(allowed, http.MethodHead) {
			allowed = append(allowed, http.MethodHead)
		}
	}

	for _, r := range t.static[path] {
		add(r)
	}
	for _, e := range t.dynamic {
		if e.variant.regexp.MatchString(path) {
			add(e.route)
		}
	}

	sort.Strings(allowed)
	return allowed
}

// Route returns the route registered with the given name, or nil.
func (t *Table) Route(name string) *Route {
	return t.named[name]
}

// Routes returns the routes in registration order.
func (t *Table) Routes() []*Route {
	return slices.Clone(t.routes)
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.routes)
}

// SkipRoute is used as a return value from WalkFunc to stop walking
// without reporting an error.
var SkipRoute = errors.New("skip remaining routes") //nolint:revive,staticcheck // sentinel, not a failure

// WalkFunc is the type of the function called for each route visited by Walk.
type WalkFunc func(route *Route) error

// Walk calls walkFn for every route in registration order.
func (t *Table) Walk(walkFn WalkFunc) error {
	for _, r := range t.routes {
		if err := walkFn(r); err != nil {
			if errors.Is(err, SkipRoute) {
				return nil
			}
			return err
		}
	}
	return nil
}

// newMatch extracts captured values for a variant match. Static variants
// carry no submatches and leave every value empty.
func newMatch(r *Route, v Variant, path string, idx []int) *Match {
	m := &Match{
		Route:  r,
		Values: make([]string, 0, len(r.params)),
		Vars:   make(map[string]string, len(v.Vars)),
	}
	for _, p := range r.params {
		if !p.Capture {
			continue
		}
		var value string
		if v.regexp == nil {
			m.Values = append(m.Values, value)
			continue
		}
		if i := v.regexp.SubexpIndex(p.Name); i > 0 && idx[2*i] >= 0 {
			value = path[idx[2*i]:idx[2*i+1]]
			m.Vars[p.Name] = value
		}
		m.Values = append(m.Values, value)
	}
	return m
}
