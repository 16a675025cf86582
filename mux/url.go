package mux

import (
	"fmt"
	"net/url"
	"strings"
)

// URL builds the path of the named route from parameter values.
//
// The deepest optional variant whose parameters all have values is used, so
// omitting the values of an optional tail drops that tail. Each value must
// satisfy its parameter constraint and is path-escaped.
func (t *Table) URL(name string, values map[string]string) (string, error) {
	r := t.Route(name)
	if r == nil {
		return "", fmt.Errorf("mux: no route named %q", name)
	}
	return r.URL(values)
}

// URL builds the path of the route from parameter values.
func (r *Route) URL(values map[string]string) (string, error) {
	var lastErr error
	for i := len(r.variants) - 1; i >= 0; i-- {
		u, err := r.variantURL(r.variants[i].Path, values)
		if err == nil {
			return u, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// variantURL substitutes every token of path. Missing values are allowed
// only for parameters flagged optional, which drop their leading separator.
func (r *Route) variantURL(path string, values map[string]string) (string, error) {
	idxs, err := braceIndices(path)
	if err != nil {
		return "", err
	}

	var (
		b   strings.Builder
		end int
	)
	for i := 0; i < len(idxs); i += 2 {
		raw := path[end:idxs[i]]
		end = idxs[i+1]

		name, _, _ := strings.Cut(path[idxs[i]+1:end-1], ":")
		p, ok := r.param(name)
		if !ok {
			return "", fmt.Errorf("mux: unknown route parameter %q", name)
		}

		v, ok := values[name]
		if !ok || v == "" {
			if !p.Optional {
				return "", fmt.Errorf("mux: missing route parameter %q", name)
			}
			b.WriteString(strings.TrimSuffix(raw, "/"))
			continue
		}

		re, err := compileRegexp("^(?:" + p.Regex + ")$")
		if err != nil {
			return "", err
		}
		if !re.MatchString(v) {
			return "", fmt.Errorf("mux: parameter %q doesn't match, expected %q", name, p.Regex)
		}

		b.WriteString(raw)
		b.WriteString(url.PathEscape(v))
	}
	b.WriteString(path[end:])

	return b.String(), nil
}
