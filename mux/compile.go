package mux

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// paramNameRe restricts parameter names to identifiers usable as regexp
// group names.
var paramNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Compile turns a definition into an immutable Route.
//
// The path syntax is:
//
//	{name}             parameter declared in def.Params
//	{name:constraint}  parameter with an inline constraint or alias
//	[...]              optional trailing segment, nestable only as a suffix
//
// A path with n optional segments yields n+1 variants, one per depth; each
// variant is compiled to its own anchored regexp. Compiling the same
// definition twice produces identical patterns.
func Compile(def Definition) (*Route, error) {
	methods, err := normalizeMethods(def.Methods)
	if err != nil {
		return nil, fmt.Errorf("%w for %q", err, def.Path)
	}

	path := canonicalPath(def.Path)

	segments, err := splitOptional(path)
	if err != nil {
		return nil, err
	}

	declared, err := declaredParams(path, def.Params)
	if err != nil {
		return nil, err
	}

	var (
		variants = make([]Variant, 0, len(segments))
		ordered  []Parameter
		prefix   string
	)

	optionalFrom := len(segments[0])
	for depth, seg := range segments {
		if depth > 0 && seg == "" {
			return nil, fmt.Errorf("%w in %q", ErrInvalidOptionalPart, def.Path)
		}
		prefix += seg

		v, params, err := compileVariant(def.Path, trimTrailingSlash(prefix), optionalFrom, declared)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
		ordered = params
	}

	for _, p := range def.Params {
		if !slices.ContainsFunc(ordered, func(o Parameter) bool { return o.Name == p.Name }) {
			return nil, &InvalidRoutePathError{Path: def.Path, Token: p.Name, Reason: "parameter is not used in path"}
		}
	}

	route := &Route{
		path:     def.Path,
		methods:  methods,
		params:   ordered,
		target:   def.Target,
		handler:  def.Handler,
		name:     def.Name,
		variants: variants,
	}
	for phase, ids := range def.Middleware {
		if !phase.valid() {
			return nil, fmt.Errorf("%w: unknown phase %d for %q", ErrCompile, phase, def.Path)
		}
		route.middleware[phase] = slices.Clone(ids)
	}

	return route, nil
}

// MustCompile is like Compile but panics on error. It simplifies
// initialization of routes declared in code.
func MustCompile(def Definition) *Route {
	r, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return r
}

// compileVariant builds the pattern for one optional depth. Tokens starting
// at or after optionalFrom lie inside an optional segment.
func compileVariant(original, path string, optionalFrom int, declared map[string]Parameter) (Variant, []Parameter, error) {
	idxs, err := braceIndices(path)
	if err != nil {
		return Variant{}, nil, &InvalidRoutePathError{Path: original, Reason: "unbalanced braces"}
	}

	if len(idxs) == 0 {
		return Variant{Path: path}, nil, nil
	}

	var (
		pattern strings.Builder
		params  []Parameter
		vars    []string
		names   []string
		end     int
	)

	pattern.WriteByte('^')

	for i := 0; i < len(idxs); i += 2 {
		raw := path[end:idxs[i]]
		end = idxs[i+1]

		token := path[idxs[i]:end]
		p, err := resolveParam(original, token, declared)
		if err != nil {
			return Variant{}, nil, err
		}
		if idxs[i] >= optionalFrom {
			p.Optional = true
		}

		var sep string
		if p.Optional && strings.HasSuffix(raw, "/") {
			raw = raw[:len(raw)-1]
			sep = "/"
		}

		pattern.WriteString(regexp.QuoteMeta(raw))
		pattern.WriteString(p.fragment(sep))

		names = append(names, p.Name)
		params = append(params, p)
		if p.Capture {
			vars = append(vars, p.Name)
		}
	}

	pattern.WriteString(regexp.QuoteMeta(path[end:]))
	pattern.WriteByte('$')

	if name, dup := duplicateVar(names); dup {
		return Variant{}, nil, &InvalidRoutePathError{Path: original, Token: name, Reason: "duplicated parameter"}
	}

	re, err := compileRegexp(pattern.String())
	if err != nil {
		return Variant{}, nil, &InvalidRoutePathError{Path: original, Reason: "invalid constraint: " + err.Error()}
	}

	return Variant{
		Path:   path,
		Regex:  pattern.String(),
		Vars:   vars,
		regexp: re,
	}, params, nil
}

// resolveParam matches a {name} or {name:constraint} token against the
// declared parameters. An undeclared token with an inline constraint
// declares a required captured parameter.
func resolveParam(path, token string, declared map[string]Parameter) (Parameter, error) {
	name, constraint, _ := strings.Cut(token[1:len(token)-1], ":")

	if !paramNameRe.MatchString(name) {
		return Parameter{}, &InvalidRoutePathError{Path: path, Token: token, Reason: "invalid parameter name"}
	}

	p, ok := declared[name]
	switch {
	case ok && p.Regex == "":
		p.Regex, _ = expandMacro(constraint)
	case !ok && constraint != "":
		p = NewParameter(name, constraint)
	case !ok:
		return Parameter{}, &InvalidRoutePathError{Path: path, Token: token, Reason: "no parameter declared for"}
	}

	if p.Regex == "" {
		return Parameter{}, fmt.Errorf("%w: %q in %q", ErrRegexRequired, name, path)
	}

	return p, nil
}

// declaredParams indexes the declared parameters by name.
func declaredParams(path string, params []Parameter) (map[string]Parameter, error) {
	m := make(map[string]Parameter, len(params))
	for _, p := range params {
		if !paramNameRe.MatchString(p.Name) {
			return nil, &InvalidRoutePathError{Path: path, Token: p.Name, Reason: "invalid parameter name"}
		}
		if _, dup := m[p.Name]; dup {
			return nil, &InvalidRoutePathError{Path: path, Token: p.Name, Reason: "duplicated parameter"}
		}
		p.Regex, _ = expandMacro(p.Regex)
		m[p.Name] = p
	}
	return m, nil
}

// splitOptional splits the path into its required prefix and the optional
// segments in opening order. Optional segments may nest ("/a[/b[/c]]") or
// follow each other ("/a[/b][/c]"), but no literal text may follow a
// closing bracket.
func splitOptional(path string) ([]string, error) {
	var (
		segments []string
		cur      strings.Builder
		braces   int
		depth    int
		closed   bool
	)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if braces > 0 || c == '{' || c == '}' {
			switch c {
			case '{':
				braces++
			case '}':
				if braces--; braces < 0 {
					return nil, &InvalidRoutePathError{Path: path, Reason: "unbalanced braces"}
				}
			}
			if closed {
				return nil, fmt.Errorf("%w: %q", ErrOptionalSegmentsMisplaced, path)
			}
			cur.WriteByte(c)
			continue
		}

		switch c {
		case '[':
			segments = append(segments, cur.String())
			cur.Reset()
			depth++
			closed = false
		case ']':
			if depth == 0 {
				return nil, fmt.Errorf("%w: %q", ErrOptionalSegmentsMismatch, path)
			}
			depth--
			closed = true
		default:
			if closed {
				return nil, fmt.Errorf("%w: %q", ErrOptionalSegmentsMisplaced, path)
			}
			cur.WriteByte(c)
		}
	}
	if braces != 0 {
		return nil, &InvalidRoutePathError{Path: path, Reason: "unbalanced braces"}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: %q", ErrOptionalSegmentsMismatch, path)
	}
	segments = append(segments, cur.String())

	return segments, nil
}

// canonicalPath enforces a leading slash and drops a trailing slash that
// precedes the closing brackets of optional segments.
func canonicalPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if p[0] != '/' && p[0] != '[' {
		p = "/" + p
	}

	body := strings.TrimRight(p, "]")
	return trimTrailingSlash(body) + p[len(body):]
}

// normalizeMethods upper-cases, deduplicates and validates request methods.
// A method is an RFC 9110 token (Section 9.1).
func normalizeMethods(methods []string) ([]string, error) {
	if len(methods) == 0 {
		return nil, ErrNoMethods
	}

	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if !validMethod(m) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, m)
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for _, r := range m {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// braceIndices returns the start and end+1 indices of each top-level
// {...} pair in s. Returns an error if braces are unbalanced.
func braceIndices(s string) ([]int, error) {
	var (
		idxs  []int
		level int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idxs = append(idxs, i)
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
	}
	return idxs, nil
}

// duplicateVar returns the first variable name that is repeated.
func duplicateVar(vars []string) (string, bool) {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v] {
			return v, true
		}
		seen[v] = true
	}
	return "", false
}
