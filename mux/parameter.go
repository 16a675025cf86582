package mux

// Parameter describes one path parameter of a route.
//
// Parameters are values: the modifier methods return copies and never
// change the receiver.
type Parameter struct {
	// Name is the identifier used in the path token {name}.
	Name string `yaml:"name" json:"name"`

	// Regex is the constraint fragment matching the segment. Aliases such
	// as "num" or "slug" are expanded by NewParameter.
	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`

	// Optional marks the parameter as allowed to be absent. Tokens inside an
	// optional path segment are optional regardless of this flag.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`

	// Capture controls whether the value is surfaced in the match result.
	// Non-capturing parameters only take part in disambiguation.
	Capture bool `yaml:"capture" json:"capture"`
}

// NewParameter returns a required, captured parameter. The constraint may be
// a literal regex fragment or an alias (num, slug, alpha, alpha-lowercase,
// alpha-uppercase, alpha-num, alpha-num-underscore, uuid, int, float, date, hex).
func NewParameter(name, constraint string) Parameter {
	pattern, _ := expandMacro(constraint)

	return Parameter{
		Name:    name,
		Regex:   pattern,
		Capture: true,
	}
}

// AsOptional returns a copy of p marked optional.
func (p Parameter) AsOptional() Parameter {
	p.Optional = true
	return p
}

// WithoutCapture returns a copy of p that is matched but not captured.
func (p Parameter) WithoutCapture() Parameter {
	p.Capture = false
	return p
}

// fragment returns the regex fragment substituted for the parameter token.
// Optional parameters absorb the separator that precedes them so the whole
// group can be absent without leaving a dangling "/".
func (p Parameter) fragment(sep string) string {
	switch {
	case p.Optional && p.Capture:
		return "(?:" + sep + "(?P<" + p.Name + ">" + p.Regex + "))?"
	case p.Optional:
		return "(?:" + sep + "(?:" + p.Regex + "))?"
	case p.Capture:
		return sep + "(?P<" + p.Name + ">" + p.Regex + ")"
	default:
		return sep + "(?:" + p.Regex + ")"
	}
}
