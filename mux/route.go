package mux

import (
	"net/http"
	"regexp"
	"slices"
	"strings"
)

// Definition declares one endpoint before compilation. Producers such as
// code registration, declarative YAML files or attribute scanners fill it in;
// Compile turns it into an immutable Route.
type Definition struct {
	Path       string             `yaml:"path" json:"path"`
	Methods    []string           `yaml:"methods" json:"methods"`
	Params     []Parameter        `yaml:"params,omitempty" json:"params,omitempty"`
	Middleware map[Phase][]string `yaml:"middleware,omitempty" json:"middleware,omitempty"`
	Target     string             `yaml:"target,omitempty" json:"target,omitempty"`
	Name       string             `yaml:"name,omitempty" json:"name,omitempty"`

	// Handler is invoked directly and takes precedence over Target.
	Handler Dispatchable `yaml:"-" json:"-"`
}

// Method appends request methods to the definition.
func (d *Definition) Method(methods ...string) *Definition {
	d.Methods = append(d.Methods, methods...)
	return d
}

// Param declares a parameter with the given constraint or alias.
func (d *Definition) Param(name, constraint string) *Definition {
	d.Params = append(d.Params, NewParameter(name, constraint))
	return d
}

// WithParams appends fully specified parameters.
func (d *Definition) WithParams(params ...Parameter) *Definition {
	d.Params = append(d.Params, params...)
	return d
}

// Use appends middleware identifiers to the given phase.
func (d *Definition) Use(phase Phase, ids ...string) *Definition {
	if d.Middleware == nil {
		d.Middleware = make(map[Phase][]string)
	}
	d.Middleware[phase] = append(d.Middleware[phase], ids...)
	return d
}

// Named sets the route name used for reverse lookup.
func (d *Definition) Named(name string) *Definition {
	d.Name = name
	return d
}

// To sets the dispatch target descriptor resolved by the router's Resolver.
func (d *Definition) To(target string) *Definition {
	d.Target = target
	return d
}

// Variant is one matchable form of a route. A path with n optional
// segments has n+1 variants, one per nesting depth.
type Variant struct {
	// Path is the declarative path of this depth, without brackets.
	Path string
	// Regex is the anchored pattern; empty for a static variant.
	Regex string
	// Vars lists the captured parameter names in path order.
	Vars []string

	regexp *regexp.Regexp
}

// Static reports whether the variant is matched by exact string equality.
func (v Variant) Static() bool {
	return v.Regex == ""
}

// Template returns the variant path with inline constraints removed, so
// "/users/{id:num}" becomes "/users/{id}".
func (v Variant) Template() string {
	idxs, err := braceIndices(v.Path)
	if err != nil || len(idxs) == 0 {
		return v.Path
	}

	var b strings.Builder
	end := 0
	for i := 0; i < len(idxs); i += 2 {
		token := v.Path[idxs[i]+1 : idxs[i+1]-1]
		name, _, _ := strings.Cut(token, ":")
		b.WriteString(v.Path[end:idxs[i]])
		b.WriteString("{" + name + "}")
		end = idxs[i+1]
	}
	b.WriteString(v.Path[end:])
	return b.String()
}

// Route is a compiled endpoint. Its structural fields never change after
// Compile returns, so a Route is safe to share between requests.
type Route struct {
	path       string
	methods    []string
	params     []Parameter
	middleware [phaseCount][]string
	target     string
	handler    Dispatchable
	name       string
	variants   []Variant
}

// Path returns the declarative path the route was compiled from.
func (r *Route) Path() string {
	return r.path
}

// Methods returns a copy of the allowed request methods.
func (r *Route) Methods() []string {
	return slices.Clone(r.methods)
}

// AllowsMethod reports whether the route accepts the request method.
// HEAD is accepted wherever GET is, per RFC 9110 Section 9.3.2.
func (r *Route) AllowsMethod(method string) bool {
	method = strings.ToUpper(method)
	if slices.Contains(r.methods, method) {
		return true
	}
	return method == http.MethodHead && slices.Contains(r.methods, http.MethodGet)
}

// Params returns a copy of the parameters in left-to-right path order.
func (r *Route) Params() []Parameter {
	return slices.Clone(r.params)
}

// Middleware returns the middleware identifiers declared for a phase.
func (r *Route) Middleware(phase Phase) []string {
	if !phase.valid() {
		return nil
	}
	return slices.Clone(r.middleware[phase])
}

// Target returns the dispatch target descriptor.
func (r *Route) Target() string {
	return r.target
}

// Handler returns the directly attached dispatch target, if any.
func (r *Route) Handler() Dispatchable {
	return r.handler
}

// Name returns the route name, if any.
func (r *Route) Name() string {
	return r.name
}

// Regex returns the anchored pattern of the deepest variant, or an empty
// string when the route has no parameters.
func (r *Route) Regex() string {
	if len(r.variants) == 0 {
		return ""
	}
	return r.variants[len(r.variants)-1].Regex
}

// Variants returns the matchable forms of the route, shallowest first.
func (r *Route) Variants() []Variant {
	return slices.Clone(r.variants)
}

// Static reports whether every variant of the route is static.
func (r *Route) Static() bool {
	for _, v := range r.variants {
		if !v.Static() {
			return false
		}
	}
	return true
}

// param returns the declared parameter with the given name.
func (r *Route) param(name string) (Parameter, bool) {
	for _, p := range r.params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
