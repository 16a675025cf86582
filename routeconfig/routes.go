package routeconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/vitalvas/waypoint/mux"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRouteFile is wrapped by errors about the shape of a route file.
var ErrInvalidRouteFile = errors.New("routeconfig: invalid route file")

// File is the YAML document of a route file.
type File struct {
	Routes []RouteSpec `yaml:"routes"`
	Groups []GroupSpec `yaml:"groups"`
}

// GroupSpec shares a path prefix and middleware between routes. Group
// middleware runs before the middleware of its routes.
type GroupSpec struct {
	Prefix     string                 `yaml:"prefix"`
	Middleware map[mux.Phase][]string `yaml:"middleware"`
	Routes     []RouteSpec            `yaml:"routes"`
}

// RouteSpec declares one route.
type RouteSpec struct {
	Path       string                 `yaml:"path"`
	Methods    []string               `yaml:"methods"`
	Name       string                 `yaml:"name"`
	Target     string                 `yaml:"target"`
	Params     Params                 `yaml:"params"`
	Middleware map[mux.Phase][]string `yaml:"middleware"`
}

// Params is an ordered mapping of parameter name to either a constraint
// (a regex fragment or alias) or a mapping with regex, optional and
// capture keys. Capture defaults to true.
type Params []mux.Parameter

type paramSpec struct {
	Regex    string `yaml:"regex"`
	Optional bool   `yaml:"optional"`
	Capture  *bool  `yaml:"capture"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ps *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: params must be a mapping", ErrInvalidRouteFile, node.Line)
	}

	out := make(Params, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		switch val.Kind {
		case yaml.ScalarNode:
			out = append(out, mux.NewParameter(key.Value, val.Value))
		case yaml.MappingNode:
			var pd paramSpec
			if err := val.Decode(&pd); err != nil {
				return fmt.Errorf("%w: line %d: param %q: %w", ErrInvalidRouteFile, val.Line, key.Value, err)
			}

			p := mux.NewParameter(key.Value, pd.Regex)
			if pd.Optional {
				p = p.AsOptional()
			}
			if pd.Capture != nil && !*pd.Capture {
				p = p.WithoutCapture()
			}
			out = append(out, p)
		default:
			return fmt.Errorf("%w: line %d: param %q must be a constraint or a mapping", ErrInvalidRouteFile, val.Line, key.Value)
		}
	}

	*ps = out
	return nil
}

// definition converts the route entry to a mux.Definition under prefix with the
// group middleware in front of the route's own.
func (s RouteSpec) definition(prefix string, groupMW map[mux.Phase][]string) (mux.Definition, error) {
	if s.Path == "" {
		return mux.Definition{}, fmt.Errorf("%w: route without path", ErrInvalidRouteFile)
	}
	if s.Target == "" {
		return mux.Definition{}, fmt.Errorf("%w: route %q has no target", ErrInvalidRouteFile, s.Path)
	}

	def := mux.Definition{
		Path:    joinPath(prefix, s.Path),
		Methods: slices.Clone(s.Methods),
		Params:  slices.Clone([]mux.Parameter(s.Params)),
		Target:  s.Target,
		Name:    s.Name,
	}

	// Phases in pipeline order keep the definition, and so the cache
	// fingerprint, independent of map iteration order.
	for _, phase := range mux.Phases() {
		ids := append(slices.Clone(groupMW[phase]), s.Middleware[phase]...)
		if len(ids) > 0 {
			def.Use(phase, ids...)
		}
	}

	return def, nil
}

// joinPath prefixes p, collapsing the slash between both halves.
func joinPath(prefix, p string) string {
	if prefix == "" {
		return p
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}

// Definitions returns the route definitions of the file: top-level routes
// first, then each group in file order.
func (f File) Definitions() ([]mux.Definition, error) {
	defs := make([]mux.Definition, 0, len(f.Routes))

	for _, s := range f.Routes {
		def, err := s.definition("", nil)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	for _, g := range f.Groups {
		if !strings.HasPrefix(g.Prefix, "/") {
			return nil, fmt.Errorf("%w: group prefix %q must start with /", ErrInvalidRouteFile, g.Prefix)
		}

		for _, s := range g.Routes {
			def, err := s.definition(g.Prefix, g.Middleware)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
	}

	return defs, nil
}

// ReadRoutes decodes a route file. Unknown keys are rejected.
func ReadRoutes(r io.Reader) ([]mux.Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, nil
		case errors.Is(err, ErrInvalidRouteFile):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRouteFile, err)
	}

	return f.Definitions()
}

// LoadRoutes reads the route file at path.
func LoadRoutes(path string) ([]mux.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("routeconfig: open routes: %w", err)
	}
	defer f.Close()

	defs, err := ReadRoutes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}
