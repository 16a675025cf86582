package mux

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrNotCacheable is returned when a table holds routes whose target is a
// directly attached handler, which cannot be written to a cache.
var ErrNotCacheable = errors.New("mux: route is not cacheable")

// Snapshot is the post-compilation form of a Table. Loading a snapshot
// skips the path compiler; only the stored patterns are compiled.
type Snapshot struct {
	// Fingerprint identifies the definitions the table was built from.
	Fingerprint string `yaml:"fingerprint"`

	Routes  []RouteRecord    `yaml:"routes"`
	Static  map[string][]int `yaml:"static,omitempty"`
	Dynamic []DynamicRecord  `yaml:"dynamic,omitempty"`
	Named   map[string]int   `yaml:"named,omitempty"`
}

// RouteRecord is a compiled route in a Snapshot.
type RouteRecord struct {
	Path       string             `yaml:"path"`
	Methods    []string           `yaml:"methods"`
	Params     []Parameter        `yaml:"params,omitempty"`
	Middleware map[Phase][]string `yaml:"middleware,omitempty"`
	Target     string             `yaml:"target"`
	Name       string             `yaml:"name,omitempty"`
	Variants   []VariantRecord    `yaml:"variants"`
}

// VariantRecord is one compiled variant of a route.
type VariantRecord struct {
	Path  string   `yaml:"path"`
	Regex string   `yaml:"regex,omitempty"`
	Vars  []string `yaml:"vars,omitempty"`
}

// DynamicRecord points at a dynamic variant in table order.
type DynamicRecord struct {
	Route   int `yaml:"route"`
	Variant int `yaml:"variant"`
}

// Fingerprint returns a digest of route definitions. A cache written for
// one set of definitions is stale for any other.
func Fingerprint(defs ...Definition) (string, error) {
	data, err := yaml.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("mux: fingerprint definitions: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Snapshot captures the table. Every route must have a target descriptor.
func (t *Table) Snapshot(fingerprint string) (Snapshot, error) {
	snap := Snapshot{
		Fingerprint: fingerprint,
		Routes:      make([]RouteRecord, 0, len(t.routes)),
		Static:      make(map[string][]int, len(t.static)),
		Named:       make(map[string]int, len(t.named)),
	}

	index := make(map[*Route]int, len(t.routes))
	for i, r := range t.routes {
		if r.target == "" {
			return Snapshot{}, fmt.Errorf("%w: %q has no target descriptor", ErrNotCacheable, r.path)
		}
		index[r] = i

		rec := RouteRecord{
			Path:    r.path,
			Methods: slices.Clone(r.methods),
			Params:  slices.Clone(r.params),
			Target:  r.target,
			Name:    r.name,
		}
		for phase := Phase(0); phase < phaseCount; phase++ {
			if ids := r.middleware[phase]; len(ids) > 0 {
				if rec.Middleware == nil {
					rec.Middleware = make(map[Phase][]string)
				}
				rec.Middleware[phase] = slices.Clone(ids)
			}
		}
		for _, v := range r.variants {
			rec.Variants = append(rec.Variants, VariantRecord{Path: v.Path, Regex: v.Regex, Vars: slices.Clone(v.Vars)})
		}
		snap.Routes = append(snap.Routes, rec)
	}

	for path, routes := range t.static {
		for _, r := range routes {
			snap.Static[path] = append(snap.Static[path], index[r])
		}
	}

	for _, e := range t.dynamic {
		vi := slices.IndexFunc(e.route.variants, func(v Variant) bool { return v.Regex == e.variant.Regex })
		snap.Dynamic = append(snap.Dynamic, DynamicRecord{Route: index[e.route], Variant: vi})
	}

	for name, r := range t.named {
		snap.Named[name] = index[r]
	}

	return snap, nil
}

// TableFromSnapshot rebuilds a table from a snapshot without running the
// path compiler.
func TableFromSnapshot(snap Snapshot) (*Table, error) {
	t := &Table{
		routes: make([]*Route, 0, len(snap.Routes)),
		static: make(map[string][]*Route, len(snap.Static)),
		named:  make(map[string]*Route, len(snap.Named)),
	}

	for _, rec := range snap.Routes {
		r := &Route{
			path:    rec.Path,
			methods: slices.Clone(rec.Methods),
			params:  slices.Clone(rec.Params),
			target:  rec.Target,
			name:    rec.Name,
		}
		if len(r.methods) == 0 {
			return nil, fmt.Errorf("%w: cached route %q", ErrNoMethods, rec.Path)
		}
		for phase, ids := range rec.Middleware {
			if !phase.valid() {
				return nil, fmt.Errorf("mux: cached route %q has unknown phase %d", rec.Path, phase)
			}
			r.middleware[phase] = slices.Clone(ids)
		}
		for _, vr := range rec.Variants {
			v := Variant{Path: vr.Path, Regex: vr.Regex, Vars: slices.Clone(vr.Vars)}
			if vr.Regex != "" {
				re, err := compileRegexp(vr.Regex)
				if err != nil {
					return nil, fmt.Errorf("mux: cached route %q: %w", rec.Path, err)
				}
				v.regexp = re
			}
			r.variants = append(r.variants, v)
		}
		t.routes = append(t.routes, r)
	}

	route := func(i int) (*Route, error) {
		if i < 0 || i >= len(t.routes) {
			return nil, fmt.Errorf("mux: cache references unknown route %d", i)
		}
		return t.routes[i], nil
	}

	for path, idxs := range snap.Static {
		for _, i := range idxs {
			r, err := route(i)
			if err != nil {
				return nil, err
			}
			t.static[path] = append(t.static[path], r)
		}
	}

	for _, d := range snap.Dynamic {
		r, err := route(d.Route)
		if err != nil {
			return nil, err
		}
		if d.Variant < 0 || d.Variant >= len(r.variants) || r.variants[d.Variant].Static() {
			return nil, fmt.Errorf("mux: cache references unknown variant %d of %q", d.Variant, r.path)
		}
		t.dynamic = append(t.dynamic, dynamicEntry{route: r, variant: r.variants[d.Variant]})
	}

	for name, i := range snap.Named {
		r, err := route(i)
		if err != nil {
			return nil, err
		}
		t.named[name] = r
	}

	return t, nil
}

// WriteCache encodes the table snapshot as YAML.
func WriteCache(w io.Writer, t *Table, fingerprint string) error {
	snap, err := t.Snapshot(fingerprint)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("mux: encode route cache: %w", err)
	}
	return enc.Close()
}

// ReadCache decodes a snapshot written by WriteCache.
func ReadCache(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("mux: decode route cache: %w", err)
	}
	return snap, nil
}

// LoadCache reads a snapshot and rebuilds its table. ErrStaleCache is
// returned when the snapshot was written for other definitions.
func LoadCache(r io.Reader, fingerprint string) (*Table, error) {
	snap, err := ReadCache(r)
	if err != nil {
		return nil, err
	}
	if snap.Fingerprint != fingerprint {
		return nil, ErrStaleCache
	}
	return TableFromSnapshot(snap)
}
