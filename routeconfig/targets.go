package routeconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitalvas/waypoint/mux"
)

// ErrUnknownTarget is returned by Targets for descriptors it does not hold.
var ErrUnknownTarget = errors.New("routeconfig: unknown dispatch target")

// Targets is a mux.Resolver backed by a fixed map of target descriptors.
type Targets map[string]mux.Dispatchable

// Resolve implements mux.Resolver.
func (t Targets) Resolve(_ context.Context, target string) (mux.Dispatchable, error) {
	d, ok := t[target]
	if !ok || d == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return d, nil
}

// Check reports the first descriptor used by defs that t cannot resolve.
// Definitions with a direct handler are skipped.
func (t Targets) Check(defs ...mux.Definition) error {
	for _, def := range defs {
		if def.Handler != nil {
			continue
		}
		if _, ok := t[def.Target]; !ok {
			return fmt.Errorf("%w: %q of route %q", ErrUnknownTarget, def.Target, def.Path)
		}
	}
	return nil
}
