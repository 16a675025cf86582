package routeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vitalvas/waypoint/mux"
)

// Options carries the application pieces route files refer to.
type Options struct {
	// Logger is handed to the router. When nil, logging is discarded.
	Logger *slog.Logger

	// Registry resolves middleware identifiers.
	Registry mux.Registry

	// Resolver resolves target descriptors.
	Resolver mux.Resolver
}

// NewRouter loads cfg.RoutesFile into a new router and boots it.
func NewRouter(cfg Config, opts Options) (*mux.Router, error) {
	defs, err := LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return nil, err
	}

	if targets, ok := opts.Resolver.(Targets); ok {
		if err := targets.Check(defs...); err != nil {
			return nil, err
		}
	}

	r := mux.NewRouter().
		Debug(cfg.Debug).
		Logger(opts.Logger).
		Registry(opts.Registry).
		Resolver(opts.Resolver).
		Add(defs...)

	if _, err := Boot(r, cfg.CacheFile, opts.Logger); err != nil {
		return nil, err
	}

	return r, nil
}

// Boot freezes the definitions registered on r. When cacheFile holds a
// table written for the same definitions, that table is installed without
// compiling; otherwise the definitions are compiled and the cache file is
// rewritten. It reports whether the cache was used.
//
// An unreadable or stale cache only costs a rebuild. Tables with routes
// that dispatch to direct handlers are never cached.
func Boot(r *mux.Router, cacheFile string, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cacheFile == "" {
		return false, r.Build()
	}

	fingerprint, err := mux.Fingerprint(r.Definitions()...)
	if err != nil {
		return false, err
	}

	t, err := readCache(cacheFile, fingerprint)
	switch {
	case err == nil:
		if err := r.LoadTable(t); err != nil {
			return false, err
		}
		logger.Debug("route table loaded from cache", slog.String("file", cacheFile), slog.Int("routes", t.Len()))
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
	case errors.Is(err, mux.ErrStaleCache):
		logger.Info("route cache is stale", slog.String("file", cacheFile))
	default:
		logger.Warn("route cache unusable", slog.String("file", cacheFile), slog.Any("error", err))
	}

	if err := r.Build(); err != nil {
		return false, err
	}

	switch err := writeCache(cacheFile, r.Table(), fingerprint); {
	case err == nil:
		logger.Debug("route cache written", slog.String("file", cacheFile), slog.Int("routes", r.Table().Len()))
	case errors.Is(err, mux.ErrNotCacheable):
		logger.Debug("route table not cached", slog.Any("error", err))
	default:
		logger.Warn("route cache write failed", slog.String("file", cacheFile), slog.Any("error", err))
	}

	return false, nil
}

func readCache(name, fingerprint string) (*mux.Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return mux.LoadCache(f, fingerprint)
}

// writeCache replaces name atomically so concurrent readers never see a
// partial table.
func writeCache(name string, t *mux.Table, fingerprint string) error {
	if _, err := t.Snapshot(fingerprint); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("routeconfig: create cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := mux.WriteCache(tmp, t, fingerprint); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("routeconfig: write cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("routeconfig: replace cache: %w", err)
	}
	return nil
}
