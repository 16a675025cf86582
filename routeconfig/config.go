package routeconfig

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the router configuration read from the environment.
type Config struct {
	// Debug re-panics errors no throwable-caught middleware handled.
	Debug bool `env:"ROUTER_DEBUG" envDefault:"false"`

	// RoutesFile is the YAML route file.
	RoutesFile string `env:"ROUTER_ROUTES_FILE" envDefault:"routes.yaml"`

	// CacheFile stores the compiled route table. Caching is disabled when
	// empty.
	CacheFile string `env:"ROUTER_CACHE_FILE"`

	// LogLevel is the minimum level of the logger returned by Logger.
	LogLevel slog.Level `env:"ROUTER_LOG_LEVEL" envDefault:"info"`
}

// Load reads Config from the environment. The given dotenv files, or
// ".env" when none are given, are loaded first; missing files are ignored
// and variables already set in the environment win.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}

	for _, name := range dotenv {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("routeconfig: load %s: %w", name, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("routeconfig: parse environment: %w", err)
	}

	return cfg, nil
}

// Logger returns a JSON logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
