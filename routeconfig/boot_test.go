package routeconfig

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

func testTargets() Targets {
	return Targets{
		"health": mux.DispatchFunc(func(*mux.Context) (*mux.Response, error) {
			return mux.Text(http.StatusOK, "ok"), nil
		}),
		"users.show": mux.DispatchFunc(func(c *mux.Context) (*mux.Response, error) {
			vars := c.Vars()
			return mux.Text(http.StatusOK, "user "+vars["id"]+" "+vars["tab"]), nil
		}),
	}
}

func testRouter(defs ...mux.Definition) *mux.Router {
	return mux.NewRouter().Resolver(testTargets()).Add(defs...)
}

var bootDefs = []mux.Definition{
	{Path: "/health", Target: "health"},
	{Path: "/users/{id:num}[/{tab:slug}]", Methods: []string{http.MethodGet}, Target: "users.show", Name: "user.show"},
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestBoot(t *testing.T) {
	t.Run("without cache file", func(t *testing.T) {
		r := testRouter(bootDefs...)

		cached, err := Boot(r, "", nil)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "ok", get(t, r, "/health").Body.String())
	})

	t.Run("writes then reads the cache", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "routes.cache")

		first := testRouter(bootDefs...)
		cached, err := Boot(first, cacheFile, nil)
		require.NoError(t, err)
		assert.False(t, cached)
		require.FileExists(t, cacheFile)

		second := testRouter(bootDefs...)
		cached, err = Boot(second, cacheFile, nil)
		require.NoError(t, err)
		assert.True(t, cached)

		assert.Equal(t, "user 7 profile", get(t, second, "/users/7/profile").Body.String())
		assert.Equal(t, "user 7 ", get(t, second, "/users/7").Body.String())
		assert.Equal(t, http.StatusNotFound, get(t, second, "/users/x").Code)

		url, err := second.URL("user.show", map[string]string{"id": "7"})
		require.NoError(t, err)
		assert.Equal(t, "/users/7", url)
	})

	t.Run("stale cache is rebuilt", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "routes.cache")

		_, err := Boot(testRouter(bootDefs...), cacheFile, nil)
		require.NoError(t, err)
		before, err := os.ReadFile(cacheFile)
		require.NoError(t, err)

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		changed := append([]mux.Definition{{Path: "/ready", Target: "health"}}, bootDefs...)
		r := testRouter(changed...)
		cached, err := Boot(r, cacheFile, logger)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Contains(t, logs.String(), "route cache is stale")
		assert.Equal(t, http.StatusOK, get(t, r, "/ready").Code)

		after, err := os.ReadFile(cacheFile)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)

		cached, err = Boot(testRouter(changed...), cacheFile, nil)
		require.NoError(t, err)
		assert.True(t, cached)
	})

	t.Run("corrupt cache is rebuilt", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "routes.cache")
		require.NoError(t, os.WriteFile(cacheFile, []byte("routes: [\n"), 0o600))

		var logs bytes.Buffer
		r := testRouter(bootDefs...)
		cached, err := Boot(r, cacheFile, slog.New(slog.NewTextHandler(&logs, nil)))
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Contains(t, logs.String(), "route cache unusable")
		assert.Equal(t, "ok", get(t, r, "/health").Body.String())
	})

	t.Run("direct handlers are not cached", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "routes.cache")

		r := mux.NewRouter()
		r.HandleFunc("/direct", func(*mux.Context) (*mux.Response, error) {
			return mux.Text(http.StatusOK, "direct"), nil
		})

		cached, err := Boot(r, cacheFile, nil)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.NoFileExists(t, cacheFile)
		assert.Equal(t, "direct", get(t, r, "/direct").Body.String())
	})

	t.Run("unwritable cache directory", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "missing", "routes.cache")

		var logs bytes.Buffer
		r := testRouter(bootDefs...)
		cached, err := Boot(r, cacheFile, slog.New(slog.NewTextHandler(&logs, nil)))
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Contains(t, logs.String(), "route cache write failed")
		assert.Equal(t, "ok", get(t, r, "/health").Body.String())
	})

	t.Run("compile errors are returned", func(t *testing.T) {
		r := testRouter(mux.Definition{Path: "/users/{id}", Target: "users.show"})

		_, err := Boot(r, filepath.Join(t.TempDir(), "routes.cache"), nil)
		assert.Error(t, err)
	})

	t.Run("cached table with unknown middleware", func(t *testing.T) {
		cacheFile := filepath.Join(t.TempDir(), "routes.cache")
		defs := []mux.Definition{{Path: "/a", Target: "health", Middleware: map[mux.Phase][]string{mux.PhaseRouteMatched: {"auth"}}}}

		noop := mux.MiddlewareFunc(func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
			return next(c, res)
		})
		_, err := Boot(testRouter(defs...).Registry(mux.Registry{"auth": noop}), cacheFile, nil)
		require.NoError(t, err)

		_, err = Boot(testRouter(defs...), cacheFile, nil)
		assert.ErrorIs(t, err, mux.ErrUnknownMiddleware)
	})
}

func TestNewRouter(t *testing.T) {
	dir := t.TempDir()
	routesFile := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(routesFile, []byte(`
routes:
  - path: /health
    target: health
groups:
  - prefix: /users
    middleware:
      sending_response: [stamp]
    routes:
      - path: /{id}[/{tab}]
        name: user.show
        target: users.show
        params:
          id: num
          tab: slug
`), 0o600))

	stamp := mux.MiddlewareFunc(func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		res.Header.Set("X-Stamp", "yes")
		return next(c, res)
	})

	cfg := Config{RoutesFile: routesFile, CacheFile: filepath.Join(dir, "routes.cache")}
	opts := Options{Registry: mux.Registry{"stamp": stamp}, Resolver: testTargets()}

	r, err := NewRouter(cfg, opts)
	require.NoError(t, err)

	w := get(t, r, "/users/3/posts")
	assert.Equal(t, "user 3 posts", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Stamp"))
	assert.Empty(t, get(t, r, "/health").Header().Get("X-Stamp"))
	require.FileExists(t, cfg.CacheFile)

	r, err = NewRouter(cfg, opts)
	require.NoError(t, err)
	assert.Equal(t, "user 3 posts", get(t, r, "/users/3/posts").Body.String())

	t.Run("unknown target", func(t *testing.T) {
		_, err := NewRouter(cfg, Options{Registry: opts.Registry, Resolver: Targets{"health": testTargets()["health"]}})
		assert.ErrorIs(t, err, ErrUnknownTarget)
	})

	t.Run("missing routes file", func(t *testing.T) {
		_, err := NewRouter(Config{RoutesFile: filepath.Join(dir, "missing.yaml")}, opts)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
