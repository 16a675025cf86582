package routeconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

const sampleRoutes = `
routes:
  - path: /health
    target: health
groups:
  - prefix: /users/
    middleware:
      route_matched: [auth]
    routes:
      - path: /{id}[/{tab}]
        methods: [GET, head]
        name: user.show
        target: users.show
        params:
          id: num
          tab: {regex: slug}
        middleware:
          route_matched: [audit]
          sending_response: [etag]
      - path: /{id:num}/files/{file}
        methods: [PUT]
        target: users.upload
        params:
          file: {regex: '[^/]+', capture: false}
          id:
`

func TestReadRoutes(t *testing.T) {
	defs, err := ReadRoutes(strings.NewReader(sampleRoutes))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, mux.Definition{Path: "/health", Target: "health"}, defs[0])

	assert.Equal(t, mux.Definition{
		Path:    "/users/{id}[/{tab}]",
		Methods: []string{"GET", "head"},
		Params: []mux.Parameter{
			{Name: "id", Regex: `\d+`, Capture: true},
			{Name: "tab", Regex: "[a-zA-Z0-9-]+", Capture: true},
		},
		Middleware: map[mux.Phase][]string{
			mux.PhaseRouteMatched:    {"auth", "audit"},
			mux.PhaseSendingResponse: {"etag"},
		},
		Target: "users.show",
		Name:   "user.show",
	}, defs[1])

	assert.Equal(t, "/users/{id:num}/files/{file}", defs[2].Path)
	assert.Equal(t, []mux.Parameter{
		{Name: "file", Regex: "[^/]+"},
		{Name: "id", Capture: true},
	}, defs[2].Params)
	assert.Equal(t, map[mux.Phase][]string{mux.PhaseRouteMatched: {"auth"}}, defs[2].Middleware)
}

func TestReadRoutesCompile(t *testing.T) {
	defs, err := ReadRoutes(strings.NewReader(sampleRoutes))
	require.NoError(t, err)

	for _, def := range defs {
		if len(def.Methods) == 0 {
			def.Methods = []string{"GET"}
		}
		_, err := mux.Compile(def)
		assert.NoError(t, err, def.Path)
	}
}

func TestReadRoutesOptionalParam(t *testing.T) {
	defs, err := ReadRoutes(strings.NewReader(`
routes:
  - path: /archive/{year}
    target: archive
    params:
      year: {regex: '\d{4}', optional: true}
`))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, []mux.Parameter{{Name: "year", Regex: `\d{4}`, Optional: true, Capture: true}}, defs[0].Params)
}

func TestReadRoutesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "routes:\n  - path: /a\n    target: a\n    handler: x\n",
			want: "field handler not found",
		},
		{
			name: "missing path",
			doc:  "routes:\n  - target: a\n",
			want: "route without path",
		},
		{
			name: "missing target",
			doc:  "routes:\n  - path: /a\n",
			want: `route "/a" has no target`,
		},
		{
			name: "unknown phase",
			doc:  "routes:\n  - path: /a\n    target: a\n    middleware:\n      before: [x]\n",
			want: `unknown phase "before"`,
		},
		{
			name: "params list",
			doc:  "routes:\n  - path: /a/{id}\n    target: a\n    params: [id]\n",
			want: "params must be a mapping",
		},
		{
			name: "param sequence value",
			doc:  "routes:\n  - path: /a/{id}\n    target: a\n    params:\n      id: [num]\n",
			want: `param "id" must be a constraint or a mapping`,
		},
		{
			name: "relative group prefix",
			doc:  "groups:\n  - prefix: api\n    routes:\n      - path: /a\n        target: a\n",
			want: `group prefix "api" must start with /`,
		},
		{
			name: "missing target in group",
			doc:  "groups:\n  - prefix: /api\n    routes:\n      - path: /a\n",
			want: `route "/a" has no target`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRoutes(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidRouteFile)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadRoutesEmpty(t *testing.T) {
	defs, err := ReadRoutes(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadRoutes(t *testing.T) {
	dir := t.TempDir()

	name := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(name, []byte(sampleRoutes), 0o600))

	defs, err := LoadRoutes(name)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	_, err = LoadRoutes(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("routes:\n  - path: /a\n"), 0o600))

	_, err = LoadRoutes(broken)
	assert.ErrorIs(t, err, ErrInvalidRouteFile)
	assert.ErrorContains(t, err, broken)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/a", joinPath("", "/a"))
	assert.Equal(t, "/api/a", joinPath("/api", "/a"))
	assert.Equal(t, "/api/a", joinPath("/api/", "a"))
	assert.Equal(t, "/api/", joinPath("/api", "/"))
}
