package mux

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(path string, params ...Parameter) Definition {
	return Definition{Path: path, Methods: []string{http.MethodGet}, Params: params, Target: "t"}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		def      Definition
		variants []string
		regex    string
	}{
		{
			name:     "static path has no regex",
			def:      get("/users"),
			variants: []string{"/users"},
			regex:    "",
		},
		{
			name:     "inline alias",
			def:      get("/users/{id:num}"),
			variants: []string{"/users/{id:num}"},
			regex:    `^/users/(?P<id>\d+)$`,
		},
		{
			name:     "declared parameter",
			def:      get("/posts/{slug}", NewParameter("slug", "slug")),
			variants: []string{"/posts/{slug}"},
			regex:    `^/posts/(?P<slug>[a-zA-Z0-9-]+)$`,
		},
		{
			name:     "literal regex constraint with nested braces",
			def:      get("/archive/{year:[0-9]{4}}"),
			variants: []string{"/archive/{year:[0-9]{4}}"},
			regex:    `^/archive/(?P<year>[0-9]{4})$`,
		},
		{
			name:     "non-capturing parameter",
			def:      get("/files/{kind}", NewParameter("kind", "alpha").WithoutCapture()),
			variants: []string{"/files/{kind}"},
			regex:    `^/files/(?:[a-zA-Z]+)$`,
		},
		{
			name:     "optional static suffix",
			def:      get("/users/{id:num}[/edit]"),
			variants: []string{"/users/{id:num}", "/users/{id:num}/edit"},
			regex:    `^/users/(?P<id>\d+)/edit$`,
		},
		{
			name:     "optional parameter consumes separator",
			def:      get("/users[/{id:num}]"),
			variants: []string{"/users", "/users/{id:num}"},
			regex:    `^/users(?:/(?P<id>\d+))?$`,
		},
		{
			name:     "declared optional parameter outside brackets",
			def:      get("/feed/{page}", NewParameter("page", "num").AsOptional()),
			variants: []string{"/feed/{page}"},
			regex:    `^/feed(?:/(?P<page>\d+))?$`,
		},
		{
			name:     "literal text is escaped",
			def:      get("/v1.0/{name:alpha}.json"),
			variants: []string{"/v1.0/{name:alpha}.json"},
			regex:    `^/v1\.0/(?P<name>[a-zA-Z]+)\.json$`,
		},
		{
			name:     "trailing slash is trimmed",
			def:      get("/users/"),
			variants: []string{"/users"},
		},
		{
			name:     "root stays root",
			def:      get("/"),
			variants: []string{"/"},
		},
		{
			name:     "missing leading slash is added",
			def:      get("users"),
			variants: []string{"/users"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Compile(tt.def)
			require.NoError(t, err)

			var paths []string
			for _, v := range r.Variants() {
				paths = append(paths, v.Path)
			}
			assert.Equal(t, tt.variants, paths)
			assert.Equal(t, tt.regex, r.Regex())
		})
	}
}

func TestCompileOptionalSuffix(t *testing.T) {
	t.Run("each depth is a variant", func(t *testing.T) {
		r, err := Compile(get("/a[/b][/c]"))
		require.NoError(t, err)

		variants := r.Variants()
		require.Len(t, variants, 3)
		assert.Equal(t, "/a", variants[0].Path)
		assert.Equal(t, "/a/b", variants[1].Path)
		assert.Equal(t, "/a/b/c", variants[2].Path)
		assert.True(t, r.Static())
	})

	t.Run("nested and sibling forms are equivalent", func(t *testing.T) {
		nested, err := Compile(get("/a[/b[/c]]"))
		require.NoError(t, err)
		sibling, err := Compile(get("/a[/b][/c]"))
		require.NoError(t, err)
		assert.Equal(t, nested.Variants(), sibling.Variants())
	})

	t.Run("nested optional segments", func(t *testing.T) {
		r, err := Compile(get("/archive[/{year:num}[/{month:num}]]"))
		require.NoError(t, err)

		variants := r.Variants()
		require.Len(t, variants, 3)
		assert.True(t, variants[0].Static())
		assert.Equal(t, `^/archive(?:/(?P<year>\d+))?$`, variants[1].Regex)
		assert.Equal(t, `^/archive(?:/(?P<year>\d+))?(?:/(?P<month>\d+))?$`, variants[2].Regex)
		assert.Equal(t, []string{"year", "month"}, variants[2].Vars)
	})

	t.Run("brackets inside constraints are not segments", func(t *testing.T) {
		r, err := Compile(get("/codes/{code:[A-Z]{2}}"))
		require.NoError(t, err)
		assert.Len(t, r.Variants(), 1)
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr error
	}{
		{name: "optional segment not a suffix", def: get("/a[/b]/c"), wantErr: ErrOptionalSegmentsMisplaced},
		{name: "text after nested optional segment", def: get("/a[/b[/c]/d]"), wantErr: ErrOptionalSegmentsMisplaced},
		{name: "unclosed optional segment", def: get("/a[/b"), wantErr: ErrOptionalSegmentsMismatch},
		{name: "closing bracket without opener", def: get("/a/b]"), wantErr: ErrOptionalSegmentsMismatch},
		{name: "empty optional segment", def: get("/a[]"), wantErr: ErrInvalidOptionalPart},
		{name: "empty nested optional segment", def: get("/a[/b[]]"), wantErr: ErrInvalidOptionalPart},
		{name: "declared parameter without constraint", def: get("/users/{id}", Parameter{Name: "id", Capture: true}), wantErr: ErrRegexRequired},
		{name: "no methods", def: Definition{Path: "/users"}, wantErr: ErrNoMethods},
		{name: "invalid method token", def: Definition{Path: "/users", Methods: []string{"GE T"}}, wantErr: ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.def)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrCompile)
		})
	}
}

func TestCompileInvalidRoutePath(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		token string
	}{
		{name: "undeclared parameter", def: get("/users/{id}"), token: "{id}"},
		{name: "declared parameter not in path", def: get("/users", NewParameter("id", "num")), token: "id"},
		{name: "duplicated token", def: get("/a/{id:num}/{id:num}"), token: "id"},
		{name: "duplicated declaration", def: get("/a/{id}", NewParameter("id", "num"), NewParameter("id", "alpha")), token: "id"},
		{name: "invalid parameter name", def: get("/a/{user-id:num}"), token: "{user-id:num}"},
		{name: "unbalanced braces", def: get("/a/{id:num")},
		{name: "invalid constraint", def: get("/a/{id:[0-9}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.def)
			require.Error(t, err)

			var pathErr *InvalidRoutePathError
			require.True(t, errors.As(err, &pathErr), "got %v", err)
			assert.Equal(t, tt.token, pathErr.Token)
			assert.ErrorIs(t, err, ErrCompile)
			assert.Contains(t, err.Error(), tt.def.Path)
		})
	}
}

func TestCompileIdempotent(t *testing.T) {
	def := get("/users/{id:num}/posts/{slug}[/{page:num}]", NewParameter("slug", "slug"))

	r1, err := Compile(def)
	require.NoError(t, err)
	r2, err := Compile(def)
	require.NoError(t, err)

	require.Equal(t, len(r1.Variants()), len(r2.Variants()))
	for i := range r1.Variants() {
		assert.Equal(t, r1.Variants()[i].Regex, r2.Variants()[i].Regex)
	}
	assert.Same(t, r1.variants[1].regexp, r2.variants[1].regexp)
}

func TestCompileRouteModel(t *testing.T) {
	def := get("/blog/{slug}/{year:num}", NewParameter("slug", "slug"))
	def.Method("post", http.MethodGet).Named("blog.post").Use(PhaseRouteMatched, "auth")

	r, err := Compile(def)
	require.NoError(t, err)

	t.Run("parameters follow path order", func(t *testing.T) {
		params := r.Params()
		require.Len(t, params, 2)
		assert.Equal(t, "slug", params[0].Name)
		assert.Equal(t, "year", params[1].Name)
		assert.Equal(t, `\d+`, params[1].Regex)
	})

	t.Run("methods are upper-cased and deduplicated", func(t *testing.T) {
		assert.Equal(t, []string{http.MethodGet, http.MethodPost}, r.Methods())
		assert.True(t, r.AllowsMethod("post"))
		assert.True(t, r.AllowsMethod(http.MethodHead))
		assert.False(t, r.AllowsMethod(http.MethodDelete))
	})

	t.Run("metadata is carried over", func(t *testing.T) {
		assert.Equal(t, "blog.post", r.Name())
		assert.Equal(t, "t", r.Target())
		assert.Equal(t, []string{"auth"}, r.Middleware(PhaseRouteMatched))
		assert.Empty(t, r.Middleware(PhaseTerminated))
		assert.Nil(t, r.Middleware(Phase(42)))
	})

	t.Run("getters return copies", func(t *testing.T) {
		r.Methods()[0] = "DELETE"
		r.Params()[0].Name = "changed"
		assert.Equal(t, http.MethodGet, r.Methods()[0])
		assert.Equal(t, "slug", r.Params()[0].Name)
	})
}

func TestMustCompile(t *testing.T) {
	assert.NotPanics(t, func() { MustCompile(get("/ok")) })
	assert.Panics(t, func() { MustCompile(get("/a[/b]/c")) })
}

func TestSplitOptional(t *testing.T) {
	segments, err := splitOptional("/a/{x:[ab]}[/b[/c]]")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/{x:[ab]}", "/b", "/c"}, segments)
}

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "/"},
		{in: "/", want: "/"},
		{in: "/a/", want: "/a"},
		{in: "a", want: "/a"},
		{in: "/a[/b/]", want: "/a[/b]"},
		{in: " /a ", want: "/a"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalPath(tt.in))
		})
	}
}

func TestVariantTemplate(t *testing.T) {
	r, err := Compile(get("/files/{name:[a-z]{2,}}/{rev}[/{part:num}]", NewParameter("rev", "hex")))
	require.NoError(t, err)

	var templates []string
	for _, v := range r.Variants() {
		templates = append(templates, v.Template())
	}
	assert.Equal(t, []string{"/files/{name}/{rev}", "/files/{name}/{rev}/{part}"}, templates)

	assert.Equal(t, "/static", Variant{Path: "/static"}.Template())
	assert.Equal(t, "/broken/{id", Variant{Path: "/broken/{id"}.Template())
}
