package mux

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	before := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	c := NewContext(req)

	assert.Same(t, c, FromContext(c.Request.Context()))
	assert.Nil(t, FromContext(req.Context()))
	assert.False(t, c.Started().Before(before))

	for _, phase := range Phases() {
		require.NotNil(t, c.Chain(phase))
		assert.Equal(t, phase, c.Chain(phase).Phase())
		assert.Zero(t, c.Chain(phase).Len())
	}
	assert.Nil(t, c.Chain(phaseCount))
}

func TestContextBeforeMatch(t *testing.T) {
	c := NewContext(httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Nil(t, c.Route())
	assert.Nil(t, c.Match())
	assert.Nil(t, c.Vars())
	assert.Nil(t, c.Args())
	assert.Nil(t, c.MatchErr())
	assert.Nil(t, c.Err())

	_, ok := c.Param("id")
	assert.False(t, ok)

	assert.Nil(t, Vars(c.Request))
	assert.Nil(t, CurrentRoute(c.Request))
	assert.Nil(t, Vars(httptest.NewRequest(http.MethodGet, "/x", nil)))
	assert.Nil(t, CurrentRoute(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

func TestContextMatch(t *testing.T) {
	table := MustTable(MustCompile(Definition{Path: "/users/{id:num}[/{tab:alpha}]", Methods: []string{http.MethodGet}, Target: "u"}))
	c := NewContext(httptest.NewRequest(http.MethodGet, "/users/5", nil))
	c.setMatch(table.Match("/users/5", http.MethodGet))

	assert.Equal(t, "u", c.Route().Target())
	assert.Equal(t, map[string]string{"id": "5"}, c.Vars())
	assert.Equal(t, []string{"5", ""}, c.Args())
	assert.Equal(t, map[string]string{"id": "5"}, Vars(c.Request))
	assert.Same(t, c.Route(), CurrentRoute(c.Request))

	v, ok := c.Param("id")
	assert.True(t, ok)
	assert.Equal(t, "5", v)

	v, ok = c.Param("tab")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestContextValues(t *testing.T) {
	type key struct{}
	c := NewContext(httptest.NewRequest(http.MethodGet, "/", nil))

	_, ok := c.Get(key{})
	assert.False(t, ok)

	c.Set(key{}, 42)
	v, ok := c.Get(key{})
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	c.Set("name", "value")
	v, _ = c.Get("name")
	assert.Equal(t, "value", v)
}

func TestContextKeepsRequestContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "outer")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	c := NewContext(req)
	assert.Equal(t, "outer", c.Request.Context().Value(key{}))
}

func TestContextBindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"alice"}`, want: "alice"},
		{name: "unknown field", body: `{"name":"alice","age":3}`, wantErr: true},
		{name: "trailing data", body: `{"name":"alice"}{"name":"bob"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			var p payload
			err := c.BindJSON(&p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}
