package muxhandlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vitalvas/waypoint/mux"
)

// ErrNoCacheControlRules is returned when CacheControlConfig.Rules is empty.
var ErrNoCacheControlRules = errors.New("cache control: at least one rule is required")

// CacheControlRule maps a Content-Type prefix to Cache-Control and Expires
// header values.
type CacheControlRule struct {
	// ContentType is a content type prefix to match against the response
	// Content-Type (e.g. "image/", "application/json"). Matching is
	// case-insensitive.
	ContentType string

	// Value is the Cache-Control header value to set when this rule
	// matches (e.g. "public, max-age=86400").
	Value string

	// Expires is the duration added to the current time to compute the
	// Expires header value. A zero duration produces an already expired
	// date; a negative duration means no Expires header is set.
	Expires time.Duration
}

// CacheControlConfig configures the CacheControl middleware behaviour.
type CacheControlConfig struct {
	// Rules is the ordered list of content type rules. The first matching
	// rule wins. Required; at least one must be provided.
	Rules []CacheControlRule

	// DefaultValue is the Cache-Control header value for responses that
	// don't match any rule. When empty, no header is set for unmatched
	// types.
	DefaultValue string

	// DefaultExpires is the Expires duration for responses that don't match
	// any rule. A negative duration means no Expires header is set.
	DefaultExpires time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// cacheControlRule is a pre-normalized copy of CacheControlRule.
type cacheControlRule struct {
	contentType string
	value       string
	expires     time.Duration
	hasExpires  bool
}

// CacheControlMiddleware returns a sending-response middleware that sets
// Cache-Control and Expires headers based on the response Content-Type.
// Rules are evaluated in order; the first rule whose ContentType prefix
// matches wins. Headers already set by the dispatch target are kept.
//
// It returns ErrNoCacheControlRules if Rules is empty.
func CacheControlMiddleware(cfg CacheControlConfig) (mux.MiddlewareFunc, error) {
	if len(cfg.Rules) == 0 {
		return nil, ErrNoCacheControlRules
	}

	rules := make([]cacheControlRule, len(cfg.Rules))
	for i, r := range cfg.Rules {
		rules[i] = cacheControlRule{
			contentType: strings.ToLower(r.ContentType),
			value:       r.Value,
			expires:     r.Expires,
			hasExpires:  r.Expires >= 0,
		}
	}

	fallback := cacheControlRule{
		value:      cfg.DefaultValue,
		expires:    cfg.DefaultExpires,
		hasExpires: cfg.DefaultExpires >= 0,
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		if res == nil {
			return next(c, res)
		}
		if res.Header == nil {
			res.Header = make(http.Header)
		}

		h := res.Header
		ccSet := h.Get("Cache-Control") != ""
		exSet := h.Get("Expires") != ""

		if !ccSet || !exSet {
			ct := strings.ToLower(h.Get("Content-Type"))

			rule := fallback
			for _, r := range rules {
				if strings.HasPrefix(ct, r.contentType) {
					rule = r
					break
				}
			}

			if !ccSet && rule.value != "" {
				h.Set("Cache-Control", rule.value)
			}

			if !exSet && rule.hasExpires {
				h.Set("Expires", now().UTC().Add(rule.expires).Format(http.TimeFormat))
			}
		}

		return next(c, res)
	}, nil
}
