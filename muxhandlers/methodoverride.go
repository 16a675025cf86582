package muxhandlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ErrInvalidOverrideMethod is returned when MethodOverrideConfig lists a
// method that is not an upper-case HTTP token.
var ErrInvalidOverrideMethod = errors.New("method override: methods must be upper-case HTTP tokens")

// MethodOverrideConfig configures MethodOverrideHandler.
type MethodOverrideConfig struct {
	// HeaderNames are checked in order; the first non-empty value is the
	// override. Defaults to X-HTTP-Method-Override, X-Method-Override and
	// X-HTTP-Method.
	HeaderNames []string

	// OriginalMethods are the request methods eligible for override.
	// Defaults to POST.
	OriginalMethods []string

	// AllowedMethods are the methods a request may be turned into.
	// Defaults to PUT, PATCH, DELETE, HEAD and OPTIONS.
	AllowedMethods []string
}

var (
	defaultOverrideHeaders = []string{"X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"}
	defaultOriginalMethods = []string{http.MethodPost}
	defaultOverrideMethods = []string{
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodHead,
		http.MethodOptions,
	}
)

type originalMethodKey struct{}

// OriginalMethod returns the method the client sent before an override,
// or r.Method when no override was applied.
func OriginalMethod(r *http.Request) string {
	if m, ok := r.Context().Value(originalMethodKey{}).(string); ok {
		return m
	}
	return r.Method
}

// MethodOverrideHandler returns a wrapper that replaces the request method
// with the value of an override header before the router matches the path.
// The route table then answers 405 with the usual Allow header when the
// overridden method is not registered for the path.
//
// A header naming a method outside AllowedMethods leaves the request
// untouched. Applied overrides remove the header from the request.
func MethodOverrideHandler(cfg MethodOverrideConfig) (HandlerWrapper, error) {
	headers := cfg.HeaderNames
	if len(headers) == 0 {
		headers = defaultOverrideHeaders
	}
	headers = slices.Clone(headers)

	originals := cfg.OriginalMethods
	if originals == nil {
		originals = defaultOriginalMethods
	}
	allowed := cfg.AllowedMethods
	if allowed == nil {
		allowed = defaultOverrideMethods
	}

	for _, m := range slices.Concat(originals, allowed) {
		if !validMethod(m) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOverrideMethod, m)
		}
	}

	originalSet := toSet(originals)
	allowedSet := toSet(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := originalSet[r.Method]; ok {
				if name, value := firstHeader(r.Header, headers); value != "" {
					override := strings.ToUpper(strings.TrimSpace(value))
					if _, ok := allowedSet[override]; ok {
						r = r.WithContext(context.WithValue(r.Context(), originalMethodKey{}, r.Method))
						r.Method = override
						r.Header.Del(name)
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func validMethod(m string) bool {
	return m != "" && m == strings.ToUpper(m) && !strings.ContainsFunc(m, func(c rune) bool {
		return !httpguts.IsTokenRune(c)
	})
}

func firstHeader(h http.Header, names []string) (string, string) {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return name, v
		}
	}
	return "", ""
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
