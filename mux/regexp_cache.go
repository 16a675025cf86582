package mux

import (
	"regexp"
	"sync"
)

// regexpCache caches compiled route patterns by pattern string. Compiling
// the same definition twice, or loading a cached table after compiling it,
// yields the same *regexp.Regexp. The number of patterns is bounded by the
// registered routes.
var regexpCache sync.Map // map[string]*regexp.Regexp

// compileRegexp returns a cached *regexp.Regexp for the given pattern,
// compiling and caching it on first use.
func compileRegexp(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexpCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := regexpCache.LoadOrStore(pattern, re)

	return actual.(*regexp.Regexp), nil
}
