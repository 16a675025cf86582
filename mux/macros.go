package mux

import (
	"fmt"
	"regexp"
)

// macro holds a pattern string and its pre-compiled validation regexp.
type macro struct {
	pattern string
	matcher *regexp.Regexp
}

// patternMacros maps constraint aliases to their patterns.
// Used in parameter constraints: {name:alias} or NewParameter(name, alias).
var patternMacros = func() map[string]macro {
	raw := map[string]string{
		"num":                  `\d+`,
		"slug":                 `[a-zA-Z0-9-]+`,
		"alpha":                `[a-zA-Z]+`,
		"alpha-lowercase":      `[a-z]+`,
		"alpha-uppercase":      `[A-Z]+`,
		"alpha-num":            `[a-zA-Z0-9]+`,
		"alpha-num-underscore": `\w+`,

		"uuid":  `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		"int":   `[0-9]+`,
		"float": `[0-9]*\.?[0-9]+`,
		"date":  `[0-9]{4}-[0-9]{2}-[0-9]{2}`,
		"hex":   `[0-9a-fA-F]+`,
	}

	m := make(map[string]macro, len(raw))
	for name, pattern := range raw {
		m[name] = macro{
			pattern: pattern,
			matcher: regexp.MustCompile(fmt.Sprintf("^%s$", pattern)),
		}
	}

	return m
}()

// expandMacro returns the regex pattern string and a pre-compiled
// validation regexp for an alias. If the name is not a known alias,
// it returns the input unchanged with a nil matcher (caller must compile).
func expandMacro(pattern string) (string, *regexp.Regexp) {
	if m, ok := patternMacros[pattern]; ok {
		return m.pattern, m.matcher
	}

	return pattern, nil
}

// IsAlias reports whether name is a known constraint alias.
func IsAlias(name string) bool {
	_, ok := patternMacros[name]
	return ok
}
