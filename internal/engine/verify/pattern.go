package verify

import (
	"strings"

	"github.com/gobwas/glob"
)

type compiledPattern struct {
	raw        string
	isWildcard bool
	glob       glob.Glob
}

// compilePatterns compiles glob patterns. Invalid patterns are skipped; plain
// strings match exactly.
func compilePatterns(raw []string) []compiledPattern {
	if len(raw) == 0 {
		return nil
	}
	out := make([]compiledPattern, 0, len(raw))
	for _, pattern := range raw {
		norm := strings.TrimSpace(pattern)
		if norm == "" {
			continue
		}
		cp := compiledPattern{
			raw:        norm,
			isWildcard: strings.ContainsAny(norm, "*?[]{}"),
		}
		if cp.isWildcard {
			g, err := glob.Compile(norm)
			if err != nil {
				continue
			}
			cp.glob = g
		}
		out = append(out, cp)
	}
	return out
}

func matchPatterns(patterns []compiledPattern, value string) bool {
	for _, p := range patterns {
		if p.isWildcard {
			if p.glob.Match(value) {
				return true
			}
			continue
		}
		if p.raw == value {
			return true
		}
	}
	return false
}
