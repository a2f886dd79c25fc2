package verify

import (
	"modulith/internal/engine/model"
	"modulith/internal/engine/typegraph"
)

// Exclusion reports whether a type of a module is left out of verification.
// A module is excluded when every one of its types matches. Excluded types
// never originate violations but remain valid targets. A nil Exclusion
// excludes nothing.
type Exclusion func(mod *model.Module, t *typegraph.Type) bool

// WithoutModules excludes every type of the modules whose name matches one of
// the glob patterns.
func WithoutModules(patterns ...string) Exclusion {
	compiled := compilePatterns(patterns)
	return func(mod *model.Module, _ *typegraph.Type) bool {
		return mod != nil && matchPatterns(compiled, mod.Name)
	}
}

// WithoutTypes excludes types whose fully-qualified name matches one of the
// glob patterns.
func WithoutTypes(patterns ...string) Exclusion {
	compiled := compilePatterns(patterns)
	return func(_ *model.Module, t *typegraph.Type) bool {
		return t != nil && matchPatterns(compiled, t.Name)
	}
}

// Or excludes what either e or other excludes.
func (e Exclusion) Or(other Exclusion) Exclusion {
	return func(mod *model.Module, t *typegraph.Type) bool {
		return e.Excludes(mod, t) || other.Excludes(mod, t)
	}
}

func (e Exclusion) Excludes(mod *model.Module, t *typegraph.Type) bool {
	if e == nil {
		return false
	}
	return e(mod, t)
}

// ExcludesModule reports whether every type of mod is excluded. Empty modules
// are never excluded.
func (e Exclusion) ExcludesModule(mod *model.Module) bool {
	if e == nil || mod == nil {
		return false
	}
	types := mod.Types()
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if !e(mod, t) {
			return false
		}
	}
	return true
}
