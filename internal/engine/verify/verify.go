// Package verify checks a module model against the module boundary rules.
// Checks run in a fixed order: internal access, allow lists, cycles and
// ambiguous module names. A run always completes and reports every
// violation it finds.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"modulith/internal/engine/model"
	"modulith/internal/engine/typegraph"
)

const DefaultMaxCycles = 100

type Options struct {
	// VerifyRoot makes the implicit root module a violation source and a
	// cycle node.
	VerifyRoot bool
	// MaxCycles bounds elementary cycle enumeration. Values <= 0 use
	// DefaultMaxCycles.
	MaxCycles int
}

type Verifier struct {
	opts Options
}

func New(opts Options) *Verifier {
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = DefaultMaxCycles
	}
	return &Verifier{opts: opts}
}

// Verify runs every check with default options.
func Verify(m *model.Model, exclude Exclusion) Violations {
	return New(Options{}).Verify(m, exclude)
}

func (v *Verifier) Verify(m *model.Model, exclude Exclusion) Violations {
	if m == nil {
		return nil
	}
	run := &run{
		model:   m,
		exclude: exclude,
		names:   typegraph.NewFormatCache(m.Graph().Len()),
		opts:    v.opts,
	}
	run.sources = run.sourceModules()

	out := make(Violations, 0)
	out = append(out, run.internalAccess()...)
	out = append(out, run.allowList()...)
	out = append(out, run.cycles()...)
	out = append(out, run.ambiguousNames()...)
	return out
}

type run struct {
	model   *model.Model
	exclude Exclusion
	names   *typegraph.FormatCache
	opts    Options
	sources []*model.Module
}

// sourceModules returns the modules that may originate violations.
func (r *run) sourceModules() []*model.Module {
	mods := r.model.Modules()
	if root, ok := r.model.RootModule(); ok && r.opts.VerifyRoot {
		mods = append(mods, root)
	}
	out := make([]*model.Module, 0, len(mods))
	for _, mod := range mods {
		if r.exclude.ExcludesModule(mod) {
			continue
		}
		out = append(out, mod)
	}
	return out
}

// references returns the type references of dep whose source type is not
// excluded.
func (r *run) references(dep model.Dependency) []model.TypeReference {
	out := make([]model.TypeReference, 0, len(dep.References))
	for _, ref := range dep.References {
		if r.exclude.Excludes(dep.Source, ref.Source) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func (r *run) internalAccess() Violations {
	out := make(Violations, 0)
	for _, mod := range r.sources {
		for _, dep := range r.model.DependenciesOf(mod) {
			type pair struct{ source, target string }
			order := make([]pair, 0)
			byPair := make(map[pair]model.TypeReference)
			for _, ref := range r.references(dep) {
				if dep.Target.IsExposed(ref.Target.Name) {
					continue
				}
				key := pair{ref.Source.Name, ref.Target.Name}
				existing, seen := byPair[key]
				if !seen {
					order = append(order, key)
					byPair[key] = ref
					continue
				}
				if existing.Kind != typegraph.RefConstructor && ref.Kind == typegraph.RefConstructor {
					byPair[key] = ref
				}
			}
			for _, key := range order {
				ref := byPair[key]
				out = append(out, Violation{
					Kind: KindInternalAccess,
					Message: fmt.Sprintf("Module '%s' depends on non-exposed type %s within module '%s'!\n%s",
						mod.Name, r.names.Of(ref.Target).FullName(), dep.Target.Name, r.describe(ref)),
					Modules: []string{mod.Name, dep.Target.Name},
					Types:   []string{ref.Source.Name, ref.Target.Name},
				})
			}
		}
	}
	return out
}

func (r *run) allowList() Violations {
	out := make(Violations, 0)
	for _, mod := range r.sources {
		allowed, restricted := mod.AllowedDependencies()
		if !restricted {
			continue
		}
		patterns := compilePatterns(allowed)
		for _, dep := range r.model.DependenciesOf(mod) {
			refs := r.references(dep)
			if len(refs) == 0 || matchPatterns(patterns, dep.Target.Name) {
				continue
			}
			ref := refs[0]
			allowedText := "none"
			if len(allowed) > 0 {
				allowedText = strings.Join(allowed, ", ")
			}
			out = append(out, Violation{
				Kind: KindDisallowedDependency,
				Message: fmt.Sprintf("Module '%s' depends on module '%s' via %s -> %s. Allowed targets: %s.",
					mod.Name, dep.Target.Name,
					r.names.Of(ref.Source).FullName(), r.names.Of(ref.Target).FullName(), allowedText),
				Modules: []string{mod.Name, dep.Target.Name},
				Types:   []string{ref.Source.Name, ref.Target.Name},
			})
		}
	}
	return out
}

// cycleNode identifies a module in the cycle graph. Names alone are not
// unique when base packages derive the same name; the name prefix keeps
// cycles ordered by module name.
func cycleNode(mod *model.Module) string {
	return mod.Name + "\x00" + mod.BasePackage
}

func (r *run) cycles() Violations {
	g := newModuleGraph()
	byNode := make(map[string]*model.Module, len(r.sources))
	for _, mod := range r.sources {
		id := cycleNode(mod)
		g.addNode(id)
		byNode[id] = mod
	}
	representative := make(map[[2]string]model.TypeReference)
	for _, mod := range r.sources {
		from := cycleNode(mod)
		for _, dep := range r.model.DependenciesOf(mod) {
			to := cycleNode(dep.Target)
			if _, ok := byNode[to]; !ok {
				continue
			}
			refs := r.references(dep)
			if len(refs) == 0 {
				continue
			}
			g.addEdge(from, to)
			key := [2]string{from, to}
			if _, ok := representative[key]; !ok {
				representative[key] = refs[0]
			}
		}
	}
	g.sort()

	cycles, truncated := g.elementaryCycles(r.opts.MaxCycles)
	out := make(Violations, 0, len(cycles))
	for _, cycle := range cycles {
		names := make([]string, 0, len(cycle))
		for _, id := range cycle {
			names = append(names, byNode[id].Name)
		}
		var b strings.Builder
		b.WriteString("Cycle detected: ")
		b.WriteString(strings.Join(append(append([]string(nil), names...), names[0]), " -> "))
		types := make([]string, 0, len(cycle)*2)
		for i, from := range cycle {
			to := cycle[(i+1)%len(cycle)]
			ref := representative[[2]string{from, to}]
			fmt.Fprintf(&b, "\n  %s -> %s: %s", byNode[from].Name, byNode[to].Name, r.describe(ref))
			types = append(types, ref.Source.Name, ref.Target.Name)
		}
		out = append(out, Violation{
			Kind:    KindCycle,
			Message: b.String(),
			Modules: names,
			Types:   types,
		})
	}
	if truncated {
		out = append(out, Violation{
			Kind:    KindCycle,
			Message: fmt.Sprintf("Cycle detection stopped after %d cycles; further cycles were not reported.", r.opts.MaxCycles),
		})
	}
	return out
}

func (r *run) ambiguousNames() Violations {
	ambiguous := r.model.AmbiguousNames()
	names := make([]string, 0, len(ambiguous))
	for name := range ambiguous {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Violations, 0, len(names))
	for _, name := range names {
		mods := ambiguous[name]
		bases := make([]string, 0, len(mods))
		excluded := 0
		for _, mod := range mods {
			bases = append(bases, mod.BasePackage)
			if r.exclude.ExcludesModule(mod) {
				excluded++
			}
		}
		if excluded == len(mods) {
			continue
		}
		out = append(out, Violation{
			Kind: KindAmbiguousModuleName,
			Message: fmt.Sprintf("Module name '%s' is derived from multiple base packages: %s. Declare a distinct name for each.",
				name, strings.Join(bases, ", ")),
			Modules: []string{name},
		})
	}
	return out
}

// describe renders the detail line for a type reference.
func (r *run) describe(ref model.TypeReference) string {
	if ref.Source == nil || ref.Target == nil {
		return ""
	}
	src := r.names.Of(ref.Source).Abbreviated()
	target := r.names.Of(ref.Target).Abbreviated()
	params := strings.Join(ref.Parameters, ", ")
	switch ref.Kind {
	case typegraph.RefConstructor:
		return fmt.Sprintf("%s declares constructor %s(%s)", src, ref.Member, params)
	case typegraph.RefField:
		return fmt.Sprintf("%s declares field %s of type %s", src, ref.Member, target)
	case typegraph.RefParameter, typegraph.RefReturn:
		return fmt.Sprintf("%s declares method %s(%s) using %s", src, ref.Member, params, target)
	case typegraph.RefSupertype:
		if typegraph.PackageSeparator(ref.Source.Package) == "/" {
			return fmt.Sprintf("%s embeds %s", src, target)
		}
		return fmt.Sprintf("%s extends %s", src, target)
	case typegraph.RefEventListener:
		return fmt.Sprintf("%s listens to %s in %s", src, target, ref.Member)
	default:
		return fmt.Sprintf("%s references %s", src, target)
	}
}
