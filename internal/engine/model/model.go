package model

import (
	"sort"
	"strings"

	"modulith/internal/core/errors"
	"modulith/internal/engine/typegraph"
)

// Config replaces annotation-driven module metadata with explicit values.
type Config struct {
	// RootPackage is the application root. When BasePackages is empty every
	// package directly beneath it becomes a module.
	RootPackage  string
	BasePackages []string
	// ExplicitExposures forces a type exposed (true) or internal (false),
	// keyed by fully-qualified type name.
	ExplicitExposures map[string]bool
	// ExplicitAllowedDependencies maps a module name to the module name
	// patterns it may depend on. A present key restricts the module, even
	// with an empty list.
	ExplicitAllowedDependencies map[string][]string
	DisplayNames                map[string]string
	// Names overrides the derived module name, keyed by base package.
	Names map[string]string
}

type Model struct {
	graph     *typegraph.Graph
	modules   []*Module
	byName    map[string]*Module
	byType    map[string]*Module
	ambiguous map[string][]*Module
	root      *Module
	deps      map[*Module][]Dependency
	all       []Dependency
}

// Build partitions graph into modules, computes every module's exposed
// surface and collapses cross-module type references into dependency edges.
func Build(graph *typegraph.Graph, cfg Config) (*Model, error) {
	if graph == nil {
		return nil, errors.New(errors.CodeConfiguration, "type graph is required")
	}
	candidates, err := candidateBasePackages(graph, cfg)
	if err != nil {
		return nil, err
	}

	m := &Model{
		graph:     graph,
		byName:    make(map[string]*Module),
		byType:    make(map[string]*Module, graph.Len()),
		ambiguous: make(map[string][]*Module),
		deps:      make(map[*Module][]Dependency),
	}

	byBase := make(map[string]*Module, len(candidates))
	for _, base := range candidates {
		name := moduleName(base, cfg.Names)
		mod := newModule(name, base)
		if display, ok := cfg.DisplayNames[name]; ok && strings.TrimSpace(display) != "" {
			mod.DisplayName = display
		}
		if allowed, ok := cfg.ExplicitAllowedDependencies[name]; ok {
			mod.restricted = true
			mod.allowed = append(mod.allowed, allowed...)
		}
		byBase[base] = mod
	}

	for _, t := range graph.Types() {
		base, ok := longestPrefixMatch(t.Package, candidates)
		var mod *Module
		if ok {
			mod = byBase[base]
		} else {
			if m.root == nil {
				m.root = newModule(RootModuleName, cfg.RootPackage)
				m.root.Root = true
			}
			mod = m.root
		}
		mod.add(t)
		m.byType[t.Name] = mod
	}

	for _, base := range candidates {
		mod := byBase[base]
		if len(mod.types) == 0 {
			continue
		}
		m.modules = append(m.modules, mod)
	}
	if graph.Len() > 0 && len(m.modules) == 0 {
		return nil, errors.Newf(errors.CodeConfiguration,
			"no modules found beneath root package %q", cfg.RootPackage)
	}
	sortModules(m.modules)

	for _, mod := range m.modules {
		if existing, dup := m.byName[mod.Name]; dup {
			if len(m.ambiguous[mod.Name]) == 0 {
				m.ambiguous[mod.Name] = append(m.ambiguous[mod.Name], existing)
			}
			m.ambiguous[mod.Name] = append(m.ambiguous[mod.Name], mod)
			continue
		}
		m.byName[mod.Name] = mod
	}

	for _, mod := range m.allModules() {
		computeExposure(graph, mod, cfg.ExplicitExposures)
	}
	m.buildDependencies()
	return m, nil
}

// Graph returns the type graph the model was built from.
func (m *Model) Graph() *typegraph.Graph {
	return m.graph
}

// Modules returns the named modules sorted by name. The implicit root module
// is not included; see RootModule.
func (m *Model) Modules() []*Module {
	out := make([]*Module, len(m.modules))
	copy(out, m.modules)
	return out
}

// RootModule returns the implicit module for unmatched types, if any.
func (m *Model) RootModule() (*Module, bool) {
	return m.root, m.root != nil
}

// ModuleByName finds a module by its exact, case-sensitive name.
func (m *Model) ModuleByName(name string) (*Module, bool) {
	if mod, ok := m.byName[name]; ok {
		return mod, true
	}
	if m.root != nil && name == RootModuleName {
		return m.root, true
	}
	return nil, false
}

func (m *Model) ModuleOf(t *typegraph.Type) (*Module, bool) {
	if t == nil {
		return nil, false
	}
	return m.ModuleOfName(t.Name)
}

func (m *Model) ModuleOfName(fqn string) (*Module, bool) {
	mod, ok := m.byType[fqn]
	return mod, ok
}

// DependenciesOf returns the outgoing edges of mod ordered by target module
// name, then base package.
func (m *Model) DependenciesOf(mod *Module) []Dependency {
	deps := m.deps[mod]
	out := make([]Dependency, len(deps))
	copy(out, deps)
	return out
}

// Dependencies returns every edge ordered by source, then target.
func (m *Model) Dependencies() []Dependency {
	out := make([]Dependency, len(m.all))
	copy(out, m.all)
	return out
}

// AmbiguousNames returns module names derived by more than one base package.
func (m *Model) AmbiguousNames() map[string][]*Module {
	out := make(map[string][]*Module, len(m.ambiguous))
	for name, mods := range m.ambiguous {
		out[name] = append([]*Module(nil), mods...)
	}
	return out
}

func (m *Model) allModules() []*Module {
	out := m.Modules()
	if m.root != nil {
		out = append(out, m.root)
	}
	return out
}

func (m *Model) buildDependencies() {
	edges := make(map[*Module]map[*Module]*Dependency)
	for _, t := range m.graph.Types() {
		src := m.byType[t.Name]
		for _, ref := range m.graph.ReferencesFrom(t) {
			tgt := m.byType[ref.Target]
			if tgt == nil || tgt == src {
				continue
			}
			target, _ := m.graph.Lookup(ref.Target)
			bySource, ok := edges[src]
			if !ok {
				bySource = make(map[*Module]*Dependency)
				edges[src] = bySource
			}
			dep, ok := bySource[tgt]
			if !ok {
				dep = &Dependency{Source: src, Target: tgt}
				bySource[tgt] = dep
			}
			dep.addReference(TypeReference{
				Source:     t,
				Target:     target,
				Kind:       ref.Kind,
				Member:     ref.Member,
				Parameters: ref.Parameters,
			})
		}
	}

	sources := m.allModules()
	sortModules(sources)
	for _, src := range sources {
		bySource := edges[src]
		if len(bySource) == 0 {
			continue
		}
		deps := make([]Dependency, 0, len(bySource))
		for _, dep := range bySource {
			deps = append(deps, *dep)
		}
		sort.Slice(deps, func(i, j int) bool {
			if deps[i].Target.Name != deps[j].Target.Name {
				return deps[i].Target.Name < deps[j].Target.Name
			}
			return deps[i].Target.BasePackage < deps[j].Target.BasePackage
		})
		m.deps[src] = deps
		m.all = append(m.all, deps...)
	}
}

func candidateBasePackages(graph *typegraph.Graph, cfg Config) ([]string, error) {
	seen := make(map[string]bool)
	candidates := make([]string, 0, len(cfg.BasePackages))
	for _, raw := range cfg.BasePackages {
		base := strings.TrimSpace(raw)
		if base == "" {
			return nil, errors.New(errors.CodeConfiguration, "empty base package")
		}
		if seen[base] {
			continue
		}
		seen[base] = true
		candidates = append(candidates, base)
	}
	if len(candidates) == 0 {
		candidates = deriveBasePackages(graph, rootPackage(graph, cfg.RootPackage))
	}
	sort.Strings(candidates)

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if typegraph.IsSubPackage(a, b) || typegraph.IsSubPackage(b, a) {
				return nil, errors.Newf(errors.CodeConfiguration,
					"ambiguous base packages %q and %q are nested", a, b)
			}
		}
	}
	return candidates, nil
}

// deriveBasePackages returns every package directly beneath root that
// contains at least one type, itself or in a sub-package.
func deriveBasePackages(graph *typegraph.Graph, root string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, pkg := range graph.Packages() {
		if pkg == root || !typegraph.IsSubPackage(pkg, root) {
			continue
		}
		var base string
		if root == "" {
			base = typegraph.PackageSegments(pkg)[0]
		} else {
			sep := typegraph.PackageSeparator(pkg)
			rest := strings.TrimPrefix(pkg, root+sep)
			first := rest
			if idx := strings.Index(rest, sep); idx >= 0 {
				first = rest[:idx]
			}
			base = root + sep + first
		}
		if !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	return out
}

// rootPackage falls back to the longest common package prefix when no root
// is configured.
func rootPackage(graph *typegraph.Graph, configured string) string {
	if root := strings.TrimSpace(configured); root != "" {
		return root
	}
	pkgs := graph.Packages()
	if len(pkgs) == 0 {
		return ""
	}
	common := typegraph.PackageSegments(pkgs[0])
	sep := typegraph.PackageSeparator(pkgs[0])
	for _, pkg := range pkgs[1:] {
		segs := typegraph.PackageSegments(pkg)
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	return strings.Join(common, sep)
}

func longestPrefixMatch(pkg string, candidates []string) (string, bool) {
	best := ""
	found := false
	for _, base := range candidates {
		if !typegraph.IsSubPackage(pkg, base) {
			continue
		}
		if !found || len(base) > len(best) {
			best = base
			found = true
		}
	}
	return best, found
}

func moduleName(base string, overrides map[string]string) string {
	if name, ok := overrides[base]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	segs := typegraph.PackageSegments(base)
	if len(segs) == 0 {
		return base
	}
	return segs[len(segs)-1]
}
