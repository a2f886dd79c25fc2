package typegraph

import (
	"context"
	"sort"
	"strings"

	"modulith/internal/core/errors"
)

// Graph is an immutable, name-indexed snapshot of every type in one analysis
// run. It is safe for concurrent reads.
type Graph struct {
	types    map[string]*Type
	ordered  []*Type
	packages []string
}

func New(types []*Type) (*Graph, error) {
	g := &Graph{
		types:   make(map[string]*Type, len(types)),
		ordered: make([]*Type, 0, len(types)),
	}
	pkgSet := make(map[string]bool)
	for _, t := range types {
		if t == nil {
			continue
		}
		if strings.TrimSpace(t.Name) == "" {
			return nil, errors.New(errors.CodeValidationError, "type without a name")
		}
		if _, dup := g.types[t.Name]; dup {
			return nil, errors.Newf(errors.CodeValidationError, "duplicate type %s", t.Name)
		}
		g.types[t.Name] = t
		g.ordered = append(g.ordered, t)
		pkgSet[t.Package] = true
	}
	sort.Slice(g.ordered, func(i, j int) bool {
		return g.ordered[i].Name < g.ordered[j].Name
	})
	for pkg := range pkgSet {
		g.packages = append(g.packages, pkg)
	}
	sort.Strings(g.packages)
	return g, nil
}

// Load reads every type from src and builds a graph.
func Load(ctx context.Context, src Source) (*Graph, error) {
	types, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(types)
}

// Types returns all types sorted by fully-qualified name.
func (g *Graph) Types() []*Type {
	out := make([]*Type, len(g.ordered))
	copy(out, g.ordered)
	return out
}

func (g *Graph) Len() int {
	return len(g.ordered)
}

func (g *Graph) Lookup(fqn string) (*Type, bool) {
	t, ok := g.types[fqn]
	return t, ok
}

// Packages returns the distinct package names, sorted.
func (g *Graph) Packages() []string {
	out := make([]string, len(g.packages))
	copy(out, g.packages)
	return out
}

// ReferencesFrom returns t's references whose target is part of the graph.
// Self references and references to external types are dropped.
func (g *Graph) ReferencesFrom(t *Type) []Reference {
	if t == nil {
		return nil
	}
	out := make([]Reference, 0, len(t.References))
	for _, ref := range t.References {
		if ref.Target == t.Name {
			continue
		}
		if _, ok := g.types[ref.Target]; !ok {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// InPackage returns the types declared in pkg and its sub-packages.
func (g *Graph) InPackage(pkg string) []*Type {
	out := make([]*Type, 0)
	for _, t := range g.ordered {
		if IsSubPackage(t.Package, pkg) {
			out = append(out, t)
		}
	}
	return out
}
