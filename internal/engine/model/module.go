// Package model partitions a type graph into modules and derives the typed
// dependency edges between them. A Model is built once per analysis run and
// never mutated afterwards.
package model

import (
	"sort"

	"modulith/internal/engine/typegraph"
)

const RootModuleName = "root"

type DependencyType string

const (
	DependencyDefault       DependencyType = "DEFAULT"
	DependencyUsesComponent DependencyType = "USES_COMPONENT"
	DependencyEventListener DependencyType = "EVENT_LISTENER"
)

// DependencyTypeOf maps a type-level reference kind to the edge tag it
// contributes.
func DependencyTypeOf(kind typegraph.RefKind) DependencyType {
	switch kind {
	case typegraph.RefConstructor:
		return DependencyUsesComponent
	case typegraph.RefEventListener:
		return DependencyEventListener
	default:
		return DependencyDefault
	}
}

type Module struct {
	Name        string
	BasePackage string
	DisplayName string
	// Root marks the implicit module collecting types outside every base
	// package.
	Root bool

	types      []*typegraph.Type
	typeIndex  map[string]bool
	exposed    map[string]bool
	allowed    []string
	restricted bool
}

func newModule(name, basePackage string) *Module {
	return &Module{
		Name:        name,
		BasePackage: basePackage,
		DisplayName: name,
		typeIndex:   make(map[string]bool),
		exposed:     make(map[string]bool),
	}
}

func (m *Module) add(t *typegraph.Type) {
	m.types = append(m.types, t)
	m.typeIndex[t.Name] = true
}

// Types returns the member types sorted by fully-qualified name.
func (m *Module) Types() []*typegraph.Type {
	out := make([]*typegraph.Type, len(m.types))
	copy(out, m.types)
	return out
}

func (m *Module) ExposedTypes() []*typegraph.Type {
	out := make([]*typegraph.Type, 0, len(m.exposed))
	for _, t := range m.types {
		if m.exposed[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// InternalTypes returns the member types other modules must not reference.
func (m *Module) InternalTypes() []*typegraph.Type {
	out := make([]*typegraph.Type, 0, len(m.types)-len(m.exposed))
	for _, t := range m.types {
		if !m.exposed[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func (m *Module) Contains(fqn string) bool {
	return m.typeIndex[fqn]
}

func (m *Module) IsExposed(fqn string) bool {
	return m.exposed[fqn]
}

// AllowedDependencies returns the declared allow-list patterns. ok is false
// when the module does not restrict its dependencies at all.
func (m *Module) AllowedDependencies() (patterns []string, ok bool) {
	if !m.restricted {
		return nil, false
	}
	out := make([]string, len(m.allowed))
	copy(out, m.allowed)
	return out, true
}

func (m *Module) String() string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

// TypeReference is one type-level reference contributing to a module edge.
type TypeReference struct {
	Source     *typegraph.Type
	Target     *typegraph.Type
	Kind       typegraph.RefKind
	Member     string
	Parameters []string
}

type Dependency struct {
	Source *Module
	Target *Module
	Types  []DependencyType
	// References lists the contributing type pairs in discovery order.
	References []TypeReference
}

func (d Dependency) HasType(dt DependencyType) bool {
	for _, t := range d.Types {
		if t == dt {
			return true
		}
	}
	return false
}

// Representative returns the first contributing type reference.
func (d Dependency) Representative() TypeReference {
	if len(d.References) == 0 {
		return TypeReference{}
	}
	return d.References[0]
}

func (d *Dependency) addReference(ref TypeReference) {
	for _, existing := range d.References {
		if existing.Source == ref.Source && existing.Target == ref.Target &&
			existing.Kind == ref.Kind && existing.Member == ref.Member {
			return
		}
	}
	d.References = append(d.References, ref)
	dt := DependencyTypeOf(ref.Kind)
	if !d.HasType(dt) {
		d.Types = append(d.Types, dt)
		sort.Slice(d.Types, func(i, j int) bool { return d.Types[i] < d.Types[j] })
	}
}

func sortModules(modules []*Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Name != modules[j].Name {
			return modules[i].Name < modules[j].Name
		}
		return modules[i].BasePackage < modules[j].BasePackage
	})
}
