package output

import (
	"fmt"
	"sort"
	"strings"

	"modulith/internal/engine/model"
	"modulith/internal/engine/typegraph"
)

// ModuleCanvas renders a Markdown summary of mod: base package, exposed
// types, dependencies and the events it listens to or publishes.
func (d *Documenter) ModuleCanvas(mod *model.Module) string {
	var b strings.Builder
	b.WriteString("# " + d.displayName(mod) + "\n\n")
	b.WriteString("| Property | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Base package | `%s` |\n", mod.BasePackage))
	b.WriteString(fmt.Sprintf("| Exposed types | %s |\n", d.typeList(mod, mod.ExposedTypes())))
	b.WriteString(fmt.Sprintf("| Internal types | %d |\n", len(mod.InternalTypes())))
	b.WriteString(fmt.Sprintf("| Dependencies | %s |\n", d.dependencyList(mod)))
	b.WriteString(fmt.Sprintf("| Event listeners | %s |\n", d.nameList(mod, d.listenedTo(mod))))
	b.WriteString(fmt.Sprintf("| Published events | %s |\n", d.nameList(mod, d.published(mod))))
	return b.String()
}

func (d *Documenter) typeList(mod *model.Module, types []*typegraph.Type) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}
	return d.nameList(mod, names)
}

func (d *Documenter) nameList(mod *model.Module, fqns []string) string {
	if len(fqns) == 0 {
		return "none"
	}
	out := make([]string, 0, len(fqns))
	for _, fqn := range fqns {
		out = append(out, "`"+d.names.OfName(fqn).AbbreviatedRelativeTo(mod.BasePackage)+"`")
	}
	return strings.Join(out, ", ")
}

func (d *Documenter) dependencyList(mod *model.Module) string {
	deps := d.model.DependenciesOf(mod)
	if len(deps) == 0 {
		return "none"
	}
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		types := d.filterTypes(dep.Types)
		if len(types) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s)", d.displayName(dep.Target), edgeLabel(types)))
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

// listenedTo returns the event types mod's listeners consume, wherever they
// are declared.
func (d *Documenter) listenedTo(mod *model.Module) []string {
	set := make(map[string]bool)
	for _, t := range mod.Types() {
		for _, ref := range d.model.Graph().ReferencesFrom(t) {
			if ref.Kind == typegraph.RefEventListener {
				set[ref.Target] = true
			}
		}
	}
	return sortedSet(set)
}

// published returns mod's types consumed by listeners of other modules.
func (d *Documenter) published(mod *model.Module) []string {
	set := make(map[string]bool)
	for _, dep := range d.model.Dependencies() {
		if dep.Target != mod {
			continue
		}
		for _, ref := range dep.References {
			if ref.Kind == typegraph.RefEventListener {
				set[ref.Target.Name] = true
			}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
