package output

import (
	"fmt"
	"strings"

	"modulith/internal/engine/model"
)

// ModulesAsPlantUML renders a component diagram of every shown module.
func (d *Documenter) ModulesAsPlantUML() string {
	return d.plantUML(d.modules, d.edges)
}

// ModuleAsPlantUML renders mod together with its direct neighbours.
func (d *Documenter) ModuleAsPlantUML(mod *model.Module) string {
	edges := d.edgesOf(mod)
	seen := map[*model.Module]bool{mod: true}
	mods := []*model.Module{mod}
	for _, e := range edges {
		for _, other := range []*model.Module{e.dep.Source, e.dep.Target} {
			if !seen[other] {
				seen[other] = true
				mods = append(mods, other)
			}
		}
	}
	return d.plantUML(mods, edges)
}

func (d *Documenter) plantUML(mods []*model.Module, edges []edge) string {
	ids := moduleIDs(mods)

	var b strings.Builder
	b.WriteString("@startuml\n")
	if d.opts.Style == StyleC4 {
		b.WriteString("!include <C4/C4_Container>\n")
	} else {
		b.WriteString("skinparam componentStyle uml2\n")
		b.WriteString("skinparam linetype ortho\n")
	}
	b.WriteString("\n")

	for _, mod := range mods {
		name := escapeLabel(d.displayName(mod))
		color := d.color(mod)
		if d.opts.Style == StyleC4 {
			b.WriteString(fmt.Sprintf("Container(%s, \"%s\", \"Module\", \"%s\")\n", ids[mod], name, escapeLabel(mod.BasePackage)))
			continue
		}
		line := fmt.Sprintf("component \"%s\" as %s", name, ids[mod])
		if color != "" {
			line += " " + color
		}
		b.WriteString(line + "\n")
	}
	if len(edges) > 0 {
		b.WriteString("\n")
	}

	for _, e := range edges {
		from, to := ids[e.dep.Source], ids[e.dep.Target]
		label := edgeLabel(e.types)
		if d.opts.Style == StyleC4 {
			b.WriteString(fmt.Sprintf("Rel(%s, %s, \"%s\")\n", from, to, label))
			continue
		}
		arrow := "..>"
		if e.cycle {
			arrow = "-[#red,thickness=2]->"
		}
		b.WriteString(fmt.Sprintf("%s %s %s : %s\n", from, arrow, to, label))
	}

	b.WriteString("\n@enduml\n")
	return b.String()
}
