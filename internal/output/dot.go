package output

import (
	"fmt"
	"strings"
)

// DOT renders the module graph for Graphviz.
func (d *Documenter) DOT() string {
	ids := moduleIDs(d.modules)
	inCycle := make(map[string]bool)
	for _, e := range d.edges {
		if e.cycle {
			inCycle[ids[e.dep.Source]] = true
			inCycle[ids[e.dep.Target]] = true
		}
	}

	var buf strings.Builder
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=\"white\", fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n\n")

	for _, mod := range d.modules {
		id := ids[mod]
		label := fmt.Sprintf("%s\\n(%d exposed, %d internal)", escapeLabel(d.displayName(mod)), len(mod.ExposedTypes()), len(mod.InternalTypes()))
		switch {
		case inCycle[id]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", id, label))
		case d.color(mod) != "":
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n", id, label, d.color(mod)))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", id, label))
		}
	}
	buf.WriteString("\n")

	for _, e := range d.edges {
		from, to := ids[e.dep.Source], ids[e.dep.Target]
		if e.cycle {
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"red\", penwidth=3.0, label=\"CYCLE\"];\n", from, to))
			continue
		}
		buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", label=\"%s\"];\n", from, to, edgeLabel(e.types)))
	}
	buf.WriteString("}\n")
	return buf.String()
}
