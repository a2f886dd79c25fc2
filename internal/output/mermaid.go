package output

import (
	"fmt"
	"strings"
)

// Mermaid renders the module graph as a flowchart with cycle edges styled
// red.
func (d *Documenter) Mermaid() string {
	ids := moduleIDs(d.modules)

	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")
	for _, mod := range d.modules {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[mod], escapeLabel(d.displayName(mod))))
	}

	var cycleNodes []string
	seen := make(map[string]bool)
	for _, e := range d.edges {
		if !e.cycle {
			continue
		}
		for _, id := range []string{ids[e.dep.Source], ids[e.dep.Target]} {
			if !seen[id] {
				seen[id] = true
				cycleNodes = append(cycleNodes, id)
			}
		}
	}
	if len(cycleNodes) > 0 {
		b.WriteString("\n  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString("  class " + strings.Join(cycleNodes, ",") + " cycleNode;\n")
	}
	for _, mod := range d.modules {
		if color := d.color(mod); color != "" {
			b.WriteString(fmt.Sprintf("  style %s fill:%s\n", ids[mod], color))
		}
	}

	b.WriteString("\n")
	var cycleLinks []string
	for i, e := range d.edges {
		b.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", ids[e.dep.Source], edgeLabel(e.types), ids[e.dep.Target]))
		if e.cycle {
			cycleLinks = append(cycleLinks, fmt.Sprintf("%d", i))
		}
	}
	if len(cycleLinks) > 0 {
		b.WriteString(fmt.Sprintf("\n  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", strings.Join(cycleLinks, ",")))
	}
	return b.String()
}
