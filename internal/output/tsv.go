package output

import (
	"fmt"
	"strings"

	"modulith/internal/engine/model"
)

// TSV lists every rendered type-level reference behind the module edges.
func (d *Documenter) TSV() string {
	var buf strings.Builder
	buf.WriteString("From\tTo\tSourceType\tTargetType\tKind\tMember\tFile\tLine\n")
	for _, e := range d.edges {
		for _, ref := range e.dep.References {
			if !containsType(e.types, model.DependencyTypeOf(ref.Kind)) {
				continue
			}
			file, line := "", 0
			for _, r := range ref.Source.References {
				if r.Target == ref.Target.Name && r.Kind == ref.Kind && r.Member == ref.Member {
					file, line = r.Location.File, r.Location.Line
					break
				}
			}
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				e.dep.Source.Name, e.dep.Target.Name, ref.Source.Name, ref.Target.Name, ref.Kind, ref.Member, file, line))
		}
	}
	return buf.String()
}

func containsType(types []model.DependencyType, want model.DependencyType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
