package model

import (
	"strings"

	"modulith/internal/engine/typegraph"
)

const internalSegment = "internal"

// computeExposure decides the exposed surface of mod:
//  1. an explicit marker on the type or a config entry wins, and false forces
//     the type internal;
//  2. otherwise a type is exposed unless its package has an "internal"
//     segment beneath the module's base package;
//  3. interfaces referenced by the signature of an exposed type of the same
//     module are exposed as well, repeated until nothing changes. References
//     from other modules never expose a type; only the owning module's
//     exposed surface does.
func computeExposure(graph *typegraph.Graph, mod *Module, explicit map[string]bool) {
	forced := make(map[string]bool)
	queue := make([]*typegraph.Type, 0, len(mod.types))
	for _, t := range mod.types {
		if v, ok := explicit[t.Name]; ok {
			forced[t.Name] = true
			if v {
				mod.exposed[t.Name] = true
				queue = append(queue, t)
			}
			continue
		}
		if t.Exposed || !inInternalPackage(t.Package, mod.BasePackage) {
			mod.exposed[t.Name] = true
			queue = append(queue, t)
		}
	}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, ref := range graph.ReferencesFrom(t) {
			if !mod.Contains(ref.Target) || mod.exposed[ref.Target] || forced[ref.Target] {
				continue
			}
			target, ok := graph.Lookup(ref.Target)
			if !ok || !target.IsAbstract() {
				continue
			}
			mod.exposed[target.Name] = true
			queue = append(queue, target)
		}
	}
}

func inInternalPackage(pkg, base string) bool {
	rel := pkg
	if base != "" && typegraph.IsSubPackage(pkg, base) {
		rel = strings.TrimPrefix(pkg, base)
	}
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '.' }) {
		if seg == internalSegment {
			return true
		}
	}
	return false
}
