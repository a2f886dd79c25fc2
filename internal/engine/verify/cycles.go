package verify

import "sort"

// moduleGraph is the condensed module-level graph cycle detection runs on:
// one node per module, one edge per distinct target. Node ids are opaque.
type moduleGraph struct {
	nodes []string
	edges map[string][]string
}

func newModuleGraph() *moduleGraph {
	return &moduleGraph{edges: make(map[string][]string)}
}

func (g *moduleGraph) addNode(name string) {
	if _, ok := g.edges[name]; ok {
		return
	}
	g.edges[name] = nil
	g.nodes = append(g.nodes, name)
}

func (g *moduleGraph) addEdge(from, to string) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

func (g *moduleGraph) sort() {
	sort.Strings(g.nodes)
	for _, targets := range g.edges {
		sort.Strings(targets)
	}
}

// stronglyConnected runs Tarjan's algorithm and returns the components
// holding at least one cycle, each sorted by name.
func (g *moduleGraph) stronglyConnected() [][]string {
	index := 0
	indices := make(map[string]int, len(g.nodes))
	lowlink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))
	var out [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || g.hasSelfLoop(v) {
			sort.Strings(component)
			out = append(out, component)
		}
	}

	for _, v := range g.nodes {
		if _, seen := indices[v]; !seen {
			strongConnect(v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (g *moduleGraph) hasSelfLoop(v string) bool {
	for _, w := range g.edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// elementaryCycles enumerates every elementary cycle, each starting at its
// lexicographically smallest module so rotations are reported once. At most
// limit cycles are returned; truncated is true when more exist.
func (g *moduleGraph) elementaryCycles(limit int) (cycles [][]string, truncated bool) {
	for _, component := range g.stronglyConnected() {
		members := make(map[string]bool, len(component))
		for _, v := range component {
			members[v] = true
		}
		for _, start := range component {
			onPath := map[string]bool{start: true}
			path := []string{start}

			var walk func(v string) bool
			walk = func(v string) bool {
				for _, w := range g.edges[v] {
					if !members[w] || w < start {
						continue
					}
					if w == start {
						if len(cycles) >= limit {
							truncated = true
							return false
						}
						cycle := make([]string, len(path))
						copy(cycle, path)
						cycles = append(cycles, cycle)
						continue
					}
					if onPath[w] {
						continue
					}
					onPath[w] = true
					path = append(path, w)
					ok := walk(w)
					path = path[:len(path)-1]
					onPath[w] = false
					if !ok {
						return false
					}
				}
				return true
			}
			if !walk(start) {
				return cycles, true
			}
		}
	}
	return cycles, truncated
}
