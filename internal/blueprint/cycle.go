package blueprint

import (
	"fmt"
	"strings"

	"github.com/roach88/tohu/internal/gen"
)

// refGraph maps a named definition to the names it refers to. order keeps
// declaration order so that analysis and reports are deterministic.
type refGraph struct {
	order []string
	edges map[string][]string
}

// buildRefGraph collects the references of every named definition,
// including those inside nested inline definitions and fstr templates.
func buildRefGraph(named []namedDef) refGraph {
	g := refGraph{edges: make(map[string][]string, len(named))}
	for _, nd := range named {
		g.order = append(g.order, nd.name)
		g.edges[nd.name] = collectRefs(nd.def, nil)
	}
	return g
}

func collectRefs(d *Def, acc []string) []string {
	if d.Ref != "" {
		acc = append(acc, d.Ref)
	}
	if normalizeType(d.Type) == "fstr" {
		// Malformed templates are reported when the definition is built.
		names, _ := gen.TemplateNames(d.Template)
		acc = append(acc, names...)
	}
	for i := range d.Inputs {
		acc = collectRefs(&d.Inputs[i], acc)
	}
	for i := range d.Kwargs {
		acc = collectRefs(&d.Kwargs[i], acc)
	}
	return acc
}

// referenceCycles returns every cycle among named definitions: strongly
// connected components with more than one member, and self references.
func referenceCycles(g refGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

func hasSelfLoop(node string, g refGraph) bool {
	for _, n := range g.edges[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Edges to names outside the graph are ignored.
func tarjanSCC(g refGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, known := g.edges[w]; !known {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range g.order {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// cyclePath orders an SCC along its edges starting from the member declared
// first, closing the loop: [a b c a].
func cyclePath(scc []string, g refGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := scc[0]
	for _, n := range g.order {
		if members[n] {
			start = n
			break
		}
	}

	path := []string{start}
	seen := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, w := range g.edges[cur] {
			if members[w] && (!seen[w] || w == start) {
				next = w
				if !seen[w] {
					break
				}
			}
		}
		if next == "" || next == start {
			return append(path, start)
		}
		path = append(path, next)
		seen[next] = true
		cur = next
	}
}

func cycleError(scc []string, g refGraph) ValidationError {
	path := cyclePath(scc, g)
	return ValidationError{
		Path:    path[0],
		Code:    ErrReferenceCycle,
		Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " -> ")),
	}
}
