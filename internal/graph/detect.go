package graph

import (
	"sort"

	"ripple/internal/util"
)

// DetectCycles reports import cycles among modules present in the
// snapshot. Cyclic imports are the usual cause of surprisingly large
// impact sets, so runs surface them alongside the result.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := util.SortedStringKeys(g.modules)

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for _, name := range names {
		if !visited[name] {
			g.findCycles(name, visited, onStack, []string{}, &cycles)
		}
	}

	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	targets := make([]string, 0, len(g.imports[curr]))
	for next := range g.imports[curr] {
		if _, ok := g.modules[next]; ok {
			targets = append(targets, next)
		}
	}
	sort.Strings(targets)

	for _, next := range targets {
		if onStack[next] {
			cycleStart := -1
			for i, mod := range path {
				if mod == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}
