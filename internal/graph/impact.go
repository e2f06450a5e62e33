package graph

import "ripple/internal/util"

// ImpactOf computes reverse reachability from the seed modules: the
// seeds themselves plus every module directly or transitively importing
// one of them. A worklist with a visited set keeps the traversal
// terminating on cyclic graphs, each module processed at most once.
// The result is a sound superset of the truly affected modules; only
// import-based coupling is visible here, so false positives are
// possible and accepted.
func (g *Graph) ImpactOf(seeds []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true
		queue = append(queue, seed)
	}

	for len(queue) > 0 {
		mod := queue[0]
		queue = queue[1:]

		for importer := range g.importedBy[mod] {
			if seen[importer] {
				continue
			}
			seen[importer] = true
			queue = append(queue, importer)
		}
	}

	return util.SortedStringKeys(seen)
}
