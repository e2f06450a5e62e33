package output

import (
	"fmt"
	"strings"

	"ripple/internal/graph"
)

// DOTGenerator renders the run's import graph with the impacted
// closure highlighted, suitable for `dot -Tsvg`.
type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate emits the full graph. Modules named in impacted are drawn
// hot; changed seeds double so. Cycle edges are flagged regardless of
// impact membership.
func (d *DOTGenerator) Generate(changed, impacted []string, cycles [][]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph impact {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=10, fillcolor=\"white\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.5;\n")
	buf.WriteString("  splines=polyline;\n\n")

	changedSet := toSet(changed)
	impactedSet := toSet(impacted)

	cycleEdges := make(map[string]map[string]bool)
	for _, cycle := range cycles {
		for i := 0; i < len(cycle); i++ {
			from := cycle[i]
			to := cycle[(i+1)%len(cycle)]
			if cycleEdges[from] == nil {
				cycleEdges[from] = make(map[string]bool)
			}
			cycleEdges[from][to] = true
		}
	}

	for _, mod := range d.graph.Modules() {
		label := fmt.Sprintf("%s\\n(%d files, %d exports)", mod.Name, len(mod.Files), len(mod.Exports))
		switch {
		case changedSet[mod.Name]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"gold\", color=\"darkorange\", penwidth=2.0];\n", mod.Name, label))
		case impactedSet[mod.Name]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=1.6];\n", mod.Name, label))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", mod.Name, label))
		}
	}
	buf.WriteString("\n")

	for _, edge := range d.graph.Edges() {
		switch {
		case cycleEdges[edge.From] != nil && cycleEdges[edge.From][edge.To]:
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"red\", penwidth=2.5, label=\"CYCLE\"];\n", edge.From, edge.To))
		case impactedSet[edge.From] && impactedSet[edge.To]:
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"darkorange\", penwidth=1.8];\n", edge.From, edge.To))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\"];\n", edge.From, edge.To))
		}
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_changed [label=\"Changed Module\", fillcolor=\"gold\"];\n")
	buf.WriteString("    legend_impacted [label=\"Impacted Module\", fillcolor=\"mistyrose\"];\n")
	buf.WriteString("    legend_untouched [label=\"Untouched Module\", fillcolor=\"white\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
