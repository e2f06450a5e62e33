package output

import (
	"fmt"
	"strings"

	"ripple/internal/graph"
)

type TSVGenerator struct {
	graph *graph.Graph
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// GenerateEdges emits every import edge, one row per importer/imported
// pair, sorted for stable diffs.
func (t *TSVGenerator) GenerateEdges() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tFile\tLine\tColumn\n")
	for _, edge := range t.graph.Edges() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%d\n",
			edge.From, edge.To, edge.FromFile, edge.Location.Line, edge.Location.Column))
	}

	return buf.String(), nil
}

// GenerateImpact emits the three result sets as typed rows so a CI
// step can cut out the slice it needs.
func (t *TSVGenerator) GenerateImpact(modules, tests, unresolved []string) (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tName\n")
	for _, name := range modules {
		buf.WriteString(fmt.Sprintf("impacted_module\t%s\n", name))
	}
	for _, name := range tests {
		buf.WriteString(fmt.Sprintf("impacted_test\t%s\n", name))
	}
	for _, name := range unresolved {
		buf.WriteString(fmt.Sprintf("unresolved\t%s\n", name))
	}

	return buf.String(), nil
}
