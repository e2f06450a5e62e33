package graph

import (
	"sort"
	"sync"

	"ripple/internal/parser"
	"ripple/internal/util"
)

// Graph is one analysis run's snapshot of the project import graph.
// It is built fresh per invocation and discarded with the result; no
// graph state survives across runs.
type Graph struct {
	mu sync.RWMutex

	files   map[string]*parser.File // rel path -> parsed file
	modules map[string]*Module      // module id -> module

	// imports maps importer -> imported -> edge. importedBy is the
	// derived reverse index and is keyed by module NAME, not node:
	// an edge to a module that lost all of its files must still reach
	// the surviving importers during impact propagation.
	imports    map[string]map[string]*ImportEdge
	importedBy map[string]map[string]bool
}

type Module struct {
	Name    string
	Files   []string
	Exports map[string]*parser.Definition
}

type ImportEdge struct {
	From     string
	To       string
	FromFile string
	Location parser.Location
}

// Edge is a resolved outgoing import of one file, produced by the
// builder after dropping external targets.
type Edge struct {
	To       string
	Location parser.Location
}

func NewGraph() *Graph {
	return &Graph{
		files:      make(map[string]*parser.File),
		modules:    make(map[string]*Module),
		imports:    make(map[string]map[string]*ImportEdge),
		importedBy: make(map[string]map[string]bool),
	}
}

// AddFile records one parsed file and its resolved internal edges.
// file.Module must be set; edges reference module ids only.
func (g *Graph) AddFile(file *parser.File, edges []Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.files[file.Path] = file

	mod, ok := g.modules[file.Module]
	if !ok {
		mod = &Module{
			Name:    file.Module,
			Exports: make(map[string]*parser.Definition),
		}
		g.modules[file.Module] = mod
	}

	found := false
	for _, p := range mod.Files {
		if p == file.Path {
			found = true
			break
		}
	}
	if !found {
		mod.Files = append(mod.Files, file.Path)
	}

	for i := range file.Definitions {
		def := &file.Definitions[i]
		if def.Exported {
			mod.Exports[def.Name] = def
		}
	}

	if g.imports[file.Module] == nil {
		g.imports[file.Module] = make(map[string]*ImportEdge)
	}

	for _, e := range edges {
		if e.To == file.Module {
			continue // intra-module import, not an edge
		}
		g.imports[file.Module][e.To] = &ImportEdge{
			From:     file.Module,
			To:       e.To,
			FromFile: file.Path,
			Location: e.Location,
		}

		if g.importedBy[e.To] == nil {
			g.importedBy[e.To] = make(map[string]bool)
		}
		g.importedBy[e.To][file.Module] = true
	}
}

func (g *Graph) GetModule(name string) (*Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[name]
	return mod, ok
}

// ModuleForFile maps a rel path present in the snapshot to its module.
func (g *Graph) ModuleForFile(path string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.files[path]
	if !ok {
		return "", false
	}
	return f.Module, true
}

func (g *Graph) Modules() []*Module {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := util.SortedStringKeys(g.modules)
	res := make([]*Module, 0, len(names))
	for _, name := range names {
		res = append(res, g.modules[name])
	}
	return res
}

func (g *Graph) ModuleCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules)
}

func (g *Graph) FileCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.files)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, targets := range g.imports {
		count += len(targets)
	}
	return count
}

func (g *Graph) GetFile(path string) (*parser.File, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.files[path]
	return f, ok
}

// Edges returns every import edge, sorted by importer then imported.
func (g *Graph) Edges() []*ImportEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []*ImportEdge
	for _, targets := range g.imports {
		for _, edge := range targets {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// ImportersOf returns the modules directly importing the named module,
// sorted. The name need not have a node.
func (g *Graph) ImportersOf(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return util.SortedStringKeys(g.importedBy[name])
}
