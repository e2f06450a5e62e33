package analyzer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"ripple/internal/config"
	"ripple/internal/errors"
	"ripple/internal/graph"
	"ripple/internal/observability"
	"ripple/internal/parser"
	"ripple/internal/resolver"
	"ripple/internal/util"
)

// Builder turns a project root into a fresh dependency graph. Files
// parse in parallel; a file that fails to read or parse is skipped
// with a diagnostic and never fails the build.
type Builder struct {
	root       string
	cfg        *config.Config
	parser     *parser.Parser
	pyResolver *resolver.PythonResolver
	goResolver *resolver.GoResolver
	languages  map[string]bool
}

func NewBuilder(cfg *config.Config) (*Builder, error) {
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, errors.New(errors.CodeNotFound, "project root does not exist: "+root)
	}

	p := parser.NewParser(parser.NewGrammarLoader())
	p.RegisterExtractor("python", &parser.PythonExtractor{})
	p.RegisterExtractor("go", &parser.GoExtractor{})

	b := &Builder{
		root:      root,
		cfg:       cfg,
		parser:    p,
		languages: make(map[string]bool),
	}
	for _, lang := range cfg.Project.Languages {
		b.languages[lang] = true
	}

	if b.languages["go"] {
		gr, err := resolver.NewGoResolver(root)
		if err != nil {
			// A project without go.mod simply has no Go namespace.
			slog.Debug("go resolution disabled", "reason", err)
		} else {
			b.goResolver = gr
		}
	}

	return b, nil
}

type parsedFile struct {
	relPath string
	file    *parser.File
	diag    *errors.Diagnostic
}

// Build walks the root, parses every recognized source file bounded by
// the configured concurrency, and merges the per-file results into one
// graph. Cancellation discards the partial graph and reports
// CANCELLED: a partial graph would produce an unsound impact set.
func (b *Builder) Build(ctx context.Context) (*graph.Graph, []errors.Diagnostic, error) {
	relPaths, err := b.walk()
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeCancelled, "graph build cancelled")
	}

	b.pyResolver = resolver.NewPythonResolver(nil)
	for _, rel := range relPaths {
		b.pyResolver.Register(rel)
	}

	limit := b.cfg.Analysis.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	// Each worker writes only its own slot; the merge below is the
	// single sequential reader.
	results := make([]parsedFile, len(relPaths))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i, rel := range relPaths {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.parseOne(rel)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeCancelled, "graph build cancelled")
	}

	g := graph.NewGraph()
	var diags []errors.Diagnostic

	for _, res := range results {
		if res.diag != nil {
			diags = append(diags, *res.diag)
			continue
		}
		if res.file == nil {
			continue
		}

		moduleID, ok := b.moduleFor(res.relPath, res.file.Language)
		if !ok {
			continue
		}
		res.file.Module = moduleID

		edges, edgeDiags := b.resolveEdges(res.file)
		diags = append(diags, edgeDiags...)
		g.AddFile(res.file, edges)
	}

	if err := ctx.Err(); err != nil {
		return nil, diags, errors.Wrap(err, errors.CodeCancelled, "graph build cancelled")
	}

	return g, diags, nil
}

func (b *Builder) parseOne(relPath string) parsedFile {
	start := time.Now()

	content, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(relPath)))
	if err != nil {
		return parsedFile{relPath: relPath, diag: &errors.Diagnostic{
			Code:   errors.CodeUnparsableSource,
			Path:   relPath,
			Detail: err.Error(),
		}}
	}

	file, err := b.parser.ParseFile(relPath, content)
	if err != nil {
		return parsedFile{relPath: relPath, diag: &errors.Diagnostic{
			Code:   errors.CodeUnparsableSource,
			Path:   relPath,
			Detail: err.Error(),
		}}
	}

	observability.ParseDuration.WithLabelValues(file.Language).Observe(time.Since(start).Seconds())
	return parsedFile{relPath: relPath, file: file}
}

func (b *Builder) moduleFor(relPath, language string) (string, bool) {
	switch language {
	case "python":
		if b.pyResolver == nil {
			return "", false
		}
		return b.pyResolver.PathToModule(relPath)
	case "go":
		if b.goResolver == nil {
			return "", false
		}
		return b.goResolver.PathToModule(relPath)
	}
	return "", false
}

// resolveEdges maps a file's imports to internal module ids. External
// imports are dropped, never represented as dangling edges. A relative
// import that escapes the project root is unresolvable and recorded.
func (b *Builder) resolveEdges(file *parser.File) ([]graph.Edge, []errors.Diagnostic) {
	var edges []graph.Edge
	var diags []errors.Diagnostic

	for _, imp := range file.Imports {
		switch file.Language {
		case "python":
			target, ok := b.pyResolver.ResolveImport(file.Module, imp)
			if !ok {
				diags = append(diags, errors.Diagnostic{
					Code:   errors.CodeUnresolvableImport,
					Path:   file.Path,
					Detail: "relative import escapes the project root: " + imp.RawImport,
				})
				continue
			}
			if !b.pyResolver.Internal(target) {
				continue
			}
			edges = append(edges, graph.Edge{To: target, Location: imp.Location})

			// from X import Y reaches the submodule X.Y when Y is a
			// module rather than a symbol.
			for _, item := range imp.Items {
				if sub := target + "." + item; b.pyResolver.IsModule(sub) {
					edges = append(edges, graph.Edge{To: sub, Location: imp.Location})
				}
			}

		case "go":
			if b.goResolver == nil || !b.goResolver.Internal(imp.Module) {
				continue
			}
			edges = append(edges, graph.Edge{To: imp.Module, Location: imp.Location})
		}
	}

	return edges, diags
}

// walk lists repo-relative slash paths of recognized source files,
// honoring the configured excludes.
func (b *Builder) walk() ([]string, error) {
	dirExcl, err := compileExcludes(b.cfg.Exclude.Dirs)
	if err != nil {
		return nil, err
	}
	fileExcl, err := compileExcludes(b.cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	var relPaths []string
	err = filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == b.root {
			return nil
		}

		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if dirExcl.matches(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		lang := parser.DetectLanguage(path)
		if lang == "" || !b.languages[lang] {
			return nil
		}
		if fileExcl.matches(rel) {
			return nil
		}

		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return relPaths, nil
}

// excludeSet holds the two exclude entry forms: entries with a path
// separator exclude by repo-relative prefix, the rest match base names
// as globs.
type excludeSet struct {
	globs    []glob.Glob
	prefixes []string
}

func compileExcludes(patterns []string) (*excludeSet, error) {
	set := &excludeSet{}
	for _, p := range patterns {
		p = util.NormalizePatternPath(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") && !strings.ContainsAny(p, "*?[{") {
			set.prefixes = append(set.prefixes, p)
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern "+p)
		}
		set.globs = append(set.globs, g)
	}
	return set, nil
}

func (s *excludeSet) matches(rel string) bool {
	base := filepath.Base(rel)
	for _, g := range s.globs {
		if g.Match(base) {
			return true
		}
	}
	for _, prefix := range s.prefixes {
		if util.HasPathPrefix(rel, prefix) {
			return true
		}
	}
	return false
}
