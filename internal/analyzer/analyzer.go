package analyzer

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ripple/internal/config"
	"ripple/internal/errors"
	"ripple/internal/gitdiff"
	"ripple/internal/graph"
	"ripple/internal/observability"
	"ripple/internal/workflow"
)

// ChangeSource is the injected version-control collaborator.
type ChangeSource interface {
	Changes(ctx context.Context, revRange string) ([]gitdiff.Change, error)
}

// Result is the immutable output of one analysis run. The impacted
// module and test sets are disjoint: the closure is partitioned by the
// test-file naming convention.
type Result struct {
	RunID           string                `json:"run_id"`
	Range           string                `json:"range"`
	Changed         []gitdiff.Change      `json:"changed"`
	ImpactedModules []string              `json:"impacted_modules"`
	ImpactedTests   []string              `json:"impacted_tests"`
	SuggestedJobs   []workflow.Suggestion `json:"suggested_jobs"`
	Unresolved      []string              `json:"unresolved,omitempty"`
	Cycles          [][]string            `json:"cycles,omitempty"`
	Diagnostics     []errors.Diagnostic   `json:"diagnostics,omitempty"`
	Stats           Stats                 `json:"stats"`

	// Graph is the run's snapshot, kept only for artifact rendering.
	// It lives and dies with the Result.
	Graph *graph.Graph `json:"-"`
}

type Stats struct {
	FilesParsed int           `json:"files_parsed"`
	ModuleCount int           `json:"module_count"`
	EdgeCount   int           `json:"edge_count"`
	Duration    time.Duration `json:"duration_ns"`
}

// JobNames returns the suggested job names, deduplicated.
func (r *Result) JobNames() []string {
	return workflow.JobNames(r.SuggestedJobs)
}

// Analyzer runs one synchronous pass: revision diff, graph build,
// reverse-reachability closure, job matching. It holds no state across
// runs; every Analyze call builds and discards its own graph.
type Analyzer struct {
	cfg     *config.Config
	source  ChangeSource
	builder *Builder
	matcher *workflow.Matcher
}

func New(cfg *config.Config, source ChangeSource) (*Analyzer, error) {
	builder, err := NewBuilder(cfg)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:     cfg,
		source:  source,
		builder: builder,
		matcher: workflow.NewMatcher(cfg.Workflows.Tokens),
	}, nil
}

func (a *Analyzer) Analyze(ctx context.Context, revRange string) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.Analyze",
		trace.WithAttributes(attribute.String("ripple.range", revRange)))
	defer span.End()

	start := time.Now()

	if revRange == "" {
		revRange = a.cfg.Git.DefaultRange
	}

	result := &Result{
		RunID: uuid.NewString(),
		Range: revRange,
	}

	changes, err := a.stageDiff(ctx, revRange)
	if err != nil {
		observability.AnalysisRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Changed = changes

	g, diags, err := a.stageBuild(ctx)
	if err != nil {
		observability.AnalysisRunsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}
	result.Diagnostics = diags

	if err := ctx.Err(); err != nil {
		observability.AnalysisRunsTotal.WithLabelValues("cancelled").Inc()
		return nil, errors.Wrap(err, errors.CodeCancelled, "analysis cancelled")
	}

	a.stageImpact(g, result)
	a.stageWorkflows(result)
	result.Cycles = g.DetectCycles()
	result.Graph = g

	result.Stats = Stats{
		FilesParsed: g.FileCount(),
		ModuleCount: g.ModuleCount(),
		EdgeCount:   g.EdgeCount(),
		Duration:    time.Since(start),
	}

	observability.GraphModules.Set(float64(result.Stats.ModuleCount))
	observability.GraphEdges.Set(float64(result.Stats.EdgeCount))
	observability.ImpactedModules.Set(float64(len(result.ImpactedModules)))
	observability.ImpactedTests.Set(float64(len(result.ImpactedTests)))
	observability.SuggestedJobs.Set(float64(len(result.JobNames())))
	for _, d := range result.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}
	observability.AnalysisRunsTotal.WithLabelValues("ok").Inc()

	span.SetAttributes(
		attribute.Int("ripple.changed", len(result.Changed)),
		attribute.Int("ripple.impacted_modules", len(result.ImpactedModules)),
		attribute.Int("ripple.impacted_tests", len(result.ImpactedTests)),
	)

	return result, nil
}

func (a *Analyzer) stageDiff(ctx context.Context, revRange string) ([]gitdiff.Change, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.diff")
	defer span.End()
	defer observeStage("diff", time.Now())

	return a.source.Changes(ctx, revRange)
}

func (a *Analyzer) stageBuild(ctx context.Context) (*graph.Graph, []errors.Diagnostic, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.build")
	defer span.End()
	defer observeStage("build", time.Now())

	return a.builder.Build(ctx)
}

// stageImpact seeds the reverse-reachability closure with the changed
// modules and partitions it into the module and test sets. A changed
// file outside any recognized namespace is excluded from propagation
// and listed in Unresolved; it never aborts the run.
func (a *Analyzer) stageImpact(g *graph.Graph, result *Result) {
	defer observeStage("impact", time.Now())

	var seeds []string
	for _, change := range result.Changed {
		if mod, ok := g.ModuleForFile(change.Path); ok {
			seeds = append(seeds, mod)
			continue
		}
		// Deleted or excluded files have no graph node; the resolver
		// alone still names the module so surviving importers are
		// reached through the name-keyed reverse index.
		if mod, ok := a.builder.moduleFor(change.Path, languageOf(change.Path)); ok {
			seeds = append(seeds, mod)
			continue
		}
		result.Unresolved = append(result.Unresolved, change.Path)
	}

	closure := g.ImpactOf(seeds)

	var modules, tests []string
	for _, moduleID := range closure {
		mod, ok := g.GetModule(moduleID)
		if !ok {
			// Ghost seed: the module's files are gone but the change
			// to it is still an impact.
			modules = append(modules, moduleID)
			continue
		}

		testFiles, srcFiles := a.splitTestFiles(mod.Files)
		if len(srcFiles) == 0 {
			tests = append(tests, testFiles...)
			continue
		}

		modules = append(modules, moduleID)
		// A mixed Go package stays a module but its colocated test
		// files must still run.
		tests = append(tests, testFiles...)
	}

	sort.Strings(modules)
	sort.Strings(tests)
	result.ImpactedModules = modules
	result.ImpactedTests = tests
}

func (a *Analyzer) stageWorkflows(result *Result) {
	defer observeStage("workflows", time.Now())

	dir := filepath.Join(a.builder.root, filepath.FromSlash(a.cfg.Workflows.Dir))
	workflows, diags := workflow.LoadDir(dir, a.cfg.Workflows.Globs)
	result.Diagnostics = append(result.Diagnostics, diags...)

	result.SuggestedJobs = a.matcher.Suggest(workflows, gitdiff.Paths(result.Changed))
}

// splitTestFiles partitions a module's files by the test-file naming
// convention. A module whose files are all tests is test-designated.
func (a *Analyzer) splitTestFiles(files []string) (tests, sources []string) {
	for _, f := range files {
		if a.isTestFile(f) {
			tests = append(tests, f)
		} else {
			sources = append(sources, f)
		}
	}
	return tests, sources
}

func (a *Analyzer) isTestFile(relPath string) bool {
	base := path.Base(relPath)
	name := strings.TrimSuffix(base, path.Ext(base))

	for _, prefix := range a.cfg.Tests.FilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, suffix := range a.cfg.Tests.FileSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func languageOf(relPath string) string {
	switch path.Ext(relPath) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	}
	return ""
}

func observeStage(stage string, start time.Time) {
	observability.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	if errors.IsCode(err, errors.CodeCancelled) {
		return "cancelled"
	}
	return "error"
}
