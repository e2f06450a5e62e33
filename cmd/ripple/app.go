package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ripple/internal/analyzer"
	"ripple/internal/config"
	"ripple/internal/gitdiff"
	"ripple/internal/history"
	"ripple/internal/observability"
	"ripple/internal/output"
	"ripple/internal/util"
	"ripple/internal/watcher"
)

type App struct {
	Config   *config.Config
	Analyzer *analyzer.Analyzer

	store    *history.Store
	server   *observability.Server
	tracing  *observability.TracerProvider
	watcher  *watcher.Watcher
	throttle *util.Throttle

	teaProgram *tea.Program
	lastRange  string
}

func NewApp(cfg *config.Config) (*App, error) {
	an, err := analyzer.New(cfg, gitdiff.NewReader(cfg.Project.Root))
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Analyzer: an,
		throttle: util.NewThrottle(cfg.Watch.MinInterval()),
	}

	if cfg.History.Enabled {
		store, err := history.Open(app.historyPath())
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		app.store = store
	}

	return app, nil
}

func (a *App) historyPath() string {
	if filepath.IsAbs(a.Config.History.Path) {
		return a.Config.History.Path
	}
	return filepath.Join(a.Config.Project.Root, a.Config.History.Path)
}

// RunOnce performs one analysis pass and layers the caller concerns on
// top: artifact files and the history record. Neither failing aborts
// the run; the result is already complete.
func (a *App) RunOnce(ctx context.Context, revRange string) (*analyzer.Result, error) {
	a.lastRange = revRange

	result, err := a.Analyzer.Analyze(ctx, revRange)
	if err != nil {
		return nil, err
	}

	if err := a.writeArtifacts(result); err != nil {
		slog.Error("failed to write artifacts", "error", err)
	}
	a.persistRun(result)

	return result, nil
}

func (a *App) writeArtifacts(result *analyzer.Result) error {
	if result.Graph == nil {
		return nil
	}

	if a.Config.Output.DOT != "" {
		gen := output.NewDOTGenerator(result.Graph)
		dot, err := gen.Generate(a.changedModules(result), result.ImpactedModules, result.Cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(a.Config.Output.DOT, dot, 0644); err != nil {
			return err
		}
	}

	if a.Config.Output.TSV != "" {
		gen := output.NewTSVGenerator(result.Graph)
		edgesTSV, err := gen.GenerateEdges()
		if err != nil {
			return err
		}
		impactTSV, err := gen.GenerateImpact(result.ImpactedModules, result.ImpactedTests, result.Unresolved)
		if err != nil {
			return err
		}

		tsv := strings.TrimRight(edgesTSV, "\n") + "\n\n" + strings.TrimRight(impactTSV, "\n") + "\n"
		if err := util.WriteStringWithDirs(a.Config.Output.TSV, tsv, 0644); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) changedModules(result *analyzer.Result) []string {
	seen := make(map[string]bool)
	var modules []string
	for _, change := range result.Changed {
		mod, ok := result.Graph.ModuleForFile(change.Path)
		if !ok || seen[mod] {
			continue
		}
		seen[mod] = true
		modules = append(modules, mod)
	}
	return modules
}

func (a *App) persistRun(result *analyzer.Result) {
	if a.store == nil {
		return
	}

	commitHash, commitTime := history.ResolveGitMetadata(a.Config.Project.Root)
	run := history.Run{
		RunID:           result.RunID,
		Timestamp:       time.Now().UTC(),
		CommitHash:      commitHash,
		CommitTimestamp: commitTime,
		Range:           result.Range,
		ChangedCount:    len(result.Changed),
		ImpactedModules: len(result.ImpactedModules),
		ImpactedTests:   len(result.ImpactedTests),
		SuggestedJobs:   len(result.JobNames()),
		ModuleCount:     result.Stats.ModuleCount,
		FileCount:       result.Stats.FilesParsed,
		EdgeCount:       result.Stats.EdgeCount,
		CycleCount:      len(result.Cycles),
		DiagnosticCount: len(result.Diagnostics),
		DurationMS:      result.Stats.Duration.Milliseconds(),
	}

	if err := a.store.SaveRun(a.Config.Project.Key, run); err != nil {
		slog.Error("failed to persist run", "run_id", result.RunID, "error", err)
	}
}

func (a *App) PrintJSON(w io.Writer, result *analyzer.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (a *App) PrintSummary(w io.Writer, result *analyzer.Result) {
	fmt.Fprint(w, FormatSummary(result))
}

// FormatSummary renders the one-shot terminal report.
func FormatSummary(result *analyzer.Result) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(fmt.Sprintf("Range %s: %d changed, %d modules, %d edges in %v\n",
		result.Range, len(result.Changed), result.Stats.ModuleCount, result.Stats.EdgeCount,
		result.Stats.Duration.Round(time.Millisecond)))

	if len(result.ImpactedModules) > 0 {
		b.WriteString(fmt.Sprintf("Impacted modules (%d):\n", len(result.ImpactedModules)))
		for _, mod := range result.ImpactedModules {
			b.WriteString(fmt.Sprintf("   %s\n", mod))
		}
	} else {
		b.WriteString("No impacted modules.\n")
	}

	if len(result.ImpactedTests) > 0 {
		b.WriteString(fmt.Sprintf("Impacted tests (%d):\n", len(result.ImpactedTests)))
		for _, test := range result.ImpactedTests {
			b.WriteString(fmt.Sprintf("   %s\n", test))
		}
	} else {
		b.WriteString("No impacted tests.\n")
	}

	if len(result.SuggestedJobs) > 0 {
		b.WriteString(fmt.Sprintf("Suggested CI jobs (%d):\n", len(result.SuggestedJobs)))
		for _, s := range result.SuggestedJobs {
			b.WriteString(fmt.Sprintf("   %s (%s, %s)\n", s.Job, filepath.Base(s.Workflow), s.Reason))
		}
	} else {
		b.WriteString("No CI jobs matched.\n")
	}

	if len(result.Unresolved) > 0 {
		b.WriteString(fmt.Sprintf("Unresolved changed files (%d):\n", len(result.Unresolved)))
		for _, p := range result.Unresolved {
			b.WriteString(fmt.Sprintf("   %s\n", p))
		}
	}

	if len(result.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("Import cycles (%d):\n", len(result.Cycles)))
		for _, c := range result.Cycles {
			b.WriteString(fmt.Sprintf("   %s\n", strings.Join(c, " -> ")))
		}
	}

	if len(result.Diagnostics) > 0 {
		b.WriteString(fmt.Sprintf("Diagnostics (%d):\n", len(result.Diagnostics)))
		for _, d := range result.Diagnostics {
			b.WriteString(fmt.Sprintf("   %s\n", d.String()))
		}
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	return b.String()
}

func (a *App) RunTrend(w io.Writer, asJSON bool) error {
	if a.store == nil {
		return fmt.Errorf("run history is disabled; enable [history] in the config")
	}

	runs, err := a.store.LoadRuns(a.Config.Project.Key, time.Time{})
	if err != nil {
		return err
	}

	report, err := history.BuildTrendReport(runs, a.Config.History.TrendWindow())
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "Trend: %d runs, %s .. %s (window %s)\n",
		report.RunCount,
		report.Since.Format("2006-01-02 15:04"),
		report.Until.Format("2006-01-02 15:04"),
		report.Window)
	fmt.Fprintln(w, "Time\tModules\tEdges\tCycles\tImpTests\tΔMod\tΔEdge\tAvgTests")
	for _, p := range report.Points {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%+d\t%+d\t%.2f\n",
			p.Timestamp.Format("01-02 15:04"),
			p.ModuleCount, p.EdgeCount, p.CycleCount, p.ImpactedTests,
			p.DeltaModules, p.DeltaEdges, p.AvgImpactedTests)
	}
	return nil
}

func (a *App) StartObservability(ctx context.Context, version string) error {
	if a.Config.Observability.MetricsAddr != "" {
		a.server = observability.NewServer(a.Config.Observability.MetricsAddr, a.healthComponents)
		if err := a.server.Start(ctx); err != nil {
			return err
		}
	}

	tp, err := observability.InitTracing(ctx, a.Config.Observability.Tracing, version)
	if err != nil {
		return err
	}
	a.tracing = tp
	return nil
}

func (a *App) healthComponents(ctx context.Context) map[string]string {
	components := map[string]string{"analyzer": "up"}
	if a.store != nil {
		if err := a.store.Ping(); err != nil {
			components["history"] = "down"
		} else {
			components["history"] = "up"
		}
	}
	return components
}

func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce(),
		a.watchExtensions(),
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) { a.handleChanges(ctx, paths) },
	)
	if err != nil {
		return err
	}
	a.watcher = w
	return w.Watch([]string{a.Config.Project.Root})
}

func (a *App) watchExtensions() []string {
	exts := []string{".yml", ".yaml"}
	for _, lang := range a.Config.Project.Languages {
		switch strings.ToLower(lang) {
		case "python":
			exts = append(exts, ".py")
		case "go":
			exts = append(exts, ".go", ".mod")
		}
	}
	return exts
}

func (a *App) handleChanges(ctx context.Context, paths []string) {
	if !a.throttle.Allow() {
		slog.Debug("re-analysis throttled", "pending", len(paths))
		return
	}

	slog.Info("detected changes", "count", len(paths))

	result, err := a.RunOnce(ctx, a.lastRange)
	if err != nil {
		slog.Error("re-analysis failed", "error", err)
		return
	}

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{result: result})
		return
	}

	if a.Config.Alerts.Terminal {
		fmt.Print(FormatSummary(result))
	}
	if a.Config.Alerts.Beep && (len(result.Cycles) > 0 || len(result.ImpactedTests) > 0) {
		fmt.Print("\a")
	}
}

func (a *App) RunUI(initial *analyzer.Result) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		if initial != nil {
			p.Send(updateMsg{result: initial})
		}
	}()

	_, err := p.Run()
	return err
}

func (a *App) Close(ctx context.Context) {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.server != nil {
		_ = a.server.Stop(ctx)
	}
	if a.tracing != nil {
		_ = a.tracing.Shutdown(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
