package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Git           Git           `toml:"git"`
	Exclude       Exclude       `toml:"exclude"`
	Tests         Tests         `toml:"tests"`
	Workflows     Workflows     `toml:"workflows"`
	Analysis      Analysis      `toml:"analysis"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
	Output        Output        `toml:"output"`
	Alerts        Alerts        `toml:"alerts"`
}

type Project struct {
	Root      string   `toml:"root"`
	Key       string   `toml:"key"`
	Languages []string `toml:"languages"`
}

type Git struct {
	DefaultRange string `toml:"default_range"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Tests struct {
	FilePrefixes []string `toml:"file_prefixes"`
	FileSuffixes []string `toml:"file_suffixes"`
}

type Workflows struct {
	Dir    string   `toml:"dir"`
	Globs  []string `toml:"globs"`
	Tokens []string `toml:"tokens"`
}

type Analysis struct {
	// Concurrency bounds the parallel file parses; 0 means NumCPU.
	Concurrency int `toml:"concurrency"`
}

type History struct {
	Enabled          bool   `toml:"enabled"`
	Path             string `toml:"path"`
	TrendWindowHours int    `toml:"trend_window_hours"`
}

type Observability struct {
	MetricsAddr string  `toml:"metrics_addr"`
	Tracing     Tracing `toml:"tracing"`
}

type Tracing struct {
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
	Insecure    bool    `toml:"insecure"`
	Environment string  `toml:"environment"`
}

type Watch struct {
	DebounceMS    int `toml:"debounce_ms"`
	MinIntervalMS int `toml:"min_interval_ms"`
}

type Output struct {
	DOT string `toml:"dot"`
	TSV string `toml:"tsv"`
}

type Alerts struct {
	Beep     bool `toml:"beep"`
	Terminal bool `toml:"terminal"`
}

func (w Watch) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

func (w Watch) MinInterval() time.Duration {
	return time.Duration(w.MinIntervalMS) * time.Millisecond
}

func (h History) TrendWindow() time.Duration {
	return time.Duration(h.TrendWindowHours) * time.Hour
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateProject(&cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(&cfg); err != nil {
		return nil, err
	}
	if err := validateTests(&cfg); err != nil {
		return nil, err
	}
	if err := validateWorkflows(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if strings.TrimSpace(cfg.Project.Key) == "" {
		cfg.Project.Key = "default"
	}
	if len(cfg.Project.Languages) == 0 {
		cfg.Project.Languages = []string{"python", "go"}
	}

	if strings.TrimSpace(cfg.Git.DefaultRange) == "" {
		cfg.Git.DefaultRange = "HEAD~1..HEAD"
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{
			".git", "__pycache__", "node_modules", "venv", ".venv", "env",
			"build", "dist", "target", ".idea", ".vscode", ".pytest_cache",
			".mypy_cache", "vendor",
		}
	}

	if len(cfg.Tests.FilePrefixes) == 0 {
		cfg.Tests.FilePrefixes = []string{"test_"}
	}
	if len(cfg.Tests.FileSuffixes) == 0 {
		cfg.Tests.FileSuffixes = []string{"_test"}
	}

	if strings.TrimSpace(cfg.Workflows.Dir) == "" {
		cfg.Workflows.Dir = ".github/workflows"
	}
	if len(cfg.Workflows.Globs) == 0 {
		cfg.Workflows.Globs = []string{"*.yml", "*.yaml"}
	}
	if len(cfg.Workflows.Tokens) == 0 {
		cfg.Workflows.Tokens = []string{"test", "pytest", "unittest", "tox"}
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".ripple/history.db"
	}
	if cfg.History.TrendWindowHours <= 0 {
		cfg.History.TrendWindowHours = 168
	}

	if cfg.Observability.Tracing.SampleRatio == 0 {
		cfg.Observability.Tracing.SampleRatio = 1.0
	}
	if strings.TrimSpace(cfg.Observability.Tracing.Environment) == "" {
		cfg.Observability.Tracing.Environment = "dev"
	}

	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = 500
	}
	if cfg.Watch.MinIntervalMS <= 0 {
		cfg.Watch.MinIntervalMS = 2000
	}

	if !cfg.Alerts.Terminal && !cfg.Alerts.Beep {
		cfg.Alerts.Terminal = true
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if strings.TrimSpace(cfg.Project.Root) == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	for _, lang := range cfg.Project.Languages {
		switch strings.ToLower(strings.TrimSpace(lang)) {
		case "python", "go":
		default:
			return fmt.Errorf("project.languages contains unsupported language %q; supported: python, go", lang)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, p := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid exclude.dirs pattern %q: %w", p, err)
		}
	}
	for _, p := range cfg.Exclude.Files {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid exclude.files pattern %q: %w", p, err)
		}
	}
	return nil
}

func validateTests(cfg *Config) error {
	if len(cfg.Tests.FilePrefixes) == 0 && len(cfg.Tests.FileSuffixes) == 0 {
		return fmt.Errorf("tests must declare at least one file prefix or suffix")
	}
	return nil
}

func validateWorkflows(cfg *Config) error {
	if strings.TrimSpace(cfg.Workflows.Dir) == "" {
		return fmt.Errorf("workflows.dir must not be empty")
	}
	for _, p := range cfg.Workflows.Globs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid workflows.globs pattern %q: %w", p, err)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Concurrency < 0 {
		return fmt.Errorf("analysis.concurrency must be >= 0, got %d", cfg.Analysis.Concurrency)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	ratio := cfg.Observability.Tracing.SampleRatio
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("observability.tracing.sample_ratio must be within [0, 1], got %v", ratio)
	}
	return nil
}
