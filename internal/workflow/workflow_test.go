package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"ripple/internal/errors"
)

const ciYAML = `name: CI
on: [push, pull_request]
jobs:
  unit-tests:
    name: Unit tests
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Run suite
        run: pytest -x
  lint:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: flake8 .
`

const filteredYAML = `name: Package CI
on:
  push:
    branches: [main]
    paths:
      - "pkg/**"
      - docs/
  pull_request:
    paths:
      - "pkg/**"
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - run: make build
`

func writeWorkflows(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestParse(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"ci.yml": ciYAML})

	wf, err := Parse(filepath.Join(dir, "ci.yml"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if wf.Name != "CI" {
		t.Errorf("expected workflow name CI, got %q", wf.Name)
	}
	if len(wf.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %v", wf.Jobs)
	}
	// Jobs come back sorted by key.
	if wf.Jobs[0].Key != "lint" || wf.Jobs[1].Key != "unit-tests" {
		t.Errorf("unexpected job order: %v", wf.Jobs)
	}
	// List-shaped trigger carries no path filters.
	if len(wf.PathFilters) != 0 {
		t.Errorf("unexpected path filters: %v", wf.PathFilters)
	}
}

func TestParsePathFilters(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"pkg.yml": filteredYAML})

	wf, err := Parse(filepath.Join(dir, "pkg.yml"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Filters are deduplicated across push and pull_request.
	if len(wf.PathFilters) != 2 || wf.PathFilters[0] != "pkg/**" || wf.PathFilters[1] != "docs/" {
		t.Errorf("unexpected path filters: %v", wf.PathFilters)
	}
}

func TestParseScalarOn(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"push.yml": "on: push\njobs:\n  build:\n    steps:\n      - run: make\n"})

	wf, err := Parse(filepath.Join(dir, "push.yml"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(wf.PathFilters) != 0 {
		t.Errorf("scalar trigger must carry no path filters, got %v", wf.PathFilters)
	}
}

func TestLoadDir(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{
		"ci.yml":     ciYAML,
		"broken.yml": "jobs: [not, a, mapping",
		"notes.txt":  "ignored",
	})

	workflows, diags := LoadDir(dir, []string{"*.yml", "*.yaml"})

	if len(workflows) != 1 || workflows[0].Name != "CI" {
		t.Errorf("expected the one valid workflow, got %v", workflows)
	}
	if len(diags) != 1 || diags[0].Code != errors.CodeWorkflowParse {
		t.Errorf("expected one WORKFLOW_PARSE diagnostic, got %v", diags)
	}
}

func TestLoadDirMissing(t *testing.T) {
	workflows, diags := LoadDir(filepath.Join(t.TempDir(), "absent"), []string{"*.yml"})
	if workflows != nil || diags != nil {
		t.Errorf("missing directory must be silent, got %v / %v", workflows, diags)
	}
}

// The pytest job must be suggested for any non-empty change set; the
// lint job matches neither token nor filter and must stay out.
func TestSuggestTokens(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"ci.yml": ciYAML})
	workflows, _ := LoadDir(dir, []string{"*.yml"})

	m := NewMatcher([]string{"test", "pytest", "unittest", "tox"})
	suggestions := m.Suggest(workflows, []string{"pkg/util.py"})

	if len(suggestions) != 1 {
		t.Fatalf("expected exactly one suggestion, got %v", suggestions)
	}
	if suggestions[0].Job != "unit-tests" || suggestions[0].Reason != "token:test" {
		t.Errorf("unexpected suggestion %v", suggestions[0])
	}
}

func TestSuggestPathFilter(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"pkg.yml": filteredYAML})
	workflows, _ := LoadDir(dir, []string{"*.yml"})

	m := NewMatcher(nil)
	suggestions := m.Suggest(workflows, []string{"pkg/sub/service.py"})
	if len(suggestions) != 1 || suggestions[0].Job != "build" {
		t.Fatalf("expected build via path filter, got %v", suggestions)
	}
	if suggestions[0].Reason != "path:pkg/**" {
		t.Errorf("unexpected reason %q", suggestions[0].Reason)
	}

	if got := m.Suggest(workflows, []string{"unrelated/readme.md"}); len(got) != 0 {
		t.Errorf("non-matching change must suggest nothing, got %v", got)
	}
}

func TestSuggestPrefixFilter(t *testing.T) {
	workflows := []Workflow{{
		Path:        "ci.yml",
		Jobs:        []Job{{Key: "docs-build", Text: []string{"docs-build", "mkdocs build"}}},
		PathFilters: []string{"docs/"},
	}}

	m := NewMatcher(nil)
	if got := m.Suggest(workflows, []string{"docs/index.md"}); len(got) != 1 {
		t.Errorf("expected prefix filter match, got %v", got)
	}
	if got := m.Suggest(workflows, []string{"docsx/index.md"}); len(got) != 0 {
		t.Errorf("prefix must respect path boundaries, got %v", got)
	}
}

func TestSuggestEmptyChangeSet(t *testing.T) {
	dir := writeWorkflows(t, map[string]string{"ci.yml": ciYAML})
	workflows, _ := LoadDir(dir, []string{"*.yml"})

	m := NewMatcher([]string{"test"})
	if got := m.Suggest(workflows, nil); got != nil {
		t.Errorf("empty change set must suggest nothing, got %v", got)
	}
}

func TestJobNames(t *testing.T) {
	names := JobNames([]Suggestion{
		{Workflow: "a.yml", Job: "unit-tests"},
		{Workflow: "b.yml", Job: "unit-tests"},
		{Workflow: "b.yml", Job: "integration"},
	})
	if len(names) != 2 || names[0] != "unit-tests" || names[1] != "integration" {
		t.Errorf("JobNames = %v", names)
	}
}
