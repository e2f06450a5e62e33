package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/config"
	"ripple/internal/errors"
	"ripple/internal/gitdiff"
)

type fakeSource struct {
	changes []gitdiff.Change
	err     error
}

func (f *fakeSource) Changes(ctx context.Context, revRange string) ([]gitdiff.Change, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.changes, nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

const workflowYAML = `name: CI
on: [push]
jobs:
  unit-tests:
    steps:
      - run: pytest
  lint:
    steps:
      - run: flake8
`

// pkg.util <- pkg.service <- pkg.api, test imports pkg.service.
func fixtureProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py":          "",
		"pkg/util.py":              "def helper():\n    return 1\n",
		"pkg/service.py":           "import pkg.util\n\ndef serve():\n    return pkg.util.helper()\n",
		"pkg/api.py":               "from pkg.service import serve\n",
		"tests/test_service.py":    "import pkg.service\n",
		"assets/data.csv":          "a,b\n",
		".github/workflows/ci.yml": workflowYAML,
	})
	return root
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "ripple.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[project]\nroot = '"+root+"'\nlanguages = ['python']\n"), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	return cfg
}

func TestAnalyzeScenario(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/util.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg.api", "pkg.service", "pkg.util"}, result.ImpactedModules)
	assert.Equal(t, []string{"tests/test_service.py"}, result.ImpactedTests)
	assert.Equal(t, []string{"unit-tests"}, result.JobNames())
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.Unresolved)
	assert.Empty(t, result.Cycles)
	assert.Equal(t, 5, result.Stats.FilesParsed)
}

// Changing the top of the chain must not drag its imports in.
func TestAnalyzeDirectionality(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/api.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg.api"}, result.ImpactedModules)
	assert.Empty(t, result.ImpactedTests)
	assert.Equal(t, cfg.Git.DefaultRange, result.Range)
}

func TestAnalyzeIdempotent(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/util.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	first, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Equal(t, first.ImpactedModules, second.ImpactedModules)
	assert.Equal(t, first.ImpactedTests, second.ImpactedTests)
	assert.Equal(t, first.JobNames(), second.JobNames())
}

func TestAnalyzeUnresolvedChange(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "assets/data.csv", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Empty(t, result.ImpactedModules)
	assert.Empty(t, result.ImpactedTests)
	assert.Equal(t, []string{"assets/data.csv"}, result.Unresolved)
	// A non-empty change set still drives the job heuristic.
	assert.Equal(t, []string{"unit-tests"}, result.JobNames())
}

// A deleted module has no graph node, but its surviving importers must
// still be impacted through the name-keyed reverse index.
func TestAnalyzeDeletedModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/consumer.py": "import pkg.removed\n",
	})
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/removed.py", Kind: gitdiff.Deleted}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg.consumer", "pkg.removed"}, result.ImpactedModules)
}

// An __init__.py importing its own submodules relatively must become
// an importer of them; missing that edge would understate the impact
// of a submodule change.
func TestAnalyzePackageRelativeImport(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "from . import util\nfrom .service import serve\n",
		"pkg/util.py":     "def helper():\n    return 1\n",
		"pkg/service.py":  "def serve():\n    return 2\n",
	})
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/util.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg", "pkg.util"}, result.ImpactedModules)
	assert.Empty(t, result.Diagnostics)
}

func TestAnalyzeCycleTerminates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "import pkg.b\n",
		"pkg/b.py":        "import pkg.a\n",
	})
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/a.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg.a", "pkg.b"}, result.ImpactedModules)
	assert.Len(t, result.Cycles, 1)
}

func TestAnalyzeUnparsableFileSkipped(t *testing.T) {
	root := fixtureProject(t)
	writeTree(t, root, map[string]string{
		"pkg/broken.py": "def broken(:\n",
	})
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/util.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	// The run must complete; precision may degrade but the impact set
	// for the parsable part of the project stays intact.
	result, err := a.Analyze(context.Background(), "HEAD~1..HEAD")
	require.NoError(t, err)
	assert.Contains(t, result.ImpactedModules, "pkg.service")
}

func TestAnalyzeRevisionRangeFatal(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{err: errors.New(errors.CodeRevisionRange, "unknown revision")}
	a, err := New(cfg, source)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), "bogus..HEAD")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRevisionRange))
}

func TestAnalyzeCancelled(t *testing.T) {
	root := fixtureProject(t)
	cfg := testConfig(t, root)

	source := &fakeSource{changes: []gitdiff.Change{{Path: "pkg/util.py", Kind: gitdiff.Modified}}}
	a, err := New(cfg, source)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := a.Analyze(ctx, "HEAD~1..HEAD")
	require.Error(t, err)
	require.Nil(t, result, "cancellation must never return a partial result")
	assert.True(t, errors.IsCode(err, errors.CodeCancelled))
}

func TestNewMissingRoot(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Project.Root = filepath.Join(cfg.Project.Root, "definitely-absent")

	_, err := New(cfg, &fakeSource{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestIsTestFile(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	a := &Analyzer{cfg: cfg}

	assert.True(t, a.isTestFile("tests/test_service.py"))
	assert.True(t, a.isTestFile("internal/store/store_test.go"))
	assert.False(t, a.isTestFile("pkg/service.py"))
	assert.False(t, a.isTestFile("internal/store/store.go"))
}
