package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"ripple/internal/errors"
)

// Workflow is one CI workflow document reduced to what job matching
// needs: its jobs' free text and the document-level path filters.
type Workflow struct {
	Path        string
	Name        string
	Jobs        []Job
	PathFilters []string
}

// Job carries a job's identifying text: key, display name, step names,
// run commands, uses references, and working directories.
type Job struct {
	Key  string
	Name string
	Text []string
}

type document struct {
	Name string            `yaml:"name"`
	Jobs map[string]jobDoc `yaml:"jobs"`
}

type jobDoc struct {
	Name     string `yaml:"name"`
	Defaults struct {
		Run struct {
			WorkingDirectory string `yaml:"working-directory"`
		} `yaml:"run"`
	} `yaml:"defaults"`
	Steps []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	Name             string `yaml:"name"`
	Run              string `yaml:"run"`
	Uses             string `yaml:"uses"`
	WorkingDirectory string `yaml:"working-directory"`
}

// LoadDir parses the workflow documents under dir matching the given
// filename globs. A document that fails to decode is skipped with a
// diagnostic; job suggestions then degrade to a partial set instead of
// failing the run. A missing directory is not an error — the project
// simply has no workflows.
func LoadDir(dir string, globs []string) ([]Workflow, []errors.Diagnostic) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []errors.Diagnostic{{
			Code:   errors.CodeWorkflowParse,
			Path:   dir,
			Detail: err.Error(),
		}}
	}

	compiled := make([]glob.Glob, 0, len(globs))
	for _, pattern := range globs {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, g)
	}

	var workflows []Workflow
	var diags []errors.Diagnostic

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched := false
		for _, g := range compiled {
			if g.Match(entry.Name()) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		wf, err := Parse(path)
		if err != nil {
			diags = append(diags, errors.Diagnostic{
				Code:   errors.CodeWorkflowParse,
				Path:   path,
				Detail: err.Error(),
			})
			continue
		}
		workflows = append(workflows, wf)
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].Path < workflows[j].Path })
	return workflows, diags
}

func Parse(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Workflow{}, fmt.Errorf("decode workflow: %w", err)
	}
	if doc.Jobs == nil {
		return Workflow{}, fmt.Errorf("workflow has no jobs mapping")
	}

	wf := Workflow{
		Path:        path,
		Name:        doc.Name,
		PathFilters: extractPathFilters(data),
	}

	keys := make([]string, 0, len(doc.Jobs))
	for key := range doc.Jobs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		jd := doc.Jobs[key]
		job := Job{Key: key, Name: jd.Name}

		job.Text = appendNonEmpty(job.Text, key, jd.Name, jd.Defaults.Run.WorkingDirectory)
		for _, step := range jd.Steps {
			job.Text = appendNonEmpty(job.Text, step.Name, step.Run, step.Uses, step.WorkingDirectory)
		}

		wf.Jobs = append(wf.Jobs, job)
	}

	return wf, nil
}

// extractPathFilters pulls on.push.paths and on.pull_request.paths out
// of the raw document. The trigger key decodes through a yaml.Node
// because "on" arrives in three shapes (scalar, list, map) and the
// YAML 1.1 resolver may read the bare key as a boolean.
func extractPathFilters(data []byte) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	var trigger *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if key.Value == "on" || key.Value == "true" {
			trigger = doc.Content[i+1]
			break
		}
	}
	if trigger == nil || trigger.Kind != yaml.MappingNode {
		// Scalar ("on: push") and list shapes carry no path filters.
		return nil
	}

	var filters []string
	for i := 0; i+1 < len(trigger.Content); i += 2 {
		event := trigger.Content[i].Value
		if event != "push" && event != "pull_request" {
			continue
		}
		spec := trigger.Content[i+1]
		if spec.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(spec.Content); j += 2 {
			if spec.Content[j].Value != "paths" {
				continue
			}
			paths := spec.Content[j+1]
			if paths.Kind != yaml.SequenceNode {
				continue
			}
			for _, item := range paths.Content {
				if v := strings.TrimSpace(item.Value); v != "" {
					filters = append(filters, v)
				}
			}
		}
	}

	return dedupe(filters)
}

func appendNonEmpty(dst []string, values ...string) []string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			dst = append(dst, v)
		}
	}
	return dst
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
