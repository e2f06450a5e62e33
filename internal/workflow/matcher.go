package workflow

import (
	"strings"

	"github.com/gobwas/glob"
)

// Suggestion names a job that should run given the changed files, with
// the reason it matched. Suggestions are advisory only: matching is a
// token and path-filter heuristic, not a graph traversal, so a job
// without a suggestion is not proven safe to skip.
type Suggestion struct {
	Workflow string `json:"workflow"`
	Job      string `json:"job"`
	Reason   string `json:"reason"`
}

type Matcher struct {
	tokens []string
}

func NewMatcher(tokens []string) *Matcher {
	lowered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			lowered = append(lowered, tok)
		}
	}
	return &Matcher{tokens: lowered}
}

// Suggest selects jobs to run for a non-empty changed set. A job is
// suggested when a test-indicating token appears in its name or text,
// or when one of its workflow's path filters matches a changed path.
func (m *Matcher) Suggest(workflows []Workflow, changedPaths []string) []Suggestion {
	if len(changedPaths) == 0 {
		return nil
	}

	var suggestions []Suggestion
	for _, wf := range workflows {
		pathReason := m.matchPaths(wf.PathFilters, changedPaths)

		for _, job := range wf.Jobs {
			if tok := m.matchTokens(job); tok != "" {
				suggestions = append(suggestions, Suggestion{
					Workflow: wf.Path,
					Job:      job.Key,
					Reason:   "token:" + tok,
				})
				continue
			}
			if pathReason != "" {
				suggestions = append(suggestions, Suggestion{
					Workflow: wf.Path,
					Job:      job.Key,
					Reason:   pathReason,
				})
			}
		}
	}

	return suggestions
}

func (m *Matcher) matchTokens(job Job) string {
	for _, tok := range m.tokens {
		for _, text := range job.Text {
			if strings.Contains(strings.ToLower(text), tok) {
				return tok
			}
		}
	}
	return ""
}

// matchPaths reports the first path filter overlapping a changed path.
// Filters with glob metacharacters match with / as separator; plain
// filters match by path prefix.
func (m *Matcher) matchPaths(filters, changedPaths []string) string {
	for _, filter := range filters {
		if strings.ContainsAny(filter, "*?[{") {
			g, err := glob.Compile(filter, '/')
			if err != nil {
				continue
			}
			for _, p := range changedPaths {
				if g.Match(p) {
					return "path:" + filter
				}
			}
			continue
		}

		prefix := strings.TrimSuffix(filter, "/")
		for _, p := range changedPaths {
			if p == filter || strings.HasPrefix(p, prefix+"/") {
				return "path:" + filter
			}
		}
	}
	return ""
}

// JobNames flattens suggestions to their job names, deduplicated.
func JobNames(suggestions []Suggestion) []string {
	seen := make(map[string]bool, len(suggestions))
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if seen[s.Job] {
			continue
		}
		seen[s.Job] = true
		names = append(names, s.Job)
	}
	return names
}
