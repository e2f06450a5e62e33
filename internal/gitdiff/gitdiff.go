package gitdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"ripple/internal/errors"
)

type Kind string

const (
	Added    Kind = "added"
	Modified Kind = "modified"
	Deleted  Kind = "deleted"
)

type Change struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Reader obtains changed files for a revision range by delegating to
// the git process. It is the version-control collaborator of the
// analysis core; tests inject a fake in its place.
type Reader struct {
	repoRoot string
}

func NewReader(repoRoot string) *Reader {
	return &Reader{repoRoot: repoRoot}
}

// Changes lists the files added, modified, or deleted in revRange.
// --no-renames makes git report a rename as delete(old) + add(new),
// which is how a rename must enter impact propagation. The range
// "HEAD" diffs the working tree against HEAD (watch mode). A failing
// git process is fatal: without a real diff nothing downstream is
// sound.
func (r *Reader) Changes(ctx context.Context, revRange string) ([]Change, error) {
	revRange = strings.TrimSpace(revRange)
	if revRange == "" {
		return nil, errors.New(errors.CodeRevisionRange, "revision range must not be empty")
	}

	args := []string{"-C", r.repoRoot, "diff", "--name-status", "--no-renames", revRange}
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeCancelled, "revision diff cancelled")
		}
		derr := errors.Wrap(err, errors.CodeRevisionRange,
			fmt.Sprintf("git diff failed: %s", strings.TrimSpace(stderr.String())))
		return nil, errors.AddContext(derr, errors.CtxRange, revRange)
	}

	return parseNameStatus(stdout.String()), nil
}

// parseNameStatus decodes `git diff --name-status` output. Lines are
// tab-separated: a status letter followed by one path, or two paths
// for rename/copy lines. Renames should not appear under --no-renames;
// if one does, it decays to delete(old) + add(new).
func parseNameStatus(out string) []Change {
	var changes []Change

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := fields[0]
		switch {
		case strings.HasPrefix(status, "A"):
			changes = append(changes, Change{Path: fields[1], Kind: Added})
		case strings.HasPrefix(status, "D"):
			changes = append(changes, Change{Path: fields[1], Kind: Deleted})
		case strings.HasPrefix(status, "M"), strings.HasPrefix(status, "T"):
			changes = append(changes, Change{Path: fields[1], Kind: Modified})
		case strings.HasPrefix(status, "R"), strings.HasPrefix(status, "C"):
			if len(fields) >= 3 {
				changes = append(changes, Change{Path: fields[1], Kind: Deleted})
				changes = append(changes, Change{Path: fields[2], Kind: Added})
			}
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Path != changes[j].Path {
			return changes[i].Path < changes[j].Path
		}
		return changes[i].Kind < changes[j].Kind
	})
	return changes
}

// Paths flattens a change list to its file paths, deduplicated.
func Paths(changes []Change) []string {
	seen := make(map[string]bool, len(changes))
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		if seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		paths = append(paths, c.Path)
	}
	return paths
}
