package util

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	cases := map[string]string{
		"./pkg/util":  "pkg/util",
		"pkg\\util":   "pkg/util",
		"  pkg/  ":    "pkg",
		".":           "",
		"pkg//util/.": "pkg/util",
	}
	for in, want := range cases {
		if got := NormalizePatternPath(in); got != want {
			t.Errorf("NormalizePatternPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasPathPrefix(t *testing.T) {
	if !HasPathPrefix("pkg/util/io.py", "pkg/util") {
		t.Error("expected nested path to match prefix")
	}
	if !HasPathPrefix("pkg/util", "pkg/util") {
		t.Error("expected exact path to match prefix")
	}
	if HasPathPrefix("pkg/utilities", "pkg/util") {
		t.Error("expected sibling with shared text to not match")
	}
}

func TestSortedStringKeys(t *testing.T) {
	m := map[string]int{"b": 1, "a": 2, "c": 3}
	if got := SortedStringKeys(m); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected keys: %v", got)
	}
}

func TestWriteStringWithDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "impact.dot")
	if err := WriteStringWithDirs(path, "digraph impact {}\n", 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "digraph impact {}\n" {
		t.Errorf("unexpected content: %q", data)
	}
}
