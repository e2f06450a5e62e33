package parser

import (
	"testing"
)

func newTestParser() *Parser {
	p := NewParser(NewGrammarLoader())
	p.RegisterExtractor("python", &PythonExtractor{})
	p.RegisterExtractor("go", &GoExtractor{})
	return p
}

func findImport(t *testing.T, file *File, module string) Import {
	t.Helper()
	for _, imp := range file.Imports {
		if imp.Module == module {
			return imp
		}
	}
	t.Fatalf("import %q not found in %v", module, file.Imports)
	return Import{}
}

func TestParsePythonImports(t *testing.T) {
	src := `import os
import pkg.util
import numpy as np
from pkg.service import Service, helper
from . import sibling
from ..core import engine

def handler():
    import json
    return json

class Worker:
    pass
`
	file, err := newTestParser().ParseFile("pkg/sub/mod.py", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	if file.Language != "python" {
		t.Errorf("expected python, got %s", file.Language)
	}

	findImport(t, file, "os")
	findImport(t, file, "pkg.util")

	np := findImport(t, file, "numpy")
	if np.Alias != "np" {
		t.Errorf("expected alias np, got %q", np.Alias)
	}

	svc := findImport(t, file, "pkg.service")
	if svc.IsRelative {
		t.Error("absolute from-import flagged relative")
	}
	if len(svc.Items) != 2 || svc.Items[0] != "Service" || svc.Items[1] != "helper" {
		t.Errorf("unexpected from-import items: %v", svc.Items)
	}

	// Nested imports count too: impact propagation must see them.
	findImport(t, file, "json")

	var relatives []Import
	for _, imp := range file.Imports {
		if imp.IsRelative {
			relatives = append(relatives, imp)
		}
	}
	if len(relatives) != 2 {
		t.Fatalf("expected 2 relative imports, got %v", relatives)
	}
	if relatives[0].RelativeLevel() != 1 || relatives[0].Module != "" {
		t.Errorf("from . import: level=%d module=%q", relatives[0].RelativeLevel(), relatives[0].Module)
	}
	if relatives[1].RelativeLevel() != 2 || relatives[1].Module != "core" {
		t.Errorf("from ..core import: level=%d module=%q", relatives[1].RelativeLevel(), relatives[1].Module)
	}
}

func TestParsePythonDefinitions(t *testing.T) {
	src := `def public_fn():
    pass

def _private_fn():
    pass

class Service:
    def method(self):
        pass
`
	file, err := newTestParser().ParseFile("pkg/service.py", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	byName := make(map[string]Definition)
	for _, def := range file.Definitions {
		byName[def.Name] = def
	}

	if def, ok := byName["public_fn"]; !ok || !def.Exported || def.Kind != KindFunction {
		t.Errorf("public_fn: %+v", def)
	}
	if def, ok := byName["_private_fn"]; !ok || def.Exported {
		t.Errorf("_private_fn should be unexported: %+v", def)
	}
	if def, ok := byName["Service"]; !ok || def.Kind != KindClass {
		t.Errorf("Service: %+v", def)
	}
}

func TestParseGoFile(t *testing.T) {
	src := `package store

import (
	"fmt"
	api "example.com/svc/internal/api"
	_ "modernc.org/sqlite"
)

type Store struct{}

type recordRow struct{}

func Open(path string) (*Store, error) {
	return nil, fmt.Errorf("unimplemented: %s", path)
}

func (s *Store) Close() error { return nil }
`
	file, err := newTestParser().ParseFile("internal/store/store.go", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	if file.PackageName != "store" {
		t.Errorf("expected package store, got %s", file.PackageName)
	}

	if len(file.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %v", file.Imports)
	}

	aliased := findImport(t, file, "example.com/svc/internal/api")
	if aliased.Alias != "api" {
		t.Errorf("expected alias api, got %q", aliased.Alias)
	}
	blank := findImport(t, file, "modernc.org/sqlite")
	if blank.Alias != "_" {
		t.Errorf("expected blank alias, got %q", blank.Alias)
	}

	byName := make(map[string]Definition)
	for _, def := range file.Definitions {
		byName[def.Name] = def
	}
	if def := byName["Store"]; def.Kind != KindType || !def.Exported {
		t.Errorf("Store: %+v", def)
	}
	if def := byName["recordRow"]; def.Exported {
		t.Errorf("recordRow should be unexported: %+v", def)
	}
	if def := byName["Open"]; def.Kind != KindFunction {
		t.Errorf("Open: %+v", def)
	}
	if def := byName["Close"]; def.Kind != KindMethod {
		t.Errorf("Close: %+v", def)
	}
}

func TestParseUnsupportedLanguage(t *testing.T) {
	if _, err := newTestParser().ParseFile("notes.txt", []byte("hello")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("a/b.py") != "python" || DetectLanguage("a/b.go") != "go" || DetectLanguage("a/b.rs") != "" {
		t.Error("DetectLanguage misclassified a path")
	}
}
