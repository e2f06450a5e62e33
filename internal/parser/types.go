package parser

import (
	"time"
)

type File struct {
	Path        string
	Language    string
	Module      string // Canonical module id, assigned after parsing
	PackageName string // Declared package name (Go)
	Imports     []Import
	Definitions []Definition
	ParsedAt    time.Time
}

type Import struct {
	Module     string   // Imported module as written, relative dots stripped
	RawImport  string   // Original import text, relative dots included
	Alias      string   // Optional alias
	Items      []string // For "from X import Y, Z"
	IsRelative bool     // For Python relative imports
	Location   Location
}

// RelativeLevel reports how many leading dots a relative import carries.
func (i Import) RelativeLevel() int {
	if !i.IsRelative {
		return 0
	}
	level := 0
	for _, r := range i.RawImport {
		if r != '.' {
			break
		}
		level++
	}
	return level
}

type Definition struct {
	Name     string
	Kind     DefinitionKind
	Exported bool
	Location Location
}

type DefinitionKind int

const (
	KindFunction DefinitionKind = iota
	KindClass
	KindMethod
	KindType
)

type Location struct {
	File   string
	Line   int
	Column int
}
