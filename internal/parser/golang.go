package parser

import (
	"strings"
	"time"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type GoExtractor struct{}

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "go",
		ParsedAt: time.Now(),
	}

	e.walk(root, source, file)

	return file, nil
}

func (e *GoExtractor) walk(node *sitter.Node, source []byte, file *File) {
	switch node.Kind() {
	case "package_clause":
		e.extractPackage(node, source, file)
	case "import_declaration":
		e.extractImports(node, source, file)
	case "function_declaration", "method_declaration":
		e.extractFunction(node, source, file)
	case "type_declaration":
		e.extractType(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file)
	}
}

func (e *GoExtractor) extractPackage(node *sitter.Node, source []byte, file *File) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "package_identifier" {
			file.PackageName = e.getText(child, source)
		}
	}
}

func (e *GoExtractor) extractImports(node *sitter.Node, source []byte, file *File) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() != "import_spec" {
			e.extractImports(child, source, file)
			continue
		}

		var alias, path string
		for j := uint(0); j < child.ChildCount(); j++ {
			spec := child.Child(j)

			switch spec.Kind() {
			case "package_identifier", "blank_identifier", "dot":
				alias = e.getText(spec, source)
			case "interpreted_string_literal", "raw_string_literal":
				path = strings.Trim(e.getText(spec, source), "\"`")
			}
		}

		if path != "" {
			file.Imports = append(file.Imports, Import{
				Module:    path,
				RawImport: path,
				Alias:     alias,
				Location:  e.getLocation(child, file.Path),
			})
		}
	}
}

func (e *GoExtractor) extractFunction(node *sitter.Node, source []byte, file *File) {
	var name string
	kind := KindFunction

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" || child.Kind() == "field_identifier" {
			name = e.getText(child, source)
			break
		}
	}
	if name == "" {
		return
	}

	if node.Kind() == "method_declaration" {
		kind = KindMethod
	}

	file.Definitions = append(file.Definitions, Definition{
		Name:     name,
		Kind:     kind,
		Exported: unicode.IsUpper(rune(name[0])),
		Location: e.getLocation(node, file.Path),
	})
}

func (e *GoExtractor) extractType(node *sitter.Node, source []byte, file *File) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "type_spec" {
			continue
		}

		for j := uint(0); j < child.ChildCount(); j++ {
			spec := child.Child(j)
			if spec.Kind() != "type_identifier" {
				continue
			}

			name := e.getText(spec, source)
			file.Definitions = append(file.Definitions, Definition{
				Name:     name,
				Kind:     KindType,
				Exported: unicode.IsUpper(rune(name[0])),
				Location: e.getLocation(child, file.Path),
			})
			break
		}
	}
}

func (e *GoExtractor) getLocation(node *sitter.Node, filePath string) Location {
	return Location{
		File:   filePath,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (e *GoExtractor) getText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
