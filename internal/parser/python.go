package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "python",
		ParsedAt: time.Now(),
	}

	e.walk(root, source, file)

	return file, nil
}

func (e *PythonExtractor) walk(node *sitter.Node, source []byte, file *File) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, file)
	case "import_from_statement":
		e.extractFromImport(node, source, file)
	case "function_definition":
		e.extractFunction(node, source, file)
	case "class_definition":
		e.extractClass(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file)
	}
}

func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, file *File) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() == "dotted_name" || child.Kind() == "identifier" {
			module := e.getText(child, source)
			file.Imports = append(file.Imports, Import{
				Module:    module,
				RawImport: module,
				Location:  e.getLocation(child, file.Path),
			})
		} else if child.Kind() == "aliased_import" {
			var module, alias string
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					if module == "" {
						module = e.getText(sub, source)
					} else {
						alias = e.getText(sub, source)
					}
				}
			}
			file.Imports = append(file.Imports, Import{
				Module:    module,
				RawImport: module,
				Alias:     alias,
				Location:  e.getLocation(child, file.Path),
			})
		}
	}
}

func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, file *File) {
	var module, raw string
	var items []string
	isRelative := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "relative_import":
			isRelative = true
			raw = e.getText(child, source)
			module = strings.TrimLeft(raw, ".")

		case "dotted_name", "identifier":
			if !isRelative && module == "" {
				module = e.getText(child, source)
				raw = module
			}

		case "import_list", "aliased_import":
			e.collectItems(child, source, &items)
		}
	}

	// "from X import y" without an import_list wraps y as a plain child.
	if len(items) == 0 {
		foundImport := false
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "import" {
				foundImport = true
				continue
			}
			if foundImport && (child.Kind() == "identifier" || child.Kind() == "dotted_name") {
				items = append(items, e.getText(child, source))
			}
		}
	}

	file.Imports = append(file.Imports, Import{
		Module:     module,
		RawImport:  raw,
		Items:      items,
		IsRelative: isRelative,
		Location:   e.getLocation(node, file.Path),
	})
}

func (e *PythonExtractor) collectItems(node *sitter.Node, source []byte, items *[]string) {
	kind := node.Kind()
	if kind == "identifier" || kind == "dotted_name" {
		*items = append(*items, e.getText(node, source))
		return
	}
	if kind == "aliased_import" {
		// Only the original name matters for resolution, not the alias.
		for i := uint(0); i < node.ChildCount(); i++ {
			sub := node.Child(i)
			if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
				*items = append(*items, e.getText(sub, source))
				return
			}
		}
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.collectItems(node.Child(i), source, items)
	}
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, source []byte, file *File) {
	name := e.getChildText(node, "identifier", source)
	if name == "" {
		return
	}

	file.Definitions = append(file.Definitions, Definition{
		Name:     name,
		Kind:     KindFunction,
		Exported: !strings.HasPrefix(name, "_"),
		Location: e.getLocation(node, file.Path),
	})
}

func (e *PythonExtractor) extractClass(node *sitter.Node, source []byte, file *File) {
	name := e.getChildText(node, "identifier", source)
	if name == "" {
		return
	}

	file.Definitions = append(file.Definitions, Definition{
		Name:     name,
		Kind:     KindClass,
		Exported: !strings.HasPrefix(name, "_"),
		Location: e.getLocation(node, file.Path),
	})
}

func (e *PythonExtractor) getChildText(node *sitter.Node, kind string, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return e.getText(child, source)
		}
	}
	return ""
}

func (e *PythonExtractor) getLocation(node *sitter.Node, filePath string) Location {
	return Location{
		File:   filePath,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (e *PythonExtractor) getText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
