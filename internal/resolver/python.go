package resolver

import (
	"path"
	"strings"

	"ripple/internal/parser"
)

// PythonResolver maps repo-relative .py paths to dotted module ids and
// back. Resolution is a pure function of the registered snapshot: it
// never consults the filesystem, so the mapping stays bijective within
// the recognized namespace.
type PythonResolver struct {
	// moduleToPath records every registered module so ModuleToPath can
	// distinguish a/b.py from a/b/__init__.py.
	moduleToPath map[string]string
	// topLevel holds the first segment of every registered module id.
	// Imports outside these namespaces are external.
	topLevel map[string]bool
}

func NewPythonResolver(paths []string) *PythonResolver {
	r := &PythonResolver{
		moduleToPath: make(map[string]string),
		topLevel:     make(map[string]bool),
	}
	for _, p := range paths {
		r.Register(p)
	}
	return r
}

func (r *PythonResolver) Register(relPath string) {
	id, ok := r.PathToModule(relPath)
	if !ok {
		return
	}
	// Prefer the plain module file over __init__.py when both map to
	// the same id.
	if existing, dup := r.moduleToPath[id]; !dup || strings.HasSuffix(existing, "__init__.py") {
		r.moduleToPath[id] = relPath
	}
	if first, _, found := strings.Cut(id, "."); found {
		r.topLevel[first] = true
	} else {
		r.topLevel[id] = true
	}
}

func (r *PythonResolver) PathToModule(relPath string) (string, bool) {
	if !strings.HasSuffix(relPath, ".py") {
		return "", false
	}

	parts := strings.Split(path.Clean(filepathToSlash(relPath)), "/")
	parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".py")

	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
		if len(parts) == 0 {
			return "", false
		}
	}

	return strings.Join(parts, "."), true
}

func (r *PythonResolver) ModuleToPath(moduleID string) (string, bool) {
	if p, ok := r.moduleToPath[moduleID]; ok {
		return p, true
	}
	if moduleID == "" {
		return "", false
	}
	return strings.ReplaceAll(moduleID, ".", "/") + ".py", true
}

// IsModule reports whether a dotted id names a module in the snapshot.
func (r *PythonResolver) IsModule(moduleID string) bool {
	_, ok := r.moduleToPath[moduleID]
	return ok
}

// isPackage reports whether an id is backed by an __init__.py.
func (r *PythonResolver) isPackage(moduleID string) bool {
	p, ok := r.moduleToPath[moduleID]
	return ok && strings.HasSuffix(p, "__init__.py")
}

// Internal reports whether an absolute import lands inside the project
// namespace. Anything else (stdlib, third-party) is dropped by the
// graph builder.
func (r *PythonResolver) Internal(moduleID string) bool {
	first, _, _ := strings.Cut(moduleID, ".")
	return r.topLevel[first]
}

// ResolveImport turns an import statement observed in fromModule into a
// dotted module id. Absolute imports pass through unchanged; relative
// imports resolve against the importing module's package. A level
// deeper than the importing package cannot be resolved.
func (r *PythonResolver) ResolveImport(fromModule string, imp parser.Import) (string, bool) {
	if !imp.IsRelative {
		return imp.Module, imp.Module != ""
	}

	level := imp.RelativeLevel()
	// A package module's id is already its package, so the first dot
	// refers to the package itself, not its parent.
	if r.isPackage(fromModule) {
		level--
	}
	parts := strings.Split(fromModule, ".")
	if level > len(parts) {
		return "", false
	}

	base := strings.Join(parts[:len(parts)-level], ".")
	if imp.Module == "" {
		return base, base != ""
	}
	if base == "" {
		return imp.Module, true
	}
	return base + "." + imp.Module, true
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
