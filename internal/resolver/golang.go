package resolver

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"ripple/internal/errors"
)

var goModuleRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// GoResolver maps .go file paths to package ids anchored at the module
// path declared in the project root go.mod.
type GoResolver struct {
	modulePath string
}

func NewGoResolver(projectRoot string) (*GoResolver, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, "go.mod"))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read go.mod")
	}

	m := goModuleRe.FindSubmatch(data)
	if m == nil {
		return nil, errors.New(errors.CodeValidationError, "go.mod declares no module path")
	}

	return &GoResolver{modulePath: string(m[1])}, nil
}

func (r *GoResolver) ModulePath() string {
	return r.modulePath
}

func (r *GoResolver) PathToModule(relPath string) (string, bool) {
	if !strings.HasSuffix(relPath, ".go") {
		return "", false
	}

	dir := path.Dir(filepathToSlash(relPath))
	if dir == "." {
		return r.modulePath, true
	}
	return r.modulePath + "/" + dir, true
}

// ModuleToPath returns the package directory for a package id. A Go
// package spans several files, so the directory is the closest stable
// path representation.
func (r *GoResolver) ModuleToPath(moduleID string) (string, bool) {
	if moduleID == r.modulePath {
		return ".", true
	}
	rest, ok := strings.CutPrefix(moduleID, r.modulePath+"/")
	if !ok {
		return "", false
	}
	return rest, true
}

func (r *GoResolver) Internal(importPath string) bool {
	return importPath == r.modulePath || strings.HasPrefix(importPath, r.modulePath+"/")
}
