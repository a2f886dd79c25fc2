package parser

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
)

var goModuleDirective = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// GoModule locates the go.mod governing a directory and maps source
// directories to import paths.
type GoModule struct {
	Root string
	Path string
}

// FindGoModule walks upwards from start until it finds a go.mod.
func FindGoModule(start string) (*GoModule, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		current = start
	}
	if info, err := os.Stat(current); err == nil && !info.IsDir() {
		current = filepath.Dir(current)
	}
	for {
		modPath := filepath.Join(current, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return parseGoMod(modPath)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, errors.New("no go.mod found")
		}
		current = parent
	}
}

func parseGoMod(path string) (*GoModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := goModuleDirective.FindSubmatch(data)
	if len(matches) < 2 {
		return nil, errors.New("go.mod has no module directive: " + path)
	}
	return &GoModule{Root: filepath.Dir(path), Path: string(matches[1])}, nil
}

// ImportPath returns the import path of the package in dir.
func (m *GoModule) ImportPath(dir string) string {
	rel, err := filepath.Rel(m.Root, dir)
	if err != nil || rel == "." {
		return m.Path
	}
	return m.Path + "/" + filepath.ToSlash(rel)
}
