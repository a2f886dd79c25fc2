package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the absolute locations derived from a Config.
type ResolvedPaths struct {
	ProjectRoot string
	DocsDir     string
	LedgerPath  string
}

// ResolvePaths anchors relative config paths at the config file's directory.
// Without a config file, the project root is detected from cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	base := cwd
	if cfg.path != "" {
		base = filepath.Dir(cfg.path)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, err
	}

	var projectRoot string
	if cfg.path == "" && strings.TrimSpace(cfg.Project.Root) == "." {
		projectRoot = DetectProjectRoot([]string{abs})
	} else {
		projectRoot = ResolveRelative(abs, cfg.Project.Root)
	}

	resolved := ResolvedPaths{
		ProjectRoot: projectRoot,
		DocsDir:     ResolveRelative(projectRoot, cfg.Docs.OutputDir),
	}
	if cfg.Ledger.Driver == "sqlite" {
		resolved.LedgerPath = ResolveRelative(projectRoot, cfg.Ledger.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate to the first directory
// holding a project marker. It falls back to the first candidate.
func DetectProjectRoot(candidates []string) string {
	markers := []string{
		DefaultFile,
		"go.mod",
		"pom.xml",
		"build.gradle",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root)
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	if len(candidates) > 0 {
		if abs, err := filepath.Abs(candidates[0]); err == nil {
			return abs
		}
	}
	return "."
}
