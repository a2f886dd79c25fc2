package parser

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/gobwas/glob"

	"modulith/internal/core/errors"
	"modulith/internal/engine/typegraph"
)

// SourceOptions controls which files of a source tree are parsed.
type SourceOptions struct {
	Root         string
	IncludeTests bool
	// ExcludeDirs and ExcludeFiles are glob patterns matched against base
	// names.
	ExcludeDirs  []string
	ExcludeFiles []string
	Workers      int
}

// GoSource loads a type graph from a Go module. Package import paths are
// derived from the governing go.mod unless ModulePath is set.
type GoSource struct {
	SourceOptions
	ModulePath string
}

func NewGoSource(opts SourceOptions) *GoSource {
	return &GoSource{SourceOptions: opts}
}

func (s *GoSource) Load(ctx context.Context) ([]*typegraph.Type, error) {
	p, err := NewParser(LanguageGo)
	if err != nil {
		return nil, err
	}
	mod := &GoModule{Root: s.Root, Path: s.ModulePath}
	if mod.Path == "" {
		found, err := FindGoModule(s.Root)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "locate go.mod"), errors.CtxPath, s.Root)
		}
		mod = found
	}

	files, err := scan(ctx, s.SourceOptions, p, func(path string, content []byte) bool {
		return !isGeneratedGo(content)
	})
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		dir, err := filepath.Abs(filepath.Dir(f.Path))
		if err != nil {
			dir = filepath.Dir(f.Path)
		}
		root, err := filepath.Abs(mod.Root)
		if err != nil {
			root = mod.Root
		}
		f.Package = (&GoModule{Root: root, Path: mod.Path}).ImportPath(dir)
	}
	return NewResolver().Resolve(files), nil
}

// JavaSource loads a type graph from Java sources.
type JavaSource struct {
	SourceOptions
	ExposedAnnotations  []string
	ListenerAnnotations []string
}

func NewJavaSource(opts SourceOptions) *JavaSource {
	return &JavaSource{SourceOptions: opts}
}

func (s *JavaSource) Load(ctx context.Context) ([]*typegraph.Type, error) {
	p, err := NewParser(LanguageJava)
	if err != nil {
		return nil, err
	}
	extractor := NewJavaExtractor()
	if len(s.ExposedAnnotations) > 0 {
		extractor.ExposedAnnotations = s.ExposedAnnotations
	}
	if len(s.ListenerAnnotations) > 0 {
		extractor.ListenerAnnotations = s.ListenerAnnotations
	}
	p.WithExtractor(extractor)

	files, err := scan(ctx, s.SourceOptions, p, nil)
	if err != nil {
		return nil, err
	}
	return NewResolver().Resolve(files), nil
}

// scan walks opts.Root and parses every supported file with a bounded
// worker pool. Files that fail to read or parse are logged and skipped.
// Results are sorted by path.
func scan(ctx context.Context, opts SourceOptions, p *Parser, accept func(path string, content []byte) bool) ([]*File, error) {
	paths, err := collectFiles(opts, p)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := make(chan string)
	results := make(chan *File, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				content, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("failed to read source file", "path", path, "error", err)
					continue
				}
				if accept != nil && !accept(path, content) {
					slog.Debug("skipping source file", "path", path)
					continue
				}
				file, err := p.ParseFile(path, content)
				if err != nil {
					slog.Warn("failed to parse source file", "path", path, "error", err)
					continue
				}
				results <- file
			}
		}()
	}

	var sendErr error
send:
	for _, path := range paths {
		select {
		case <-ctx.Done():
			sendErr = ctx.Err()
			break send
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	if sendErr != nil {
		return nil, sendErr
	}

	files := make([]*File, 0, len(paths))
	for f := range results {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func collectFiles(opts SourceOptions, p *Parser) ([]string, error) {
	dirGlobs, err := compileGlobs(opts.ExcludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles, "exclude file")
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path != opts.Root && matchesAny(dirGlobs, base) {
				return filepath.SkipDir
			}
			return nil
		}
		if !p.IsSupportedPath(path) {
			return nil
		}
		if !opts.IncludeTests && p.IsTestFile(path) {
			return nil
		}
		if matchesAny(fileGlobs, base) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "walk source tree"), errors.CtxPath, opts.Root)
	}
	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(fmt.Errorf("invalid %s pattern %q: %w", label, p, err), errors.CodeConfiguration, "compile exclusions")
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, value string) bool {
	for _, g := range globs {
		if g.Match(value) {
			return true
		}
	}
	return false
}

var generatedMarker = []byte("DO NOT EDIT")

// isGeneratedGo reports whether content carries the standard generated-code
// header before the package clause.
func isGeneratedGo(content []byte) bool {
	header := content
	if idx := bytes.Index(content, []byte("\npackage ")); idx >= 0 {
		header = content[:idx]
	}
	return bytes.Contains(header, []byte("// Code generated")) && bytes.Contains(header, generatedMarker)
}
