package app

import (
	"context"
	"log/slog"
	"strings"

	"modulith/internal/core/errors"
	"modulith/internal/engine/model"
	"modulith/internal/output"
	"modulith/internal/shared/observability"
)

// DocumenterOptions maps the [docs] section onto renderer options.
func (a *App) DocumenterOptions() output.Options {
	opts := output.DefaultOptions()
	opts.OutputFolder = a.Paths.DocsDir
	opts.Exclude = a.Exclusion()
	if a.Config.Docs.Style == string(output.StyleC4) {
		opts.Style = output.StyleC4
	}
	for _, dt := range a.Config.Docs.DependencyTypes {
		opts.DependencyTypes = append(opts.DependencyTypes, model.DependencyType(strings.ToUpper(strings.TrimSpace(dt))))
	}
	return opts
}

// WriteDocs renders every configured format for result and returns the
// written file paths.
func (a *App) WriteDocs(ctx context.Context, result *Result) ([]string, error) {
	if result == nil || result.Model == nil {
		return nil, errors.New(errors.CodeValidationError, "no analysis result to document")
	}
	_, span := observability.Tracer().Start(ctx, "app.WriteDocs")
	defer span.End()

	doc := output.NewDocumenter(result.Model, a.DocumenterOptions())
	files, err := doc.WriteFormats(a.Config.Docs.Formats)
	if err != nil {
		span.RecordError(err)
		return files, errors.AddContext(err, errors.CtxPath, a.Paths.DocsDir)
	}
	slog.Info("documentation written", "dir", a.Paths.DocsDir, "files", len(files))
	return files, nil
}
