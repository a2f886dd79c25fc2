package app

import (
	"context"
	"log/slog"

	"modulith/internal/core/watcher"
)

// Watch analyzes once and then again after every debounced batch of source
// changes, until ctx is cancelled. Each run rebuilds the model from scratch.
// onResult receives every outcome; a failed run does not stop watching.
func (a *App) Watch(ctx context.Context, onResult func(*Result, error)) error {
	result, err := a.Analyze(ctx)
	onResult(result, err)

	opts := watcher.SourceOptions(a.Config.Project.Language)
	opts.Debounce = a.Config.Watch.Debounce
	opts.ExcludeDirs = a.Config.Exclude.Dirs
	opts.ExcludeFiles = a.Config.Exclude.Files
	opts.IncludeTests = a.Config.Project.IncludeTests

	// One pending batch is enough: the next run sees every change anyway.
	changes := make(chan []string, 1)
	w, err := watcher.New(opts, func(paths []string) {
		select {
		case changes <- paths:
		default:
		}
	})
	if err != nil {
		return err
	}
	if err := w.Watch(ctx, a.Paths.ProjectRoot); err != nil {
		w.Close()
		return err
	}
	slog.Info("watching for changes", "root", a.Paths.ProjectRoot)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case paths := <-changes:
			slog.Debug("sources changed", "files", len(paths))
			result, err := a.Analyze(ctx)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			onResult(result, err)
		}
	}
}
