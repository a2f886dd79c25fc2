// Package app wires configuration, source loading, the module model, the
// verifier, documentation output and the publication ledger together.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modulith/internal/core/config"
	"modulith/internal/core/errors"
	"modulith/internal/engine/model"
	"modulith/internal/engine/parser"
	"modulith/internal/engine/typegraph"
	"modulith/internal/engine/verify"
	"modulith/internal/shared/observability"
	"modulith/internal/shared/util"
)

// Result is one complete analysis run. The model is never updated in place;
// every run rebuilds it from source.
type Result struct {
	Model      *model.Model
	Violations verify.Violations
	Types      int
	Duration   time.Duration
	AnalyzedAt time.Time
}

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	source   typegraph.Source
	verifier *verify.Verifier
	clock    func() time.Time

	mu   sync.RWMutex
	last *Result
}

type Option func(*App)

// WithSource replaces the source derived from the project configuration.
func WithSource(src typegraph.Source) Option {
	return func(a *App) { a.source = src }
}

func WithClock(clock func() time.Time) Option {
	return func(a *App) { a.clock = clock }
}

func New(cfg *config.Config, cwd string, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfiguration, "config is required")
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "resolve paths")
	}
	a := &App{
		Config: cfg,
		Paths:  paths,
		verifier: verify.New(verify.Options{
			VerifyRoot: cfg.Modules.VerifyRoot,
			MaxCycles:  cfg.Verification.MaxCycles,
		}),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.source == nil {
		a.source = a.newSource()
	}
	return a, nil
}

func (a *App) newSource() typegraph.Source {
	opts := parser.SourceOptions{
		Root:         a.Paths.ProjectRoot,
		IncludeTests: a.Config.Project.IncludeTests,
		ExcludeDirs:  a.Config.Exclude.Dirs,
		ExcludeFiles: a.Config.Exclude.Files,
	}
	if a.Config.Project.Language == parser.LanguageJava {
		return parser.NewJavaSource(opts)
	}
	src := parser.NewGoSource(opts)
	src.ModulePath = a.Config.Project.ModulePath
	return src
}

// ModelConfig translates module declarations into model settings.
// Declarations are keyed by module name, derived from the base package
// when no explicit name is given.
func (a *App) ModelConfig() model.Config {
	cfg := a.Config
	mc := model.Config{
		RootPackage:                 cfg.Project.RootPackage,
		BasePackages:                append([]string(nil), cfg.Modules.BasePackages...),
		ExplicitExposures:           make(map[string]bool),
		ExplicitAllowedDependencies: make(map[string][]string),
		DisplayNames:                make(map[string]string),
		Names:                       make(map[string]string),
	}
	for _, decl := range cfg.Modules.Declarations {
		name := decl.Name
		if name == "" {
			segs := typegraph.PackageSegments(decl.BasePackage)
			name = segs[len(segs)-1]
		} else {
			mc.Names[decl.BasePackage] = name
		}
		if decl.DisplayName != "" {
			mc.DisplayNames[name] = decl.DisplayName
		}
		if decl.AllowedDependencies != nil {
			mc.ExplicitAllowedDependencies[name] = append([]string{}, decl.AllowedDependencies...)
		}
		for _, fqn := range decl.Exposed {
			mc.ExplicitExposures[fqn] = true
		}
		for _, fqn := range decl.Internal {
			mc.ExplicitExposures[fqn] = false
		}
	}
	return mc
}

// Exclusion combines the configured module and type exclusions.
func (a *App) Exclusion() verify.Exclusion {
	v := a.Config.Verification
	var exclude verify.Exclusion
	if len(v.ExcludedModules) > 0 {
		exclude = verify.WithoutModules(v.ExcludedModules...)
	}
	if len(v.ExcludedTypes) > 0 {
		types := verify.WithoutTypes(v.ExcludedTypes...)
		if exclude == nil {
			exclude = types
		} else {
			exclude = exclude.Or(types)
		}
	}
	return exclude
}

// Analyze loads the sources, builds the module model and verifies it.
// Violations are part of the result, not an error.
func (a *App) Analyze(ctx context.Context) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "app.Analyze",
		trace.WithAttributes(attribute.String("language", a.Config.Project.Language)))
	defer span.End()

	started := a.clock()
	result, err := a.analyze(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	result.AnalyzedAt = a.clock()
	result.Duration = result.AnalyzedAt.Sub(started)

	span.SetAttributes(
		attribute.Int("modules", len(result.Model.Modules())),
		attribute.Int("violations", result.Violations.Len()),
	)
	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	slog.Info("analysis finished",
		"types", result.Types,
		"modules", len(result.Model.Modules()),
		"violations", result.Violations.Len(),
		"duration", result.Duration,
		"heap_mb", util.GetHeapAllocMB(),
	)
	return result, nil
}

func (a *App) analyze(ctx context.Context) (*Result, error) {
	parseStart := time.Now()
	graph, err := typegraph.Load(ctx, a.source)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "load_sources")
	}
	observability.ParsingDuration.WithLabelValues(a.Config.Project.Language).Observe(time.Since(parseStart).Seconds())
	observability.TypesTotal.Set(float64(graph.Len()))

	m, err := model.Build(graph, a.ModelConfig())
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "build_model")
	}
	a.warnUnmatchedDeclarations(m)
	observability.ModulesTotal.Set(float64(len(m.Modules())))
	observability.DependenciesTotal.Set(float64(len(m.Dependencies())))

	verifyStart := time.Now()
	violations := a.verifier.Verify(m, a.Exclusion())
	observability.VerificationDuration.Observe(time.Since(verifyStart).Seconds())
	counts := violations.CountByKind()
	for _, kind := range verify.Kinds() {
		observability.ViolationsTotal.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}

	return &Result{Model: m, Violations: violations, Types: graph.Len()}, nil
}

func (a *App) warnUnmatchedDeclarations(m *model.Model) {
	bases := make(map[string]bool, len(m.Modules()))
	for _, mod := range m.Modules() {
		bases[mod.BasePackage] = true
	}
	for _, decl := range a.Config.Modules.Declarations {
		if !bases[decl.BasePackage] {
			slog.Warn("module declaration matches no module", "base_package", decl.BasePackage)
		}
	}
}

// Last returns the most recent successful analysis, or nil.
func (a *App) Last() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}
