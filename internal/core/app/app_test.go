package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modulith/internal/core/config"
	"modulith/internal/data/ledger"
	"modulith/internal/data/moments"
	"modulith/internal/engine/typegraph"
	"modulith/internal/engine/verify"
)

const shop = "com.acme.shop"

func shopSource() typegraph.StaticSource {
	return typegraph.StaticSource{
		typegraph.NewType(shop+".orders", "OrderService", typegraph.KindStruct).
			Refer(shop+".inventory.Inventory", typegraph.RefField, "inventory").
			Refer(shop+".inventory.internal.StockLedger", typegraph.RefField, "ledger"),
		typegraph.NewType(shop+".orders", "OrderCompleted", typegraph.KindStruct),
		typegraph.NewType(shop+".inventory", "Inventory", typegraph.KindStruct),
		typegraph.NewType(shop+".inventory.internal", "StockLedger", typegraph.KindStruct),
		typegraph.NewType(shop+".billing", "Invoicing", typegraph.KindStruct).
			Refer(shop+".orders.OrderCompleted", typegraph.RefEventListener, "on", "OrderCompleted"),
	}
}

func newTestApp(t *testing.T, extra string, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFile)
	content := `
[project]
language = "java"
root_package = "com.acme.shop"
` + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	a, err := New(cfg, dir, append([]Option{WithSource(shopSource())}, opts...)...)
	require.NoError(t, err)
	return a
}

func TestAnalyze(t *testing.T) {
	a := newTestApp(t, "")
	assert.Nil(t, a.Last())

	result, err := a.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Types)
	require.Len(t, result.Model.Modules(), 3)
	require.Equal(t, 1, result.Violations.Len())
	v := result.Violations[0]
	assert.Equal(t, verify.KindInternalAccess, v.Kind)
	assert.Contains(t, v.Message, "StockLedger")
	assert.Same(t, result, a.Last())
}

func TestAnalyze_Declarations(t *testing.T) {
	a := newTestApp(t, `
[[modules.declarations]]
base_package = "com.acme.shop.inventory"
name = "stock"
display_name = "Stock Keeping"
exposed = ["com.acme.shop.inventory.internal.StockLedger"]

[[modules.declarations]]
base_package = "com.acme.shop.billing"
allowed_dependencies = []
`)

	mc := a.ModelConfig()
	assert.Equal(t, "stock", mc.Names[shop+".inventory"])
	assert.Equal(t, "Stock Keeping", mc.DisplayNames["stock"])
	assert.Equal(t, []string{}, mc.ExplicitAllowedDependencies["billing"])
	assert.True(t, mc.ExplicitExposures[shop+".inventory.internal.StockLedger"])

	result, err := a.Analyze(context.Background())
	require.NoError(t, err)

	stock, ok := result.Model.ModuleByName("stock")
	require.True(t, ok)
	assert.Equal(t, "Stock Keeping", stock.DisplayName)

	require.Equal(t, 1, result.Violations.Len())
	assert.Equal(t, verify.KindDisallowedDependency, result.Violations[0].Kind)
}

func TestAnalyze_Exclusions(t *testing.T) {
	a := newTestApp(t, `
[verification]
excluded_modules = ["ord*"]
`)
	result, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Violations.Len())
}

func TestAnalyze_SourceFailure(t *testing.T) {
	a := newTestApp(t, "", WithSource(typegraph.StaticSource{
		typegraph.NewType(shop+".orders", "Dup", typegraph.KindStruct),
		typegraph.NewType(shop+".orders", "Dup", typegraph.KindStruct),
	}))
	_, err := a.Analyze(context.Background())
	require.Error(t, err)
	assert.Nil(t, a.Last())
}

func TestWriteDocs(t *testing.T) {
	a := newTestApp(t, `
[docs]
output_dir = "out"
formats = ["plantuml", "tsv"]
`)
	_, err := a.WriteDocs(context.Background(), nil)
	require.Error(t, err)

	result, err := a.Analyze(context.Background())
	require.NoError(t, err)
	files, err := a.WriteDocs(context.Background(), result)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		assert.Equal(t, a.Paths.DocsDir, filepath.Dir(f))
		assert.FileExists(t, f)
	}
	assert.FileExists(t, filepath.Join(a.Paths.DocsDir, "components.puml"))
	assert.FileExists(t, filepath.Join(a.Paths.DocsDir, "dependencies.tsv"))
}

func TestDispatcher_AnalysisCompletedWritesDocs(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, `
[docs]
output_dir = "out"
formats = ["mermaid"]

[ledger]
driver = "memory"
`)
	l, err := a.OpenLedger(ctx)
	require.NoError(t, err)
	defer l.Close()

	d, err := a.Dispatcher(l)
	require.NoError(t, err)

	// No prior analysis: the listener analyzes on its own.
	require.NoError(t, d.Publish(ctx, AnalysisCompleted{Modules: 3}))
	assert.FileExists(t, filepath.Join(a.Paths.DocsDir, "components.mmd"))
	assert.NotNil(t, a.Last())

	n, err := l.CountIncomplete(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatcher_FailedDocsStayIncompleteAndResubmit(t *testing.T) {
	ctx := context.Background()
	clock := time.Now()
	a := newTestApp(t, `
[docs]
output_dir = "blocked/docs"
formats = ["dot"]

[ledger]
driver = "memory"
resubmit_rate = 1000
resubmit_burst = 5
`, WithClock(func() time.Time { return clock }))
	// A file where the output directory should be makes the write fail.
	blocked := filepath.Join(a.Paths.ProjectRoot, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	l, err := a.OpenLedger(ctx)
	require.NoError(t, err)
	d, err := a.Dispatcher(l)
	require.NoError(t, err)

	result, err := a.Analyze(ctx)
	require.NoError(t, err)
	require.Error(t, d.Publish(ctx, NewAnalysisCompleted(result)))

	incomplete, err := l.FindIncomplete(ctx)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, ListenerDocsWriter, incomplete[0].ListenerID)

	require.NoError(t, os.Remove(blocked))

	// Younger than one resubmit interval: still considered in flight.
	res, err := a.NewResubmitter(d).ResubmitIncomplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Attempted)

	clock = time.Now().Add(2 * time.Minute)
	res, err = a.NewResubmitter(d).ResubmitIncomplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.FileExists(t, filepath.Join(a.Paths.DocsDir, "components.dot"))
}

func TestCleanupLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	a := newTestApp(t, `
[ledger]
driver = "memory"
retention = "24h"
`, WithClock(func() time.Time { return now }))

	published := now.Add(-72 * time.Hour)
	l := ledger.New(ledger.NewMemoryStore(), ledger.WithClock(func() time.Time { return published }))
	old, err := l.MarkPublished(ctx, AnalysisCompleted{}, ListenerDocsWriter)
	require.NoError(t, err)
	require.NoError(t, l.MarkCompleted(ctx, old.ID))

	d, err := a.Dispatcher(l)
	require.NoError(t, err)
	// The cleanup listener itself is recorded at the old timestamp too, but
	// it completes after the delete ran.
	require.NoError(t, d.Publish(ctx, moments.DayHasPassed{Date: now.Add(-24 * time.Hour)}))

	_, err = l.FindByID(ctx, old.ID)
	assert.Error(t, err)
}

func TestHealthService(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "")
	l := ledger.New(ledger.NewMemoryStore())
	h := NewHealthService(a, l)

	status := h.Check(ctx)
	assert.Equal(t, "degraded", status.Status)
	assert.NoError(t, h.Probe(ctx))

	_, err := a.Analyze(ctx)
	require.NoError(t, err)
	status = h.Check(ctx)
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok (3 modules, 1 violations)", status.Components["model"])
	assert.Equal(t, "ok (0 incomplete)", status.Components["ledger"])
}

func TestWatch_ReanalyzesOnChange(t *testing.T) {
	a := newTestApp(t, `
[watch]
debounce = "50ms"
`)

	var mu sync.Mutex
	runs := 0
	results := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(r *Result, err error) {
			mu.Lock()
			runs++
			mu.Unlock()
			results <- struct{}{}
		})
	}()

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("initial analysis did not run")
	}

	// Give the watcher time to register the project directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(a.Paths.ProjectRoot, "Order.java"), []byte("class Order {}"), 0o644))

	select {
	case <-results:
	case <-time.After(3 * time.Second):
		t.Fatal("change did not trigger a new analysis")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, runs, 2)
}
