package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"modulith/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[project]
language = "java"
root_package = "com.acme.shop"

[exclude]
dirs = ["target"]
files = ["*Test.java"]

[modules]
verify_root = true

[[modules.declarations]]
base_package = "com.acme.shop.orders"
display_name = "Orders"
allowed_dependencies = ["catalog"]
exposed = ["com.acme.shop.orders.internal.OrderId"]

[[modules.declarations]]
base_package = "com.acme.shop.catalog"
allowed_dependencies = []

[verification]
excluded_modules = ["legacy*"]
max_cycles = 10

[docs]
output_dir = "build/docs"
formats = ["PlantUML", "mermaid"]
style = "c4"

[ledger]
driver = "memory"
resubmit_interval = "30s"

[watch]
debounce = "1s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("expected path %s, got %s", path, cfg.Path())
	}
	if cfg.Project.Language != "java" || cfg.Project.RootPackage != "com.acme.shop" {
		t.Errorf("unexpected project: %+v", cfg.Project)
	}
	if !cfg.Modules.VerifyRoot {
		t.Error("expected verify_root")
	}
	if len(cfg.Modules.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(cfg.Modules.Declarations))
	}
	orders := cfg.Modules.Declarations[0]
	if orders.DisplayName != "Orders" || len(orders.AllowedDependencies) != 1 {
		t.Errorf("unexpected orders declaration: %+v", orders)
	}
	catalog := cfg.Modules.Declarations[1]
	if catalog.AllowedDependencies == nil || len(catalog.AllowedDependencies) != 0 {
		t.Errorf("expected an empty, non-nil allow list, got %#v", catalog.AllowedDependencies)
	}
	if cfg.Verification.MaxCycles != 10 {
		t.Errorf("expected max_cycles 10, got %d", cfg.Verification.MaxCycles)
	}
	if got := strings.Join(cfg.Docs.Formats, ","); got != "plantuml,mermaid" {
		t.Errorf("unexpected formats %s", got)
	}
	if cfg.Ledger.ResubmitInterval != 30*time.Second {
		t.Errorf("expected resubmit interval 30s, got %v", cfg.Ledger.ResubmitInterval)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Ledger.ResubmitMinAge != 30*time.Second {
		t.Errorf("expected resubmit min age to follow the interval, got %v", cfg.Ledger.ResubmitMinAge)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `[project]
root = "."`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Project.Language != "go" {
		t.Errorf("expected default language go, got %s", cfg.Project.Language)
	}
	if cfg.Ledger.Driver != "sqlite" || cfg.Ledger.Path != ".modulith/events.db" {
		t.Errorf("unexpected ledger defaults: %+v", cfg.Ledger)
	}
	if !cfg.Ledger.InitializeSchema() {
		t.Error("schema initialization should default to true")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Verification.MaxCycles != 100 {
		t.Errorf("expected default max cycles 100, got %d", cfg.Verification.MaxCycles)
	}
	if cfg.Docs.OutputDir != "docs/modulith" {
		t.Errorf("expected default docs dir, got %s", cfg.Docs.OutputDir)
	}
}

func TestLoadError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}

	_, err = Load(writeConfig(t, "bad = toml = format"))
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error for malformed TOML, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Project.Language != "go" || cfg.Path() != "" {
		t.Errorf("unexpected default config: %+v", cfg.Project)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"language", `[project]
language = "python"`, "project.language"},
		{"java without root", `[project]
language = "java"`, "root_package"},
		{"duplicate base", `[[modules.declarations]]
base_package = "a"
[[modules.declarations]]
base_package = "a"`, "duplicate module declaration"},
		{"duplicate name", `[[modules.declarations]]
base_package = "a"
name = "x"
[[modules.declarations]]
base_package = "b"
name = "x"`, "duplicate module name"},
		{"exposed and internal", `[[modules.declarations]]
base_package = "a"
exposed = ["a.T"]
internal = ["a.T"]`, "both exposed and internal"},
		{"bad glob", `[verification]
excluded_types = ["a.[b"]`, "invalid pattern"},
		{"format", `[docs]
formats = ["pdf"]`, "unknown format"},
		{"style", `[docs]
style = "sequence"`, "docs.style"},
		{"dependency type", `[docs]
dependency_types = ["CALLS"]`, "unknown dependency type"},
		{"postgres dsn", `[ledger]
driver = "postgres"`, "ledger.dsn"},
		{"driver", `[ledger]
driver = "mysql"`, "ledger.driver"},
		{"version", `version = 3`, "unsupported config version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODULITH_LEDGER_DRIVER", "postgres")
	t.Setenv("MODULITH_LEDGER_DSN", "postgres://localhost/events")
	t.Setenv("MODULITH_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("MODULITH_WATCH_DEBOUNCE", "2s")
	t.Setenv("MODULITH_VERIFICATION_MAX_CYCLES", "not-a-number")

	cfg, err := Load(writeConfig(t, `[verification]
max_cycles = 7`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ledger.Driver != "postgres" || cfg.Ledger.DSN != "postgres://localhost/events" {
		t.Errorf("ledger overrides not applied: %+v", cfg.Ledger)
	}
	if cfg.Observability.OTLPEndpoint != "localhost:4317" {
		t.Errorf("expected otlp endpoint override, got %q", cfg.Observability.OTLPEndpoint)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Verification.MaxCycles != 7 {
		t.Errorf("unparsable override should be ignored, got %d", cfg.Verification.MaxCycles)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("MODULITH_LEDGER_PATH=from-dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the variable set by godotenv is removed after the test.
	t.Setenv("MODULITH_LEDGER_PATH", "")
	os.Unsetenv("MODULITH_LEDGER_PATH")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("MODULITH_LEDGER_PATH"); got != "from-dotenv.db" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestResolvePaths(t *testing.T) {
	path := writeConfig(t, `[project]
root = "src"

[docs]
output_dir = "out/docs"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	resolved, err := ResolvePaths(cfg, "/elsewhere")
	if err != nil {
		t.Fatalf("ResolvePaths failed: %v", err)
	}
	dir := filepath.Dir(path)
	if resolved.ProjectRoot != filepath.Join(dir, "src") {
		t.Errorf("unexpected project root %s", resolved.ProjectRoot)
	}
	if resolved.DocsDir != filepath.Join(dir, "src", "out", "docs") {
		t.Errorf("unexpected docs dir %s", resolved.DocsDir)
	}
	if resolved.LedgerPath != filepath.Join(dir, "src", ".modulith", "events.db") {
		t.Errorf("unexpected ledger path %s", resolved.LedgerPath)
	}
}

func TestResolveRelative(t *testing.T) {
	if got := ResolveRelative("/base", ""); got != "/base" {
		t.Errorf("empty value: got %s", got)
	}
	if got := ResolveRelative("/base", "/abs/x"); got != "/abs/x" {
		t.Errorf("absolute value: got %s", got)
	}
	if got := ResolveRelative("/base", "rel/../x"); got != "/base/x" {
		t.Errorf("relative value: got %s", got)
	}
}

func TestWatcherReloads(t *testing.T) {
	path := writeConfig(t, `[watch]
debounce = "1s"`)

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err := w.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[watch]\ndebounce = \"3s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Watch.Debounce != 3*time.Second {
			t.Errorf("expected reloaded debounce 3s, got %v", cfg.Watch.Debounce)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
