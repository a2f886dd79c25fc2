package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"modulith/internal/core/errors"
)

// Load reads path, applies defaults and environment overrides, and
// validates the result. A missing file is a configuration error; use
// LoadOrDefault to fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeConfiguration
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "decode config"), errors.CtxPath, path)
	}
	cfg.path = path

	return finish(&cfg)
}

// LoadOrDefault behaves like Load but returns the defaults when path does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.IsCode(err, errors.CodeNotFound) {
		return finish(&Config{})
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)

	if err := validateVersion(cfg); err != nil {
		return nil, err
	}
	if err := validateProject(cfg); err != nil {
		return nil, err
	}
	if err := validateModules(cfg); err != nil {
		return nil, err
	}
	if err := validateVerification(cfg); err != nil {
		return nil, err
	}
	if err := validateDocs(cfg); err != nil {
		return nil, err
	}
	if err := validateLedger(cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if strings.TrimSpace(cfg.Project.Language) == "" {
		cfg.Project.Language = "go"
	}

	if cfg.Verification.MaxCycles <= 0 {
		cfg.Verification.MaxCycles = 100
	}

	if strings.TrimSpace(cfg.Docs.OutputDir) == "" {
		cfg.Docs.OutputDir = "docs/modulith"
	}
	if len(cfg.Docs.Formats) == 0 {
		cfg.Docs.Formats = []string{"plantuml", "canvas"}
	}
	if strings.TrimSpace(cfg.Docs.Style) == "" {
		cfg.Docs.Style = "uml"
	}

	if strings.TrimSpace(cfg.Ledger.Driver) == "" {
		cfg.Ledger.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Ledger.Path) == "" {
		cfg.Ledger.Path = ".modulith/events.db"
	}
	if cfg.Ledger.BusyTimeout <= 0 {
		cfg.Ledger.BusyTimeout = 5 * time.Second
	}
	if cfg.Ledger.ResubmitRate == 0 {
		cfg.Ledger.ResubmitRate = 10
	}
	if cfg.Ledger.ResubmitBurst <= 0 {
		cfg.Ledger.ResubmitBurst = 1
	}
	if cfg.Ledger.ResubmitInterval <= 0 {
		cfg.Ledger.ResubmitInterval = time.Minute
	}
	// In-flight publications younger than one interval are left alone.
	if cfg.Ledger.ResubmitMinAge == 0 {
		cfg.Ledger.ResubmitMinAge = cfg.Ledger.ResubmitInterval
	}
	if cfg.Ledger.Retention <= 0 {
		cfg.Ledger.Retention = 7 * 24 * time.Hour
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "modulith"
	}
}

func normalize(cfg *Config) {
	cfg.Project.Language = strings.ToLower(strings.TrimSpace(cfg.Project.Language))
	cfg.Project.RootPackage = strings.TrimSpace(cfg.Project.RootPackage)
	cfg.Ledger.Driver = strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver))
	cfg.Docs.Style = strings.ToLower(strings.TrimSpace(cfg.Docs.Style))
	for i, format := range cfg.Docs.Formats {
		cfg.Docs.Formats[i] = strings.ToLower(strings.TrimSpace(format))
	}
	for i := range cfg.Modules.Declarations {
		decl := &cfg.Modules.Declarations[i]
		decl.BasePackage = strings.TrimSpace(decl.BasePackage)
		decl.Name = strings.TrimSpace(decl.Name)
		decl.DisplayName = strings.TrimSpace(decl.DisplayName)
	}
}

// ResolvePath resolves p against the directory of the loaded config file.
func (c *Config) ResolvePath(p string) string {
	base := "."
	if c.path != "" {
		base = filepath.Dir(c.path)
	}
	return ResolveRelative(base, p)
}
