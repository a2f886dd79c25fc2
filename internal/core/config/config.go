package config

import (
	"time"
)

const DefaultFile = "modulith.toml"

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Exclude       Exclude       `toml:"exclude"`
	Modules       Modules       `toml:"modules"`
	Verification  Verification  `toml:"verification"`
	Docs          Docs          `toml:"docs"`
	Ledger        Ledger        `toml:"ledger"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`

	// path is the file the configuration was loaded from; relative paths
	// resolve against its directory.
	path string
}

type Project struct {
	Root        string `toml:"root"`
	Language    string `toml:"language"`
	RootPackage string `toml:"root_package"`
	// ModulePath overrides the import path read from go.mod.
	ModulePath   string `toml:"module_path"`
	IncludeTests bool   `toml:"include_tests"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Modules struct {
	BasePackages []string            `toml:"base_packages"`
	VerifyRoot   bool                `toml:"verify_root"`
	Declarations []ModuleDeclaration `toml:"declarations"`
}

// ModuleDeclaration attaches explicit metadata to the module rooted at
// BasePackage.
type ModuleDeclaration struct {
	BasePackage string `toml:"base_package"`
	Name        string `toml:"name"`
	DisplayName string `toml:"display_name"`
	// AllowedDependencies is nil when the key is absent. An empty list
	// forbids every dependency.
	AllowedDependencies []string `toml:"allowed_dependencies"`
	Exposed             []string `toml:"exposed"`
	Internal            []string `toml:"internal"`
}

type Verification struct {
	ExcludedModules []string `toml:"excluded_modules"`
	ExcludedTypes   []string `toml:"excluded_types"`
	MaxCycles       int      `toml:"max_cycles"`
}

type Docs struct {
	OutputDir string   `toml:"output_dir"`
	Formats   []string `toml:"formats"`
	Style     string   `toml:"style"`
	// DependencyTypes limits rendered edges; empty renders all.
	DependencyTypes []string `toml:"dependency_types"`
}

type Ledger struct {
	Driver               string        `toml:"driver"`
	DSN                  string        `toml:"dsn"`
	Path                 string        `toml:"path"`
	BusyTimeout          time.Duration `toml:"busy_timeout"`
	SchemaInitialization *bool         `toml:"schema_initialization"`
	ResubmitRate         float64       `toml:"resubmit_rate"`
	ResubmitBurst        int           `toml:"resubmit_burst"`
	ResubmitInterval     time.Duration `toml:"resubmit_interval"`
	ResubmitMinAge       time.Duration `toml:"resubmit_min_age"`
	Retention            time.Duration `toml:"retention"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	OTLPInsecure   bool   `toml:"otlp_insecure"`
	ServiceName    string `toml:"service_name"`
}

// Path returns the file the configuration was loaded from, or "" for
// Default().
func (c *Config) Path() string {
	return c.path
}

// InitializeSchema reports whether the ledger schema is created on open.
func (l Ledger) InitializeSchema() bool {
	return l.SchemaInitialization == nil || *l.SchemaInitialization
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
