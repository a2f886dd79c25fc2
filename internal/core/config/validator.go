package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"modulith/internal/core/errors"
)

func invalid(format string, args ...any) error {
	return errors.Newf(errors.CodeConfiguration, format, args...)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	switch cfg.Project.Language {
	case "go", "java":
	default:
		return invalid("project.language must be one of: go, java, got %q", cfg.Project.Language)
	}
	if cfg.Project.Language == "java" && cfg.Project.RootPackage == "" && len(cfg.Modules.BasePackages) == 0 && len(cfg.Modules.Declarations) == 0 {
		return invalid("project.root_package is required for java projects without modules.base_packages")
	}
	return nil
}

func validateModules(cfg *Config) error {
	seenBases := make(map[string]bool, len(cfg.Modules.Declarations))
	seenNames := make(map[string]bool, len(cfg.Modules.Declarations))
	for i, decl := range cfg.Modules.Declarations {
		ref := fmt.Sprintf("modules.declarations[%d]", i)
		if decl.BasePackage == "" {
			return invalid("%s.base_package must not be empty", ref)
		}
		if seenBases[decl.BasePackage] {
			return invalid("duplicate module declaration for base package %q", decl.BasePackage)
		}
		seenBases[decl.BasePackage] = true
		if decl.Name != "" {
			if seenNames[decl.Name] {
				return invalid("duplicate module name %q", decl.Name)
			}
			seenNames[decl.Name] = true
		}
		if err := validatePatterns(decl.AllowedDependencies, ref+".allowed_dependencies"); err != nil {
			return err
		}
		for _, exposed := range decl.Exposed {
			for _, internal := range decl.Internal {
				if strings.TrimSpace(exposed) == strings.TrimSpace(internal) {
					return invalid("%s lists %q as both exposed and internal", ref, exposed)
				}
			}
		}
	}
	for i, base := range cfg.Modules.BasePackages {
		if strings.TrimSpace(base) == "" {
			return invalid("modules.base_packages[%d] must not be empty", i)
		}
	}
	return nil
}

func validateVerification(cfg *Config) error {
	if err := validatePatterns(cfg.Verification.ExcludedModules, "verification.excluded_modules"); err != nil {
		return err
	}
	return validatePatterns(cfg.Verification.ExcludedTypes, "verification.excluded_types")
}

func validateDocs(cfg *Config) error {
	for _, format := range cfg.Docs.Formats {
		switch format {
		case "plantuml", "mermaid", "dot", "canvas", "tsv":
		default:
			return invalid("docs.formats: unknown format %q", format)
		}
	}
	switch cfg.Docs.Style {
	case "uml", "c4":
	default:
		return invalid("docs.style must be one of: uml, c4")
	}
	for _, dt := range cfg.Docs.DependencyTypes {
		switch strings.ToUpper(strings.TrimSpace(dt)) {
		case "DEFAULT", "USES_COMPONENT", "EVENT_LISTENER":
		default:
			return invalid("docs.dependency_types: unknown dependency type %q", dt)
		}
	}
	return nil
}

func validateLedger(cfg *Config) error {
	switch cfg.Ledger.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Ledger.Path) == "" {
			return invalid("ledger.path must not be empty for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Ledger.DSN) == "" {
			return invalid("ledger.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return invalid("ledger.driver must be one of: sqlite, postgres, memory")
	}
	if cfg.Ledger.ResubmitRate < 0 {
		return invalid("ledger.resubmit_rate must not be negative")
	}
	if cfg.Ledger.ResubmitMinAge < 0 {
		return invalid("ledger.resubmit_min_age must not be negative")
	}
	return nil
}

func validateExclude(cfg *Config) error {
	if err := validatePatterns(cfg.Exclude.Dirs, "exclude.dirs"); err != nil {
		return err
	}
	return validatePatterns(cfg.Exclude.Files, "exclude.files")
}

func validatePatterns(patterns []string, field string) error {
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			return invalid("%s contains an empty pattern", field)
		}
		if _, err := glob.Compile(trimmed); err != nil {
			return errors.Wrap(err, errors.CodeConfiguration, fmt.Sprintf("%s: invalid pattern %q", field, pattern))
		}
	}
	return nil
}
