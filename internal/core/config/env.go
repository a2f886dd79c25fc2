package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: MODULITH_[SECTION]_[KEY] (e.g., MODULITH_LEDGER_DSN).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Root, "MODULITH_PROJECT_ROOT")
	setEnvString(&cfg.Project.Language, "MODULITH_PROJECT_LANGUAGE")

	// Ledger
	setEnvString(&cfg.Ledger.Driver, "MODULITH_LEDGER_DRIVER")
	setEnvString(&cfg.Ledger.DSN, "MODULITH_LEDGER_DSN")
	setEnvString(&cfg.Ledger.Path, "MODULITH_LEDGER_PATH")
	setEnvDuration(&cfg.Ledger.BusyTimeout, "MODULITH_LEDGER_BUSY_TIMEOUT")
	setEnvFloat64(&cfg.Ledger.ResubmitRate, "MODULITH_LEDGER_RESUBMIT_RATE")
	setEnvDuration(&cfg.Ledger.ResubmitInterval, "MODULITH_LEDGER_RESUBMIT_INTERVAL")

	// Verification
	setEnvInt(&cfg.Verification.MaxCycles, "MODULITH_VERIFICATION_MAX_CYCLES")
	setEnvBool(&cfg.Modules.VerifyRoot, "MODULITH_MODULES_VERIFY_ROOT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "MODULITH_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "MODULITH_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "MODULITH_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "MODULITH_OTLP_INSECURE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
