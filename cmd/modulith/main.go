package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modulith/internal/core/app"
	"modulith/internal/core/config"
	"modulith/internal/shared/observability"
)

const VERSION = "0.4.0"

// errViolations makes the process exit with status 1 without logging an
// additional error line.
var errViolations = errors.New("module violations found")

type cli struct {
	configPath string
	envFile    string
	verbose    bool
	logFormat  string

	cfg      *config.Config
	shutdown func(context.Context) error
	out      io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, errViolations) {
		slog.Error("command failed", "error", err)
	}
	os.Exit(1)
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:   "modulith",
		Short: "Verify and document the module structure of an application",
		Long: `modulith groups the types of a Go or Java code base into application
modules, verifies the boundaries between them (internal types, allowed
dependencies, cycles) and renders module documentation.

It also manages the event publication ledger used to redeliver events to
listeners that did not complete.`,
		Version:           VERSION,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.shutdown != nil {
				return c.shutdown(cmd.Context())
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetVersionTemplate("modulith v{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", config.DefaultFile, "Path to config file")
	flags.StringVar(&c.envFile, "env-file", ".env", "Environment file loaded before the config")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&c.logFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(
		c.verifyCmd(),
		c.docsCmd(),
		c.modulesCmd(),
		c.watchCmd(),
		c.ledgerCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := c.setupLogging(cmd.ErrOrStderr()); err != nil {
		return err
	}
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}

	var err error
	if cmd.Flags().Changed("config") {
		c.cfg, err = config.Load(c.configPath)
	} else {
		c.cfg, err = config.LoadOrDefault(c.configPath)
	}
	if err != nil {
		return err
	}

	obs := c.cfg.Observability
	c.shutdown, err = observability.InitTracing(cmd.Context(), observability.TracingConfig{
		Endpoint:    obs.OTLPEndpoint,
		ServiceName: obs.ServiceName,
		Insecure:    obs.OTLPInsecure,
	})
	return err
}

func (c *cli) setupLogging(w io.Writer) error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch c.logFormat {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", c.logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func (c *cli) newApp() (*app.App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return app.New(c.cfg, cwd)
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.out, "modulith v%s\n", VERSION)
			return err
		},
	}
}
