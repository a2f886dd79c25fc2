package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"modulith/internal/engine/verify"
	"modulith/internal/output"
)

type violationJSON struct {
	Kind    verify.Kind `json:"kind"`
	Message string      `json:"message"`
	Modules []string    `json:"modules,omitempty"`
	Types   []string    `json:"types,omitempty"`
}

func (c *cli) verifyCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify module boundaries and exit non-zero on violations",
		Long: `Build the module model and check it for access to internal types,
dependencies outside a module's allow list, cycles between modules and
ambiguous module names.

Examples:
  modulith verify
  modulith verify --format json
  modulith verify --format sarif > modulith.sarif
  modulith verify -c build/modulith.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "text", "json", "sarif":
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			a, err := c.newApp()
			if err != nil {
				return err
			}
			result, err := a.Analyze(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "json":
				out := make([]violationJSON, 0, result.Violations.Len())
				for _, v := range result.Violations {
					out = append(out, violationJSON{Kind: v.Kind, Message: v.Message, Modules: v.Modules, Types: v.Types})
				}
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			case "sarif":
				data, err := output.GenerateSARIF(result.Model, result.Violations, a.Paths.ProjectRoot, VERSION)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(c.out, "%s\n", data); err != nil {
					return err
				}
			default:
				renderViolations(c.out, result)
			}

			if result.Violations.Len() > 0 {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or sarif")
	return cmd
}

func (c *cli) docsCmd() *cobra.Command {
	var (
		formats []string
		output  string
		style   string
	)
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Render module diagrams and canvases",
		Long: `Render the module model as PlantUML, Mermaid or DOT diagrams, per-module
Markdown canvases and a dependency TSV. Flags override the [docs] section.

Examples:
  modulith docs
  modulith docs --formats plantuml,canvas --style c4
  modulith docs --output build/docs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(formats) > 0 {
				c.cfg.Docs.Formats = formats
			}
			if style != "" {
				c.cfg.Docs.Style = style
			}
			if output != "" {
				c.cfg.Docs.OutputDir = output
			}

			a, err := c.newApp()
			if err != nil {
				return err
			}
			result, err := a.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			files, err := a.WriteDocs(cmd.Context(), result)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, titleStyle.Render("Documentation written"))
			for _, f := range files {
				fmt.Fprintf(c.out, "  %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&formats, "formats", nil, "Formats: plantuml, mermaid, dot, canvas, tsv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory")
	cmd.Flags().StringVar(&style, "style", "", "Diagram style: uml or c4")
	return cmd
}

func (c *cli) modulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the detected application modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp()
			if err != nil {
				return err
			}
			result, err := a.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			renderModules(c.out, result.Model)
			return nil
		},
	}
}
