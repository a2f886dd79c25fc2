package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"modulith/internal/core/app"
	"modulith/internal/data/ledger"
	"modulith/internal/engine/model"
	"modulith/internal/engine/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	violationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	detailStyle = lipgloss.NewStyle().MarginLeft(4)
)

func renderViolations(w io.Writer, result *app.Result) {
	fmt.Fprintln(w, titleStyle.Render("Module verification"))
	fmt.Fprintln(w, statusStyle.Render(fmt.Sprintf("%d types, %d modules, analyzed in %s",
		result.Types, len(result.Model.Modules()), result.Duration.Round(time.Millisecond))))

	if result.Violations.Len() == 0 {
		fmt.Fprintln(w, successStyle.Render("No violations found."))
		return
	}

	counts := result.Violations.CountByKind()
	for _, kind := range verify.Kinds() {
		group := result.Violations.Filter(kind)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", kindStyle.Render(fmt.Sprintf("%s (%d)", kind, counts[kind])))
		for _, v := range group {
			lines := strings.Split(v.Message, "\n")
			fmt.Fprintf(w, "  %s %s\n", violationStyle.Render("✗"), lines[0])
			for _, line := range lines[1:] {
				if strings.TrimSpace(line) != "" {
					fmt.Fprintln(w, detailStyle.Render(strings.TrimSpace(line)))
				}
			}
		}
	}
	fmt.Fprintf(w, "\n%s\n", violationStyle.Render(fmt.Sprintf("%d violation(s) found.", result.Violations.Len())))
}

func renderModules(w io.Writer, m *model.Model) {
	fmt.Fprintln(w, titleStyle.Render("Application modules"))
	for _, mod := range m.Modules() {
		name := mod.Name
		if mod.DisplayName != "" && mod.DisplayName != mod.Name {
			name = fmt.Sprintf("%s (%s)", mod.DisplayName, mod.Name)
		}
		fmt.Fprintf(w, "\n%s\n", kindStyle.Render(name))
		fmt.Fprintf(w, "  base package: %s\n", mod.BasePackage)
		fmt.Fprintf(w, "  types:        %d exposed, %d internal\n", len(mod.ExposedTypes()), len(mod.InternalTypes()))

		deps := m.DependenciesOf(mod)
		if len(deps) == 0 {
			fmt.Fprintln(w, statusStyle.Render("  no dependencies"))
			continue
		}
		targets := make([]string, 0, len(deps))
		for _, dep := range deps {
			tags := make([]string, 0, len(dep.Types))
			for _, t := range dep.Types {
				tags = append(tags, string(t))
			}
			sort.Strings(tags)
			targets = append(targets, fmt.Sprintf("%s [%s]", dep.Target.Name, strings.Join(tags, ", ")))
		}
		fmt.Fprintf(w, "  depends on:   %s\n", strings.Join(targets, "; "))
		if allowed, ok := mod.AllowedDependencies(); ok {
			fmt.Fprintf(w, "  allowed:      %s\n", strings.Join(allowed, ", "))
		}
	}
}

func renderPublications(w io.Writer, pubs []ledger.Publication) {
	fmt.Fprintln(w, titleStyle.Render("Incomplete event publications"))
	if len(pubs) == 0 {
		fmt.Fprintln(w, successStyle.Render("None."))
		return
	}
	for _, p := range pubs {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			statusStyle.Render(p.PublishedAt.UTC().Format(time.RFC3339)),
			p.ID,
			kindStyle.Render(p.ListenerID),
			p.EventType,
		)
	}
	fmt.Fprintln(w, statusStyle.Render(fmt.Sprintf("%d publication(s) awaiting completion.", len(pubs))))
}
