package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shopOrders = `package orders

import "example.com/shop/inventory/internal/stock"

type Service struct {
	stock *stock.Ledger
}
`
	shopInventory = `package inventory

type Catalog struct{}
`
	shopStock = `package stock

type Ledger struct{}
`
)

// writeProject lays out a small Go module where orders reaches into the
// internal package of inventory, plus a config file with the given extra
// TOML appended.
func writeProject(t *testing.T, extra string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"go.mod":                            "module example.com/shop\n\ngo 1.24\n",
		"orders/service.go":                 shopOrders,
		"inventory/catalog.go":              shopInventory,
		"inventory/internal/stock/stock.go": shopStock,
		"modulith.toml": `version = 1

[project]
root = "."
language = "go"
root_package = "example.com/shop"

[ledger]
driver = "memory"
` + extra,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return filepath.Join(root, "modulith.toml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "-c", writeProject(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "modulith v"+VERSION+"\n", out)
}

func TestVerifyCommand_ReportsViolations(t *testing.T) {
	out, err := run(t, "verify", "-c", writeProject(t, ""))
	require.ErrorIs(t, err, errViolations)
	assert.Contains(t, out, "internal-access")
	assert.Contains(t, out, "1 violation(s) found.")
}

func TestVerifyCommand_JSON(t *testing.T) {
	out, err := run(t, "verify", "--format", "json", "-c", writeProject(t, ""))
	require.ErrorIs(t, err, errViolations)

	var got []violationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "internal-access", string(got[0].Kind))
}

func TestVerifyCommand_SARIF(t *testing.T) {
	out, err := run(t, "verify", "--format", "sarif", "-c", writeProject(t, ""))
	require.ErrorIs(t, err, errViolations)

	var report struct {
		Runs []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Runs, 1)
	require.Len(t, report.Runs[0].Results, 1)
	assert.Equal(t, "MOD001", report.Runs[0].Results[0].RuleID)
}

func TestVerifyCommand_ExcludedModule(t *testing.T) {
	path := writeProject(t, "\n[verification]\nexcluded_modules = [\"orders\"]\n")
	out, err := run(t, "verify", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No violations found.")
}

func TestVerifyCommand_UnknownFormat(t *testing.T) {
	_, err := run(t, "verify", "--format", "yaml", "-c", writeProject(t, ""))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errViolations)
}

func TestVerifyCommand_UnknownFormatSkipsAnalysis(t *testing.T) {
	path := writeProject(t, "")
	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(path), "orders")))
	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(path), "inventory")))

	out, err := run(t, "verify", "--format", "yaml", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "yaml"`)
	assert.Empty(t, out)
}

func TestVerifyCommand_MissingConfig(t *testing.T) {
	_, err := run(t, "verify", "-c", filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestModulesCommand(t *testing.T) {
	out, err := run(t, "modules", "-c", writeProject(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "inventory")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "base package: example.com/shop/orders")
}

func TestDocsCommand(t *testing.T) {
	path := writeProject(t, "")
	outDir := filepath.Join(t.TempDir(), "docs")

	out, err := run(t, "docs", "-c", path, "--formats", "plantuml", "--output", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Documentation written")
	assert.FileExists(t, filepath.Join(outDir, "components.puml"))
}

func TestLedgerIncompleteCommand_Empty(t *testing.T) {
	out, err := run(t, "ledger", "incomplete", "-c", writeProject(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "None.")
}

func TestLedgerResubmitCommand_NothingToDo(t *testing.T) {
	out, err := run(t, "ledger", "resubmit", "-c", writeProject(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "attempted 0, succeeded 0, failed 0, skipped 0")
}

func TestLedgerCompleteCommand_InvalidID(t *testing.T) {
	_, err := run(t, "ledger", "complete", "not-a-uuid", "-c", writeProject(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse publication id")
}

func TestLedgerCleanupCommand(t *testing.T) {
	out, err := run(t, "ledger", "cleanup", "-c", writeProject(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 completed publication(s)")
}

func TestUnknownLogFormat(t *testing.T) {
	_, err := run(t, "version", "--log-format", "xml", "-c", writeProject(t, ""))
	require.Error(t, err)
}
