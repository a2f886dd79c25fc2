package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modulith/internal/core/errors"
	"modulith/internal/engine/model"
	"modulith/internal/engine/typegraph"
	"modulith/internal/engine/verify"
)

const shop = "com.acme.shop"

// shopModel has orders -> billing (constructor), billing listening to an
// orders event, and a field cycle between orders and inventory.
func shopModel(t *testing.T) *model.Model {
	t.Helper()
	g, err := typegraph.New([]*typegraph.Type{
		typegraph.NewType(shop+".orders", "OrderService", typegraph.KindStruct).
			Refer(shop+".billing.Billing", typegraph.RefConstructor, "OrderService", "Billing").
			Refer(shop+".inventory.Stock", typegraph.RefField, "stock"),
		typegraph.NewType(shop+".orders", "OrderCompleted", typegraph.KindStruct),
		typegraph.NewType(shop+".billing", "Billing", typegraph.KindStruct).
			Refer(shop+".orders.OrderCompleted", typegraph.RefEventListener, "on"),
		typegraph.NewType(shop+".inventory", "Stock", typegraph.KindStruct).
			Refer(shop+".orders.OrderService", typegraph.RefField, "orders"),
		typegraph.NewType(shop+".inventory.internal", "Counter", typegraph.KindStruct),
	})
	require.NoError(t, err)
	m, err := model.Build(g, model.Config{RootPackage: shop})
	require.NoError(t, err)
	return m
}

func TestModulesAsPlantUML(t *testing.T) {
	d := NewDocumenter(shopModel(t), DefaultOptions())
	uml := d.ModulesAsPlantUML()

	assert.True(t, strings.HasPrefix(uml, "@startuml\n"))
	assert.Contains(t, uml, "component \"billing\" as billing")
	assert.Contains(t, uml, "orders ..> billing : uses")
	assert.Contains(t, uml, "billing ..> orders : listens to")
	assert.Contains(t, uml, "inventory -[#red,thickness=2]-> orders : depends on")
	assert.Contains(t, uml, "orders -[#red,thickness=2]-> inventory : depends on")
	assert.True(t, strings.HasSuffix(uml, "@enduml\n"))
}

func TestModuleAsPlantUML_ShowsDirectNeighbours(t *testing.T) {
	m := shopModel(t)
	d := NewDocumenter(m, DefaultOptions())
	billing, ok := m.ModuleByName("billing")
	require.True(t, ok)

	uml := d.ModuleAsPlantUML(billing)
	assert.Contains(t, uml, "component \"billing\" as billing")
	assert.Contains(t, uml, "component \"orders\" as orders")
	assert.NotContains(t, uml, "inventory")
}

func TestPlantUML_C4StyleAndColors(t *testing.T) {
	opts := DefaultOptions()
	opts.Style = StyleC4
	d := NewDocumenter(shopModel(t), opts)
	uml := d.ModulesAsPlantUML()
	assert.Contains(t, uml, "!include <C4/C4_Container>")
	assert.Contains(t, uml, "Container(orders, \"orders\", \"Module\", \"com.acme.shop.orders\")")
	assert.Contains(t, uml, "Rel(orders, billing, \"uses\")")

	opts = DefaultOptions()
	opts.Color = func(mod *model.Module) string {
		if mod.Name == "billing" {
			return "#LightBlue"
		}
		return ""
	}
	opts.DisplayName = func(mod *model.Module) string { return strings.ToUpper(mod.Name) }
	uml = NewDocumenter(shopModel(t), opts).ModulesAsPlantUML()
	assert.Contains(t, uml, "component \"BILLING\" as billing #LightBlue")
}

func TestDocumenter_DependencyTypeFilter(t *testing.T) {
	opts := DefaultOptions()
	opts.DependencyTypes = []model.DependencyType{model.DependencyEventListener}
	uml := NewDocumenter(shopModel(t), opts).ModulesAsPlantUML()

	assert.Contains(t, uml, "billing ..> orders : listens to")
	assert.NotContains(t, uml, " : uses")
	assert.NotContains(t, uml, "depends on")
}

func TestDocumenter_ExclusionDropsCycle(t *testing.T) {
	opts := DefaultOptions()
	opts.Exclude = verify.WithoutModules("inventory")
	d := NewDocumenter(shopModel(t), opts)

	uml := d.ModulesAsPlantUML()
	assert.NotContains(t, uml, "#red")
	assert.NotContains(t, uml, "inventory")
	assert.Len(t, d.Modules(), 2)
}

func TestMermaidAndDOT_HighlightCycles(t *testing.T) {
	d := NewDocumenter(shopModel(t), DefaultOptions())

	mermaid := d.Mermaid()
	assert.Contains(t, mermaid, "flowchart LR")
	assert.Contains(t, mermaid, "billing -->|listens to| orders")
	// Edges are emitted source-major: billing>orders, inventory>orders,
	// orders>billing, orders>inventory.
	assert.Contains(t, mermaid, "linkStyle 1,3 stroke:#cc0000")
	assert.Contains(t, mermaid, "class inventory,orders cycleNode;")

	dot := d.DOT()
	assert.Contains(t, dot, "digraph modules")
	assert.Contains(t, dot, "\"inventory\" -> \"orders\" [color=\"red\"")
	assert.Contains(t, dot, "\"orders\" -> \"billing\" [color=\"forestgreen\", label=\"uses\"]")
	assert.Contains(t, dot, "inventory\\n(1 exposed, 1 internal)")
}

func TestModuleCanvas(t *testing.T) {
	m := shopModel(t)
	d := NewDocumenter(m, DefaultOptions())

	orders, _ := m.ModuleByName("orders")
	canvas := d.ModuleCanvas(orders)
	assert.Contains(t, canvas, "# orders\n")
	assert.Contains(t, canvas, "| Base package | `com.acme.shop.orders` |")
	assert.Contains(t, canvas, "`c.a.s.o.OrderCompleted`")
	assert.Contains(t, canvas, "| Dependencies | billing (uses), inventory (depends on) |")
	assert.Contains(t, canvas, "| Event listeners | none |")
	assert.Contains(t, canvas, "| Published events | `c.a.s.o.OrderCompleted` |")

	billing, _ := m.ModuleByName("billing")
	canvas = d.ModuleCanvas(billing)
	assert.Contains(t, canvas, "| Event listeners | `com.acme.shop.orders.OrderCompleted` |")
	assert.Contains(t, canvas, "| Published events | none |")

	inventory, _ := m.ModuleByName("inventory")
	assert.Contains(t, d.ModuleCanvas(inventory), "| Internal types | 1 |")
}

func TestWriteFormats(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputFolder = filepath.Join(t.TempDir(), "docs", "modulith")
	d := NewDocumenter(shopModel(t), opts)

	written, err := d.WriteFormats([]string{FormatPlantUML, FormatMermaid, FormatDOT, FormatCanvas, FormatTSV})
	require.NoError(t, err)
	assert.Len(t, written, 4+1+1+3+1)

	for _, name := range []string{"components.puml", "module-orders.puml", "components.mmd", "components.dot", "module-billing.md", "dependencies.tsv"} {
		_, err := os.Stat(filepath.Join(opts.OutputFolder, name))
		assert.NoError(t, err, name)
	}

	tsv, err := os.ReadFile(filepath.Join(opts.OutputFolder, "dependencies.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(tsv), "orders\tbilling\tcom.acme.shop.orders.OrderService\tcom.acme.shop.billing.Billing\tconstructor\tOrderService")

	_, err = d.WriteFormats([]string{"pdf"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
