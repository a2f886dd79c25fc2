package model

import (
	"testing"

	"modulith/internal/core/errors"
	"modulith/internal/engine/typegraph"
)

const root = "com.acme.myproject"

func mustGraph(t *testing.T, types ...*typegraph.Type) *typegraph.Graph {
	t.Helper()
	g, err := typegraph.New(types)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func mustBuild(t *testing.T, g *typegraph.Graph, cfg Config) *Model {
	t.Helper()
	m, err := Build(g, cfg)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return m
}

func TestBuild_DerivesModulesBeneathRoot(t *testing.T) {
	g := mustGraph(t,
		typegraph.NewType(root+".moduleA", "ServiceA", typegraph.KindStruct),
		typegraph.NewType(root+".moduleA.web", "Controller", typegraph.KindStruct),
		typegraph.NewType(root+".moduleB", "ServiceB", typegraph.KindStruct),
		typegraph.NewType(root, "Application", typegraph.KindStruct),
	)

	m := mustBuild(t, g, Config{RootPackage: root})

	mods := m.Modules()
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(mods))
	}
	if mods[0].Name != "moduleA" || mods[1].Name != "moduleB" {
		t.Fatalf("unexpected modules %v", mods)
	}
	if got := len(mods[0].Types()); got != 2 {
		t.Fatalf("expected moduleA to own 2 types, got %d", got)
	}
	rootMod, ok := m.RootModule()
	if !ok || !rootMod.Root || !rootMod.Contains(root+".Application") {
		t.Fatalf("expected Application in the root module, got %+v", rootMod)
	}
	if mod, ok := m.ModuleOfName(root + ".moduleA.web.Controller"); !ok || mod.Name != "moduleA" {
		t.Fatalf("expected Controller in moduleA, got %v", mod)
	}
}

func TestBuild_LongestPrefixWins(t *testing.T) {
	g := mustGraph(t,
		typegraph.NewType("example.com/app/orders", "Order", typegraph.KindStruct),
		typegraph.NewType("example.com/app/billing", "Invoice", typegraph.KindStruct),
		typegraph.NewType("example.com/app/shared", "Money", typegraph.KindStruct),
	)

	m := mustBuild(t, g, Config{
		RootPackage:  "example.com/app",
		BasePackages: []string{"example.com/app/orders", "example.com/app/billing"},
		Names:        map[string]string{"example.com/app/billing": "invoicing"},
		DisplayNames: map[string]string{"invoicing": "Invoicing"},
	})

	if _, ok := m.ModuleByName("billing"); ok {
		t.Fatal("name override should replace the derived name")
	}
	mod, ok := m.ModuleByName("invoicing")
	if !ok || mod.DisplayName != "Invoicing" {
		t.Fatalf("expected invoicing module with display name, got %+v", mod)
	}
	if _, ok := m.ModuleByName("Invoicing"); ok {
		t.Fatal("module lookup must be case-sensitive")
	}
	if mod, _ := m.ModuleOfName("example.com/app/shared.Money"); mod == nil || !mod.Root {
		t.Fatalf("unmatched type should land in the root module, got %v", mod)
	}
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	g := mustGraph(t, typegraph.NewType(root+".moduleA", "ServiceA", typegraph.KindStruct))

	cases := []struct {
		name string
		cfg  Config
	}{
		{"nested", Config{BasePackages: []string{root + ".moduleA", root + ".moduleA.sub"}}},
		{"empty base", Config{BasePackages: []string{" "}}},
		{"no modules", Config{RootPackage: root + ".moduleA"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(g, tc.cfg)
			if !errors.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestBuild_EmptyGraph(t *testing.T) {
	m := mustBuild(t, mustGraph(t), Config{RootPackage: root})
	if len(m.Modules()) != 0 || len(m.Dependencies()) != 0 {
		t.Fatal("empty graph should yield an empty model")
	}
}

func TestBuild_Exposure(t *testing.T) {
	api := typegraph.NewType(root+".moduleB", "ServiceB", typegraph.KindStruct).
		Refer(root+".moduleB.internal.Port", typegraph.RefParameter, "Use").
		Refer(root+".moduleB.internal.Helper", typegraph.RefField, "helper")
	port := typegraph.NewType(root+".moduleB.internal", "Port", typegraph.KindInterface).
		Refer(root+".moduleB.internal.Callback", typegraph.RefParameter, "Register")
	callback := typegraph.NewType(root+".moduleB.internal", "Callback", typegraph.KindInterface)
	helper := typegraph.NewType(root+".moduleB.internal", "Helper", typegraph.KindStruct)
	marked := typegraph.NewType(root+".moduleB.internal", "Marked", typegraph.KindStruct).MarkExposed()
	configured := typegraph.NewType(root+".moduleB.internal", "Configured", typegraph.KindStruct)
	hidden := typegraph.NewType(root+".moduleB", "Hidden", typegraph.KindStruct)

	g := mustGraph(t, api, port, callback, helper, marked, configured, hidden)
	m := mustBuild(t, g, Config{
		RootPackage: root,
		ExplicitExposures: map[string]bool{
			configured.Name: true,
			hidden.Name:     false,
		},
	})

	mod, _ := m.ModuleByName("moduleB")
	want := map[string]bool{
		api.Name:        true,
		port.Name:       true,
		callback.Name:   true,
		helper.Name:     false,
		marked.Name:     true,
		configured.Name: true,
		hidden.Name:     false,
	}
	for name, exposed := range want {
		if got := mod.IsExposed(name); got != exposed {
			t.Errorf("IsExposed(%s) = %v, want %v", name, got, exposed)
		}
	}
	if got := len(mod.ExposedTypes()) + len(mod.InternalTypes()); got != len(mod.Types()) {
		t.Fatalf("exposed and internal types must partition the module, got %d of %d", got, len(mod.Types()))
	}
}

func TestBuild_InternalSegmentIsRelativeToBase(t *testing.T) {
	g := mustGraph(t,
		typegraph.NewType("example.com/app/internal/orders", "Order", typegraph.KindStruct),
		typegraph.NewType("example.com/app/internal/orders/internal/store", "Repo", typegraph.KindStruct),
		typegraph.NewType("example.com/app/internal/billing", "Invoice", typegraph.KindStruct),
	)
	m := mustBuild(t, g, Config{RootPackage: "example.com/app/internal"})

	orders, ok := m.ModuleByName("orders")
	if !ok {
		t.Fatal("expected orders module")
	}
	if !orders.IsExposed("example.com/app/internal/orders.Order") {
		t.Fatal("an internal segment above the base package must not hide the API")
	}
	if orders.IsExposed("example.com/app/internal/orders/internal/store.Repo") {
		t.Fatal("types beneath orders/internal must stay internal")
	}
}

func TestDependenciesOf_CollapsesAndOrders(t *testing.T) {
	a := typegraph.NewType(root+".moduleA", "ServiceA", typegraph.KindStruct).
		Refer(root+".moduleC.ServiceC", typegraph.RefField, "c").
		Refer(root+".moduleB.ServiceB", typegraph.RefConstructor, "NewServiceA", "ServiceB").
		Refer(root+".moduleB.ServiceB", typegraph.RefField, "b").
		Refer(root+".moduleB.EventB", typegraph.RefEventListener, "on", "EventB")
	b := typegraph.NewType(root+".moduleB", "ServiceB", typegraph.KindStruct)
	ev := typegraph.NewType(root+".moduleB", "EventB", typegraph.KindStruct)
	c := typegraph.NewType(root+".moduleC", "ServiceC", typegraph.KindStruct)

	m := mustBuild(t, mustGraph(t, a, b, ev, c), Config{RootPackage: root})
	modA, _ := m.ModuleByName("moduleA")

	deps := m.DependenciesOf(modA)
	if len(deps) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(deps))
	}
	if deps[0].Target.Name != "moduleB" || deps[1].Target.Name != "moduleC" {
		t.Fatalf("edges not ordered by target: %s, %s", deps[0].Target, deps[1].Target)
	}
	toB := deps[0]
	for _, dt := range []DependencyType{DependencyDefault, DependencyUsesComponent, DependencyEventListener} {
		if !toB.HasType(dt) {
			t.Errorf("expected edge to moduleB tagged %s, got %v", dt, toB.Types)
		}
	}
	if len(toB.References) != 3 {
		t.Fatalf("expected 3 contributing references, got %d", len(toB.References))
	}
	if rep := toB.Representative(); rep.Member != "NewServiceA" {
		t.Fatalf("representative should be the first discovered reference, got %s", rep.Member)
	}
	if len(m.Dependencies()) != 2 {
		t.Fatalf("expected 2 edges in total, got %d", len(m.Dependencies()))
	}
}

func TestBuild_AmbiguousNamesAndAllowList(t *testing.T) {
	g := mustGraph(t,
		typegraph.NewType("example.com/a/orders", "A", typegraph.KindStruct),
		typegraph.NewType("example.com/b/orders", "B", typegraph.KindStruct),
		typegraph.NewType("example.com/c/billing", "C", typegraph.KindStruct),
	)
	m := mustBuild(t, g, Config{
		BasePackages:                []string{"example.com/a/orders", "example.com/b/orders", "example.com/c/billing"},
		ExplicitAllowedDependencies: map[string][]string{"billing": nil},
	})

	amb := m.AmbiguousNames()
	if len(amb["orders"]) != 2 {
		t.Fatalf("expected orders to be ambiguous, got %v", amb)
	}
	billing, _ := m.ModuleByName("billing")
	if allowed, ok := billing.AllowedDependencies(); !ok || len(allowed) != 0 {
		t.Fatalf("billing should restrict to nothing, got %v %v", allowed, ok)
	}
	orders, _ := m.ModuleByName("orders")
	if _, ok := orders.AllowedDependencies(); ok {
		t.Fatal("orders declares no allow list")
	}
}
