package typegraph

import (
	"context"
	"testing"

	"modulith/internal/core/errors"
)

func TestNew_RejectsDuplicates(t *testing.T) {
	a := NewType("example.com/app/orders", "Order", KindStruct)
	b := NewType("example.com/app/orders", "Order", KindStruct)

	_, err := New([]*Type{a, b})
	if err == nil {
		t.Fatal("expected duplicate type error")
	}
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGraph_ReferencesFromDropsExternalAndSelf(t *testing.T) {
	order := NewType("example.com/app/orders", "Order", KindStruct).
		Refer("example.com/app/orders.Order", RefField, "parent").
		Refer("time.Time", RefField, "createdAt").
		Refer("example.com/app/catalog.Product", RefField, "product")
	product := NewType("example.com/app/catalog", "Product", KindStruct)

	g, err := New([]*Type{order, product})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}

	refs := g.ReferencesFrom(order)
	if len(refs) != 1 {
		t.Fatalf("expected 1 resolved reference, got %d: %+v", len(refs), refs)
	}
	if refs[0].Target != product.Name {
		t.Fatalf("unexpected target %s", refs[0].Target)
	}
}

func TestGraph_OrderingAndPackages(t *testing.T) {
	src := StaticSource{
		NewType("example.com/app/b", "Zed", KindStruct),
		NewType("example.com/app/a", "Alpha", KindInterface),
		NewType("example.com/app/a/internal", "Impl", KindStruct),
	}
	g, err := Load(context.Background(), src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	types := g.Types()
	if types[0].SimpleName != "Alpha" || types[2].SimpleName != "Zed" {
		t.Fatalf("unexpected order: %v", types)
	}
	pkgs := g.Packages()
	if len(pkgs) != 3 || pkgs[0] != "example.com/app/a" {
		t.Fatalf("unexpected packages %v", pkgs)
	}
	if got := len(g.InPackage("example.com/app/a")); got != 2 {
		t.Fatalf("expected 2 types under example.com/app/a, got %d", got)
	}
	if !types[0].IsAbstract() {
		t.Fatal("interface types are abstract")
	}
}

func TestIsSubPackage(t *testing.T) {
	cases := []struct {
		pkg, base string
		want      bool
	}{
		{"example.com/app/orders", "example.com/app/orders", true},
		{"example.com/app/orders/internal", "example.com/app/orders", true},
		{"example.com/app/ordersx", "example.com/app/orders", false},
		{"com.acme.orders.internal", "com.acme.orders", true},
		{"com.acme.ordersx", "com.acme.orders", false},
		{"anything", "", true},
	}
	for _, tc := range cases {
		if got := IsSubPackage(tc.pkg, tc.base); got != tc.want {
			t.Errorf("IsSubPackage(%q, %q) = %v, want %v", tc.pkg, tc.base, got, tc.want)
		}
	}
}

func TestFormatCache(t *testing.T) {
	cache := NewFormatCache(0)

	name := cache.OfName("com.acme.myproject.moduleB.internal.InternalComponentB")
	if name.Abbreviated() != "c.a.m.m.i.InternalComponentB" {
		t.Fatalf("unexpected abbreviation %q", name.Abbreviated())
	}
	if got := name.AbbreviatedRelativeTo("com.acme.myproject.moduleB"); got != "c.a.m.m.internal.InternalComponentB" {
		t.Fatalf("unexpected module-relative abbreviation %q", got)
	}
	if got := name.AbbreviatedRelativeTo("com.acme.other"); got != name.FullName() {
		t.Fatalf("foreign base package should keep full name, got %q", got)
	}

	goName := cache.OfName("example.com/app/orders.Order")
	if goName.Abbreviated() != "e/a/o.Order" {
		t.Fatalf("unexpected Go abbreviation %q", goName.Abbreviated())
	}

	nested := cache.OfName("com.acme.Outer$Inner")
	if nested.FullName() != "com.acme.Outer.Inner" {
		t.Fatalf("unexpected nested name %q", nested.FullName())
	}
	if cache.Len() != 3 {
		t.Fatalf("expected 3 cached names, got %d", cache.Len())
	}
}

func TestFormatCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewFormatCache(2)

	cache.OfName("com.acme.a.A")
	cache.OfName("com.acme.b.B")
	cache.OfName("com.acme.a.A")
	cache.OfName("com.acme.c.C")

	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached names, got %d", cache.Len())
	}
	if cache.cache.Contains("com.acme.b.B") {
		t.Fatal("expected com.acme.b.B to be evicted")
	}
	if got := cache.OfName("com.acme.a.A").Abbreviated(); got != "c.a.a.A" {
		t.Fatalf("unexpected abbreviation %q", got)
	}
}
