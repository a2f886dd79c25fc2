// Package typegraph holds the immutable type graph the module model is built
// from. Source adapters (see internal/engine/parser) produce Types; nothing in
// this package performs I/O.
package typegraph

import (
	"context"
	"strings"
)

type Kind string

const (
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindFunc      Kind = "func"
	KindOther     Kind = "other"
)

// RefKind classifies how a type refers to another type.
type RefKind string

const (
	RefSupertype     RefKind = "supertype"
	RefField         RefKind = "field"
	RefConstructor   RefKind = "constructor"
	RefParameter     RefKind = "parameter"
	RefReturn        RefKind = "return"
	RefEventListener RefKind = "event-listener"
)

type Location struct {
	File   string
	Line   int
	Column int
}

// Reference is a single direct use of another type.
type Reference struct {
	Target string // fully-qualified name of the referenced type
	Kind   RefKind
	// Member is the declaring field, method or constructor name.
	Member string
	// Parameters holds the simple names of the member's parameter types, in
	// declaration order. Only set for constructors, methods and listeners.
	Parameters []string
	Location   Location
}

type Type struct {
	Name       string // fully-qualified: <package>.<SimpleName>
	Package    string
	SimpleName string
	Kind       Kind
	// Abstract is set for abstract classes; interfaces are always abstract.
	Abstract bool
	// Exposed is the explicit exposure marker found on the declaration.
	Exposed    bool
	Location   Location
	References []Reference
}

// Source supplies the raw types for one analysis run.
type Source interface {
	Load(ctx context.Context) ([]*Type, error)
}

// StaticSource serves a fixed set of types; used for fixtures and embedding.
type StaticSource []*Type

func (s StaticSource) Load(ctx context.Context) ([]*Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*Type, len(s))
	copy(out, s)
	return out, nil
}

func NewType(pkg, simpleName string, kind Kind) *Type {
	return &Type{
		Name:       FQN(pkg, simpleName),
		Package:    pkg,
		SimpleName: simpleName,
		Kind:       kind,
	}
}

// Refer appends a reference and returns t for chaining in fixtures.
func (t *Type) Refer(target string, kind RefKind, member string, params ...string) *Type {
	t.References = append(t.References, Reference{
		Target:     target,
		Kind:       kind,
		Member:     member,
		Parameters: params,
	})
	return t
}

// MarkExposed sets the explicit exposure marker.
func (t *Type) MarkExposed() *Type {
	t.Exposed = true
	return t
}

func (t *Type) IsAbstract() bool {
	return t != nil && (t.Kind == KindInterface || t.Abstract)
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

func FQN(pkg, simpleName string) string {
	if pkg == "" {
		return simpleName
	}
	return pkg + "." + simpleName
}

// SplitFQN separates a fully-qualified type name into package and simple name.
// Type names never contain dots, so the last dot is the separator for both
// Go import paths and Java packages.
func SplitFQN(fqn string) (pkg, simpleName string) {
	idx := strings.LastIndex(fqn, ".")
	if idx < 0 {
		return "", fqn
	}
	return fqn[:idx], fqn[idx+1:]
}

// SimpleNameOf returns the displayable simple name of a fully-qualified type,
// rendering nested types (Outer$Inner) with a dot.
func SimpleNameOf(fqn string) string {
	_, simple := SplitFQN(fqn)
	return strings.ReplaceAll(simple, "$", ".")
}

// PackageSeparator returns the segment separator used by pkg: "/" for Go
// import paths, "." otherwise.
func PackageSeparator(pkg string) string {
	if strings.Contains(pkg, "/") {
		return "/"
	}
	return "."
}

// PackageSegments splits pkg into its path segments.
func PackageSegments(pkg string) []string {
	if pkg == "" {
		return nil
	}
	return strings.Split(pkg, PackageSeparator(pkg))
}

// IsSubPackage reports whether pkg equals base or is nested beneath it,
// matching on whole segments.
func IsSubPackage(pkg, base string) bool {
	if base == "" {
		return true
	}
	if pkg == base {
		return true
	}
	return strings.HasPrefix(pkg, base+PackageSeparator(pkg))
}
