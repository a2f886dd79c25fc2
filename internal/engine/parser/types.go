package parser

import (
	"time"

	"modulith/internal/engine/typegraph"
)

const (
	LanguageGo   = "go"
	LanguageJava = "java"
)

// File is the raw, unresolved extraction result of one source file. Type
// names are kept as written; the resolver turns them into fully-qualified
// names once every file of the run is known.
type File struct {
	Path     string
	Language string
	Package  string // Full package path (Go import path or Java package)
	// PackageName is the Go package clause; it may differ from the last
	// import path segment.
	PackageName string
	Imports  []Import
	Types    []Declaration
	// Members declared outside their owner's body: Go methods and
	// constructor functions.
	Attached []Attachment
	ParsedAt time.Time
}

type Import struct {
	Path     string // Import path or qualified Java name
	Alias    string
	Wildcard bool // Java on-demand import (pkg.*)
	Static   bool
	Location Location
}

type Declaration struct {
	// Name is the simple name; nested Java types use Outer$Inner.
	Name     string
	Kind     typegraph.Kind
	Abstract bool
	Exposed  bool
	Location Location
	Refs     []RawReference
}

// Attachment is a member whose owner is resolved by name within the package.
type Attachment struct {
	Owner string
	// Constructor marks a New<Owner> function; it only attaches when Owner
	// is declared in the same package.
	Constructor bool
	Refs        []RawReference
}

type RawReference struct {
	TypeName   string // As written: "Order", "orders.Order", "com.acme.Order"
	Kind       typegraph.RefKind
	Member     string
	Parameters []string
	Location   Location
}

type Location = typegraph.Location
