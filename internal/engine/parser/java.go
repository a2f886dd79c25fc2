package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"modulith/internal/engine/typegraph"
)

var (
	javaLeafTypes      = map[string]bool{"type_identifier": true}
	javaQualifiedTypes = map[string]bool{"scoped_type_identifier": true}

	DefaultExposedAnnotations  = []string{"NamedInterface", "Exposed"}
	DefaultListenerAnnotations = []string{"EventListener", "TransactionalEventListener", "ApplicationModuleListener"}
)

type JavaExtractor struct {
	// ExposedAnnotations and ListenerAnnotations are matched by simple name.
	ExposedAnnotations  []string
	ListenerAnnotations []string
}

func NewJavaExtractor() *JavaExtractor {
	return &JavaExtractor{
		ExposedAnnotations:  DefaultExposedAnnotations,
		ListenerAnnotations: DefaultListenerAnnotations,
	}
}

func (e *JavaExtractor) Language() string { return LanguageJava }

func (e *JavaExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: LanguageJava,
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"package_declaration":   e.extractPackage,
		"import_declaration":    e.extractImport,
		"class_declaration":     e.topLevel,
		"interface_declaration": e.topLevel,
		"enum_declaration":      e.topLevel,
		"record_declaration":    e.topLevel,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *JavaExtractor) extractPackage(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
			ctx.File.Package = normalizeRefName(ctx.Text(child))
		}
	}
	return true
}

func (e *JavaExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	imp := Import{Location: ctx.Location(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "static":
			imp.Static = true
		case "scoped_identifier", "identifier":
			imp.Path = normalizeRefName(ctx.Text(child))
		case "asterisk":
			imp.Wildcard = true
		}
	}
	if imp.Path == "" || imp.Static {
		return true
	}
	if !imp.Wildcard {
		imp.Alias = ModuleReferenceBase(LanguageJava, imp.Path)
	}
	ctx.File.Imports = append(ctx.File.Imports, imp)
	return true
}

func (e *JavaExtractor) topLevel(ctx *ExtractionContext, node *sitter.Node) bool {
	e.extractDeclaration(ctx, node, "")
	return true
}

func (e *JavaExtractor) extractDeclaration(ctx *ExtractionContext, node *sitter.Node, outer string) {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	if outer != "" {
		name = outer + "$" + name
	}
	annotations, modifiers := e.modifiers(ctx, node)
	decl := Declaration{
		Name:     name,
		Kind:     typegraph.KindStruct,
		Exposed:  e.hasAnnotation(annotations, e.ExposedAnnotations),
		Abstract: modifiers["abstract"],
		Location: ctx.Location(node),
	}
	if node.Kind() == "interface_declaration" {
		decl.Kind = typegraph.KindInterface
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "superclass", "super_interfaces", "extends_interfaces":
			decl.Refs = append(decl.Refs, e.typeRefs(ctx, child, typegraph.RefSupertype, "", nil)...)
		case "formal_parameters":
			// record components
			decl.Refs = append(decl.Refs, e.parameterRefs(ctx, child, typegraph.RefField, "", false)...)
		}
	}

	body := node.ChildByFieldName("body")
	var nested []*sitter.Node
	if body != nil {
		members := make([]*sitter.Node, 0, body.ChildCount())
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child.Kind() == "enum_body_declarations" {
				for j := uint(0); j < child.ChildCount(); j++ {
					members = append(members, child.Child(j))
				}
				continue
			}
			members = append(members, child)
		}
		for _, member := range members {
			switch member.Kind() {
			case "field_declaration", "constant_declaration":
				decl.Refs = append(decl.Refs, e.fieldRefs(ctx, member)...)
			case "constructor_declaration", "compact_constructor_declaration":
				ctor := ctx.Text(member.ChildByFieldName("name"))
				decl.Refs = append(decl.Refs, e.parameterRefs(ctx, member.ChildByFieldName("parameters"), typegraph.RefConstructor, ctor, false)...)
			case "method_declaration":
				decl.Refs = append(decl.Refs, e.methodRefs(ctx, member)...)
			case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
				nested = append(nested, member)
			}
		}
	}
	ctx.File.Types = append(ctx.File.Types, decl)

	for _, n := range nested {
		e.extractDeclaration(ctx, n, name)
	}
}

func (e *JavaExtractor) fieldRefs(ctx *ExtractionContext, field *sitter.Node) []RawReference {
	typeNode := field.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	var names []string
	for i := uint(0); i < field.ChildCount(); i++ {
		child := field.Child(i)
		if child.Kind() == "variable_declarator" {
			names = append(names, ctx.Text(child.ChildByFieldName("name")))
		}
	}
	return e.typeRefs(ctx, typeNode, typegraph.RefField, strings.Join(names, ", "), nil)
}

func (e *JavaExtractor) methodRefs(ctx *ExtractionContext, method *sitter.Node) []RawReference {
	name := ctx.Text(method.ChildByFieldName("name"))
	annotations, _ := e.modifiers(ctx, method)
	listener := e.hasAnnotation(annotations, e.ListenerAnnotations)

	refs := e.parameterRefs(ctx, method.ChildByFieldName("parameters"), typegraph.RefParameter, name, listener)
	if ret := method.ChildByFieldName("type"); ret != nil {
		refs = append(refs, e.typeRefs(ctx, ret, typegraph.RefReturn, name, e.parameterTypes(ctx, method.ChildByFieldName("parameters")))...)
	}
	return refs
}

// parameterRefs turns formal parameters into references. With listener set
// the first parameter is recorded as the listened-to event.
func (e *JavaExtractor) parameterRefs(ctx *ExtractionContext, params *sitter.Node, kind typegraph.RefKind, member string, listener bool) []RawReference {
	if params == nil {
		return nil
	}
	paramTypes := e.parameterTypes(ctx, params)
	var refs []RawReference
	for i := uint(0); i < params.ChildCount(); i++ {
		param := params.Child(i)
		typeNode := e.parameterType(param)
		if typeNode == nil {
			continue
		}
		k := kind
		if listener {
			k = typegraph.RefEventListener
			listener = false
		}
		refs = append(refs, e.typeRefs(ctx, typeNode, k, member, paramTypes)...)
	}
	return refs
}

func (e *JavaExtractor) parameterTypes(ctx *ExtractionContext, params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < params.ChildCount(); i++ {
		if typeNode := e.parameterType(params.Child(i)); typeNode != nil {
			text := normalizeRefName(ctx.Text(typeNode))
			if params.Child(i).Kind() == "spread_parameter" {
				text += "..."
			}
			out = append(out, text)
		}
	}
	return out
}

func (e *JavaExtractor) parameterType(param *sitter.Node) *sitter.Node {
	switch param.Kind() {
	case "formal_parameter":
		return param.ChildByFieldName("type")
	case "spread_parameter":
		for i := uint(0); i < param.ChildCount(); i++ {
			child := param.Child(i)
			switch child.Kind() {
			case "modifiers", "variable_declarator", "...":
				continue
			}
			return child
		}
	}
	return nil
}

func (e *JavaExtractor) typeRefs(ctx *ExtractionContext, typeNode *sitter.Node, kind typegraph.RefKind, member string, params []string) []RawReference {
	names := ctx.collectTypeNames(typeNode, javaLeafTypes, javaQualifiedTypes)
	refs := make([]RawReference, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, RawReference{
			TypeName:   name,
			Kind:       kind,
			Member:     member,
			Parameters: params,
			Location:   ctx.Location(typeNode),
		})
	}
	return refs
}

// modifiers returns the simple annotation names and keyword modifiers of a
// declaration.
func (e *JavaExtractor) modifiers(ctx *ExtractionContext, node *sitter.Node) ([]string, map[string]bool) {
	var annotations []string
	keywords := make(map[string]bool)
	for i := uint(0); i < node.ChildCount(); i++ {
		mods := node.Child(i)
		if mods.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < mods.ChildCount(); j++ {
			mod := mods.Child(j)
			switch mod.Kind() {
			case "marker_annotation", "annotation":
				name := normalizeRefName(ctx.Text(mod.ChildByFieldName("name")))
				annotations = append(annotations, ModuleReferenceBase(LanguageJava, name))
			default:
				keywords[ctx.Text(mod)] = true
			}
		}
	}
	return annotations, keywords
}

func (e *JavaExtractor) hasAnnotation(annotations, wanted []string) bool {
	for _, a := range annotations {
		for _, w := range wanted {
			if a == w {
				return true
			}
		}
	}
	return false
}
