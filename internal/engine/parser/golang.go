package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"modulith/internal/engine/typegraph"
)

var (
	goLeafTypes      = map[string]bool{"type_identifier": true}
	goQualifiedTypes = map[string]bool{"qualified_type": true}
)

type GoExtractor struct{}

func (e *GoExtractor) Language() string { return LanguageGo }

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: LanguageGo,
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"package_clause":       e.extractPackage,
		"import_declaration":   e.extractImports,
		"type_declaration":     e.extractTypeDeclaration,
		"function_declaration": e.extractFunction,
		"method_declaration":   e.extractMethod,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *GoExtractor) extractPackage(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "package_identifier" {
			ctx.File.PackageName = ctx.Text(child)
		}
	}
	return true
}

func (e *GoExtractor) extractImports(ctx *ExtractionContext, node *sitter.Node) bool {
	e.walkImports(ctx, node)
	return true
}

func (e *GoExtractor) walkImports(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() == "import_spec" {
			var alias, path string
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				kind := spec.Kind()

				if kind == "package_identifier" || kind == "blank_identifier" || kind == "dot" {
					alias = ctx.Text(spec)
				} else if kind == "interpreted_string_literal" || kind == "raw_string_literal" {
					path = strings.Trim(ctx.Text(spec), "\"`")
				}
			}

			if path != "" {
				ctx.File.Imports = append(ctx.File.Imports, Import{
					Path:     path,
					Alias:    alias,
					Location: ctx.Location(child),
				})
			}
		} else {
			e.walkImports(ctx, child)
		}
	}
}

func (e *GoExtractor) extractTypeDeclaration(ctx *ExtractionContext, node *sitter.Node) bool {
	outer := ctx.LeadingComments(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "type_spec" && child.Kind() != "type_alias" {
			continue
		}
		comments := append(append([]string(nil), outer...), ctx.LeadingComments(child)...)
		e.extractTypeSpec(ctx, child, hasDirective(comments, "exposed"))
	}
	return true
}

func (e *GoExtractor) extractTypeSpec(ctx *ExtractionContext, node *sitter.Node, exposed bool) {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return
	}
	decl := Declaration{
		Name:     ctx.Text(nameNode),
		Kind:     typegraph.KindOther,
		Exposed:  exposed,
		Location: ctx.Location(node),
	}

	switch typeNode.Kind() {
	case "struct_type":
		decl.Kind = typegraph.KindStruct
		decl.Refs = e.structRefs(ctx, typeNode)
	case "interface_type":
		decl.Kind = typegraph.KindInterface
		decl.Refs = e.interfaceRefs(ctx, typeNode)
	case "function_type":
		decl.Kind = typegraph.KindFunc
		decl.Refs = e.signatureRefs(ctx, typeNode, decl.Name, false)
	case "type_identifier", "qualified_type", "generic_type", "pointer_type":
		decl.Refs = e.typeRefs(ctx, typeNode, typegraph.RefSupertype, "", nil)
	default:
		decl.Refs = e.typeRefs(ctx, typeNode, typegraph.RefField, "", nil)
	}
	ctx.File.Types = append(ctx.File.Types, decl)
}

func (e *GoExtractor) structRefs(ctx *ExtractionContext, structType *sitter.Node) []RawReference {
	var refs []RawReference
	var fields *sitter.Node
	for i := uint(0); i < structType.ChildCount(); i++ {
		if child := structType.Child(i); child.Kind() == "field_declaration_list" {
			fields = child
		}
	}
	if fields == nil {
		return nil
	}
	for i := uint(0); i < fields.ChildCount(); i++ {
		field := fields.Child(i)
		if field.Kind() != "field_declaration" {
			continue
		}
		typeNode := field.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		var names []string
		for j := uint(0); j < field.ChildCount(); j++ {
			if child := field.Child(j); child.Kind() == "field_identifier" {
				names = append(names, ctx.Text(child))
			}
		}
		if len(names) == 0 {
			refs = append(refs, e.typeRefs(ctx, typeNode, typegraph.RefSupertype, simpleTypeText(ctx.Text(typeNode)), nil)...)
			continue
		}
		refs = append(refs, e.typeRefs(ctx, typeNode, typegraph.RefField, strings.Join(names, ", "), nil)...)
	}
	return refs
}

func (e *GoExtractor) interfaceRefs(ctx *ExtractionContext, iface *sitter.Node) []RawReference {
	var refs []RawReference
	for i := uint(0); i < iface.ChildCount(); i++ {
		child := iface.Child(i)
		switch child.Kind() {
		case "method_elem", "method_spec":
			name := ctx.Text(child.ChildByFieldName("name"))
			refs = append(refs, e.signatureRefs(ctx, child, name, false)...)
		case "type_elem", "constraint_elem", "type_identifier", "qualified_type":
			refs = append(refs, e.typeRefs(ctx, child, typegraph.RefSupertype, "", nil)...)
		}
	}
	return refs
}

// signatureRefs extracts parameter and result references of a function-like
// node. With listener set, the first parameter that is not a context becomes
// the listened-to event.
func (e *GoExtractor) signatureRefs(ctx *ExtractionContext, node *sitter.Node, member string, listener bool) []RawReference {
	var refs []RawReference
	params := node.ChildByFieldName("parameters")
	paramTypes := e.parameterTypes(ctx, params)

	if params != nil {
		for i := uint(0); i < params.ChildCount(); i++ {
			param := params.Child(i)
			if param.Kind() != "parameter_declaration" && param.Kind() != "variadic_parameter_declaration" {
				continue
			}
			typeNode := param.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			kind := typegraph.RefParameter
			if listener && !isGoContext(ctx.Text(typeNode)) {
				kind = typegraph.RefEventListener
				listener = false
			}
			refs = append(refs, e.typeRefs(ctx, typeNode, kind, member, paramTypes)...)
		}
	}
	if result := node.ChildByFieldName("result"); result != nil {
		refs = append(refs, e.typeRefs(ctx, result, typegraph.RefReturn, member, paramTypes)...)
	}
	return refs
}

func (e *GoExtractor) parameterTypes(ctx *ExtractionContext, params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < params.ChildCount(); i++ {
		param := params.Child(i)
		if param.Kind() != "parameter_declaration" && param.Kind() != "variadic_parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		text := normalizeRefName(ctx.Text(typeNode))
		if param.Kind() == "variadic_parameter_declaration" {
			text = "..." + text
		}
		names := 0
		for j := uint(0); j < param.ChildCount(); j++ {
			if param.Child(j).Kind() == "identifier" {
				names++
			}
		}
		if names == 0 {
			names = 1
		}
		for n := 0; n < names; n++ {
			out = append(out, text)
		}
	}
	return out
}

func (e *GoExtractor) typeRefs(ctx *ExtractionContext, typeNode *sitter.Node, kind typegraph.RefKind, member string, params []string) []RawReference {
	names := ctx.collectTypeNames(typeNode, goLeafTypes, goQualifiedTypes)
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

func (e *GoExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if len(name) <= len("New") || !strings.HasPrefix(name, "New") {
		return true
	}
	owner := e.constructedType(ctx, node.ChildByFieldName("result"))
	if owner == "" {
		return true
	}

	params := node.ChildByFieldName("parameters")
	paramTypes := e.parameterTypes(ctx, params)
	var refs []RawReference
	if params != nil {
		for i := uint(0); i < params.ChildCount(); i++ {
			param := params.Child(i)
			if typeNode := param.ChildByFieldName("type"); typeNode != nil {
				refs = append(refs, e.typeRefs(ctx, typeNode, typegraph.RefConstructor, name, paramTypes)...)
			}
		}
	}
	ctx.File.Attached = append(ctx.File.Attached, Attachment{
		Owner:       owner,
		Constructor: true,
		Refs:        refs,
	})
	return true
}

// constructedType returns the first unqualified type a constructor returns.
func (e *GoExtractor) constructedType(ctx *ExtractionContext, result *sitter.Node) string {
	if result == nil {
		return ""
	}
	for _, name := range ctx.collectTypeNames(result, goLeafTypes, goQualifiedTypes) {
		if !strings.Contains(name, ".") {
			return name
		}
		return ""
	}
	return ""
}

func (e *GoExtractor) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	receiver := node.ChildByFieldName("receiver")
	owner := ""
	if receiver != nil {
		for _, name := range ctx.collectTypeNames(receiver, goLeafTypes, goQualifiedTypes) {
			owner = name
			break
		}
	}
	if owner == "" {
		return true
	}
	name := ctx.Text(node.ChildByFieldName("name"))
	listener := hasDirective(ctx.LeadingComments(node), "listener")
	ctx.File.Attached = append(ctx.File.Attached, Attachment{
		Owner: owner,
		Refs:  e.signatureRefs(ctx, node, name, listener),
	})
	return true
}

func isGoContext(typeText string) bool {
	return normalizeRefName(typeText) == "context.Context"
}
