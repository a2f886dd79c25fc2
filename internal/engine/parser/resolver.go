package parser

import (
	"strings"

	"modulith/internal/engine/typegraph"
)

// Resolver turns the raw files of one run into typegraph types. Names are
// resolved through the file's imports, falling back to the file's own
// package; references that name no known type are kept and dropped later by
// the graph as external.
type Resolver struct {
	known map[string]bool
	byPkg map[string]map[string]*typegraph.Type
	// packageNames maps a Go import path to its declared package name.
	packageNames map[string]string
}

func NewResolver() *Resolver {
	return &Resolver{
		known: make(map[string]bool),
		byPkg: make(map[string]map[string]*typegraph.Type),

		packageNames: make(map[string]string),
	}
}

// Resolve builds one Type per declaration. Later declarations of an already
// seen name are ignored.
func (r *Resolver) Resolve(files []*File) []*typegraph.Type {
	var out []*typegraph.Type
	for _, f := range files {
		if f.PackageName != "" {
			r.packageNames[f.Package] = f.PackageName
		}
		for _, decl := range f.Types {
			fqn := typegraph.FQN(f.Package, decl.Name)
			if r.known[fqn] {
				continue
			}
			r.known[fqn] = true
			t := typegraph.NewType(f.Package, decl.Name, decl.Kind)
			t.Abstract = decl.Abstract
			t.Exposed = decl.Exposed
			t.Location = decl.Location
			if r.byPkg[f.Package] == nil {
				r.byPkg[f.Package] = make(map[string]*typegraph.Type)
			}
			r.byPkg[f.Package][decl.Name] = t
			out = append(out, t)
		}
	}

	for _, f := range files {
		for _, decl := range f.Types {
			t := r.byPkg[f.Package][decl.Name]
			r.appendRefs(t, f, decl.Name, decl.Refs)
		}
		for _, att := range f.Attached {
			owner, ok := r.byPkg[f.Package][att.Owner]
			if !ok {
				continue
			}
			r.appendRefs(owner, f, att.Owner, att.Refs)
		}
	}
	return out
}

func (r *Resolver) appendRefs(t *typegraph.Type, f *File, declName string, refs []RawReference) {
	for _, raw := range refs {
		target := r.resolve(f, declName, raw.TypeName)
		if target == "" {
			continue
		}
		params := make([]string, 0, len(raw.Parameters))
		for _, p := range raw.Parameters {
			params = append(params, simpleTypeText(p))
		}
		t.References = append(t.References, typegraph.Reference{
			Target:     target,
			Kind:       raw.Kind,
			Member:     raw.Member,
			Parameters: params,
			Location:   raw.Location,
		})
	}
}

func (r *Resolver) resolve(f *File, declName, name string) string {
	if name == "" {
		return ""
	}
	switch f.Language {
	case LanguageJava:
		return r.resolveJava(f, declName, name)
	default:
		return r.resolveGo(f, name)
	}
}

func (r *Resolver) resolveGo(f *File, name string) string {
	qualifier, simple, qualified := strings.Cut(name, ".")
	if !qualified {
		return typegraph.FQN(f.Package, name)
	}
	for _, imp := range f.Imports {
		alias := imp.Alias
		if alias == "" {
			alias = r.packageNames[imp.Path]
		}
		if alias == "" {
			alias = ModuleReferenceBase(LanguageGo, imp.Path)
		}
		if alias == qualifier {
			return typegraph.FQN(imp.Path, simple)
		}
	}
	return ""
}

func (r *Resolver) resolveJava(f *File, declName, name string) string {
	if strings.Contains(name, ".") {
		head, rest, _ := strings.Cut(name, ".")
		// Outer.Inner where Outer is imported or local.
		if outer := r.resolveJavaSimple(f, declName, head); outer != "" {
			candidate := outer + "$" + strings.ReplaceAll(rest, ".", "$")
			if r.known[candidate] {
				return candidate
			}
		}
		if r.known[name] {
			return name
		}
		// com.acme.Outer.Inner
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i > 0; i-- {
			candidate := strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "$")
			if r.known[candidate] {
				return candidate
			}
		}
		return name
	}
	if fqn := r.resolveJavaSimple(f, declName, name); fqn != "" {
		return fqn
	}
	return typegraph.FQN(f.Package, name)
}

func (r *Resolver) resolveJavaSimple(f *File, declName, name string) string {
	for _, imp := range f.Imports {
		if !imp.Wildcard && imp.Alias == name {
			return imp.Path
		}
	}
	// Nested types of the enclosing declarations, innermost first.
	scope := declName
	for scope != "" {
		candidate := typegraph.FQN(f.Package, scope+"$"+name)
		if r.known[candidate] {
			return candidate
		}
		idx := strings.LastIndex(scope, "$")
		if idx < 0 {
			break
		}
		scope = scope[:idx]
	}
	if candidate := typegraph.FQN(f.Package, name); r.known[candidate] {
		return candidate
	}
	for _, imp := range f.Imports {
		if !imp.Wildcard {
			continue
		}
		if candidate := imp.Path + "." + name; r.known[candidate] {
			return candidate
		}
	}
	return ""
}
