// Package output renders a module model as diagrams and module canvases.
package output

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"modulith/internal/core/errors"
	"modulith/internal/engine/model"
	"modulith/internal/engine/typegraph"
	"modulith/internal/engine/verify"
	"modulith/internal/shared/util"
)

const DefaultOutputFolder = "docs/modulith"

type DiagramStyle string

const (
	StyleUML DiagramStyle = "uml"
	StyleC4  DiagramStyle = "c4"
)

// Format names accepted by WriteFormats.
const (
	FormatPlantUML = "plantuml"
	FormatMermaid  = "mermaid"
	FormatDOT      = "dot"
	FormatCanvas   = "canvas"
	FormatTSV      = "tsv"
)

type Options struct {
	// DependencyTypes limits rendered edges to the given tags. Empty renders
	// every tag.
	DependencyTypes []model.DependencyType
	// Modules filters the modules shown. Nil shows every module.
	Modules     func(*model.Module) bool
	Color       func(*model.Module) string
	DisplayName func(*model.Module) string
	Exclude     verify.Exclusion
	// OutputFolder defaults to DefaultOutputFolder.
	OutputFolder string
	Style        DiagramStyle
}

func DefaultOptions() Options {
	return Options{OutputFolder: DefaultOutputFolder, Style: StyleUML}
}

// edge is one rendered module dependency with its filtered tags.
type edge struct {
	dep   model.Dependency
	types []model.DependencyType
	cycle bool
}

type Documenter struct {
	model   *model.Model
	opts    Options
	names   *typegraph.FormatCache
	modules []*model.Module
	edges   []edge
}

func NewDocumenter(m *model.Model, opts Options) *Documenter {
	if opts.OutputFolder == "" {
		opts.OutputFolder = DefaultOutputFolder
	}
	if opts.Style == "" {
		opts.Style = StyleUML
	}
	d := &Documenter{model: m, opts: opts, names: typegraph.NewFormatCache(0)}
	d.collect()
	return d
}

func (d *Documenter) collect() {
	shown := make(map[*model.Module]bool)
	for _, mod := range d.model.Modules() {
		if d.opts.Exclude.ExcludesModule(mod) {
			continue
		}
		if d.opts.Modules != nil && !d.opts.Modules(mod) {
			continue
		}
		shown[mod] = true
		d.modules = append(d.modules, mod)
	}

	cycleEdges := make(map[[2]string]bool)
	cycles := verify.New(verify.Options{}).Verify(d.model, d.opts.Exclude).Filter(verify.KindCycle)
	for _, v := range cycles {
		for i, from := range v.Modules {
			cycleEdges[[2]string{from, v.Modules[(i+1)%len(v.Modules)]}] = true
		}
	}

	for _, dep := range d.model.Dependencies() {
		if !shown[dep.Source] || !shown[dep.Target] {
			continue
		}
		types := d.filterTypes(dep.Types)
		if len(types) == 0 {
			continue
		}
		d.edges = append(d.edges, edge{
			dep:   dep,
			types: types,
			cycle: cycleEdges[[2]string{dep.Source.Name, dep.Target.Name}],
		})
	}
}

func (d *Documenter) filterTypes(types []model.DependencyType) []model.DependencyType {
	if len(d.opts.DependencyTypes) == 0 {
		return types
	}
	out := make([]model.DependencyType, 0, len(types))
	for _, t := range types {
		for _, want := range d.opts.DependencyTypes {
			if t == want {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func (d *Documenter) Modules() []*model.Module {
	return append([]*model.Module(nil), d.modules...)
}

func (d *Documenter) displayName(mod *model.Module) string {
	if d.opts.DisplayName != nil {
		if name := d.opts.DisplayName(mod); name != "" {
			return name
		}
	}
	if mod.DisplayName != "" {
		return mod.DisplayName
	}
	return mod.Name
}

func (d *Documenter) color(mod *model.Module) string {
	if d.opts.Color == nil {
		return ""
	}
	return d.opts.Color(mod)
}

// edgesOf returns the edges touching mod, outgoing first.
func (d *Documenter) edgesOf(mod *model.Module) []edge {
	var out, in []edge
	for _, e := range d.edges {
		switch {
		case e.dep.Source == mod:
			out = append(out, e)
		case e.dep.Target == mod:
			in = append(in, e)
		}
	}
	return append(out, in...)
}

func edgeLabel(types []model.DependencyType) string {
	labels := make([]string, 0, len(types))
	for _, t := range types {
		switch t {
		case model.DependencyUsesComponent:
			labels = append(labels, "uses")
		case model.DependencyEventListener:
			labels = append(labels, "listens to")
		default:
			labels = append(labels, "depends on")
		}
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

func (d *Documenter) WriteModulesAsPlantUML() (string, error) {
	return d.write("components.puml", d.ModulesAsPlantUML())
}

func (d *Documenter) WriteModuleAsPlantUML(mod *model.Module) (string, error) {
	return d.write("module-"+fileSafe(mod.Name)+".puml", d.ModuleAsPlantUML(mod))
}

// WriteModuleCanvases writes one Markdown canvas per shown module and
// returns the written paths.
func (d *Documenter) WriteModuleCanvases() ([]string, error) {
	paths := make([]string, 0, len(d.modules))
	for _, mod := range d.modules {
		path, err := d.write("module-"+fileSafe(mod.Name)+".md", d.ModuleCanvas(mod))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFormats renders every requested format into the output folder.
func (d *Documenter) WriteFormats(formats []string) ([]string, error) {
	var written []string
	for _, format := range formats {
		switch strings.ToLower(strings.TrimSpace(format)) {
		case FormatPlantUML:
			path, err := d.WriteModulesAsPlantUML()
			if err != nil {
				return written, err
			}
			written = append(written, path)
			for _, mod := range d.modules {
				path, err := d.WriteModuleAsPlantUML(mod)
				if err != nil {
					return written, err
				}
				written = append(written, path)
			}
		case FormatMermaid:
			path, err := d.write("components.mmd", d.Mermaid())
			if err != nil {
				return written, err
			}
			written = append(written, path)
		case FormatDOT:
			path, err := d.write("components.dot", d.DOT())
			if err != nil {
				return written, err
			}
			written = append(written, path)
		case FormatCanvas:
			paths, err := d.WriteModuleCanvases()
			written = append(written, paths...)
			if err != nil {
				return written, err
			}
		case FormatTSV:
			path, err := d.write("dependencies.tsv", d.TSV())
			if err != nil {
				return written, err
			}
			written = append(written, path)
		default:
			return written, errors.Newf(errors.CodeValidationError, "unsupported documentation format %q", format)
		}
	}
	return written, nil
}

func (d *Documenter) write(name, content string) (string, error) {
	path := filepath.Join(d.opts.OutputFolder, name)
	if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write documentation"), errors.CtxPath, path)
	}
	return path, nil
}

func fileSafe(name string) string {
	return strings.ToLower(sanitizeID(name))
}

func sanitizeID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		return "m_" + out
	}
	return out
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// moduleIDs assigns unique diagram identifiers, suffixing repeated names.
func moduleIDs(mods []*model.Module) map[*model.Module]string {
	ids := make(map[*model.Module]string, len(mods))
	used := make(map[string]int, len(mods))
	for _, mod := range mods {
		base := sanitizeID(mod.Name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[mod] = base
			continue
		}
		ids[mod] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}
