package output

import (
	"encoding/json"
	"path/filepath"

	"modulith/internal/engine/model"
	"modulith/internal/engine/verify"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
	srcRoot      = "%SRCROOT%"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

type sarifRuleInfo struct {
	id, name, description, level string
}

var sarifRules = map[verify.Kind]sarifRuleInfo{
	verify.KindInternalAccess: {
		id: "MOD001", name: "InternalAccess", level: "error",
		description: "A type outside a module references one of its internal types.",
	},
	verify.KindDisallowedDependency: {
		id: "MOD002", name: "DisallowedDependency", level: "error",
		description: "A module depends on a module missing from its allowed dependencies.",
	},
	verify.KindCycle: {
		id: "MOD003", name: "ModuleCycle", level: "error",
		description: "Modules depend on each other in a cycle.",
	},
	verify.KindAmbiguousModuleName: {
		id: "MOD004", name: "AmbiguousModuleName", level: "warning",
		description: "Two modules share the same name.",
	},
}

// GenerateSARIF builds a SARIF v2.1.0 document from verification results.
// Results point at the source file of the first implicated type when the
// type graph knows it, relative to projectRoot; absolute paths are never
// included so that reports are safe to share.
func GenerateSARIF(m *model.Model, vs verify.Violations, projectRoot, toolVersion string) ([]byte, error) {
	results := make([]sarifResult, 0, len(vs))
	for _, v := range vs {
		info := sarifRules[v.Kind]
		result := sarifResult{
			RuleID:  info.id,
			Level:   info.level,
			Message: sarifMessage{Text: v.Message},
		}
		if loc, ok := violationLocation(m, v, projectRoot); ok {
			result.Locations = []sarifLocation{loc}
		}
		results = append(results, result)
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "modulith",
						Version: toolVersion,
						Rules:   buildSARIFRules(vs),
					},
				},
				Results: results,
			},
		},
	}
	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given
// violations, in reporting order.
func buildSARIFRules(vs verify.Violations) []sarifRule {
	counts := vs.CountByKind()
	rules := make([]sarifRule, 0, len(counts))
	for _, kind := range verify.Kinds() {
		if counts[kind] == 0 {
			continue
		}
		info := sarifRules[kind]
		rules = append(rules, sarifRule{
			ID:               info.id,
			Name:             info.name,
			ShortDescription: sarifMessage{Text: info.description},
			DefaultConfig:    sarifRuleDefaultConfig{Level: info.level},
		})
	}
	return rules
}

// violationLocation resolves the first implicated type with a known file.
// Without one, the first module's base package serves as a synthetic URI.
func violationLocation(m *model.Model, v verify.Violation, projectRoot string) (sarifLocation, bool) {
	if m != nil {
		for _, name := range v.Types {
			t, ok := m.Graph().Lookup(name)
			if !ok || t.Location.File == "" {
				continue
			}
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, t.Location.File),
						URIBaseID: srcRoot,
					},
				},
			}
			if t.Location.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{
					StartLine:   t.Location.Line,
					StartColumn: t.Location.Column,
				}
			}
			return loc, true
		}
		for _, name := range v.Modules {
			if mod, ok := m.ModuleByName(name); ok {
				return sarifLocation{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: mod.BasePackage, URIBaseID: srcRoot},
					},
				}, true
			}
		}
	}
	return sarifLocation{}, false
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. Relative paths are returned with forward slashes.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(projectRoot, filePath); err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
