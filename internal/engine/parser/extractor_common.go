package parser

import (
	"strings"
)

func normalizeRefName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\t", "")
	value = strings.ReplaceAll(value, " ", "")
	return value
}

func appendUnique(values []string, seen map[string]bool, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return values
	}
	if seen[value] {
		return values
	}
	seen[value] = true
	return append(values, value)
}

// ModuleReferenceBase returns the identifier a source file uses to refer to
// an imported package when no alias is given.
func ModuleReferenceBase(language, module string) string {
	if module == "" {
		return ""
	}

	switch language {
	case LanguageGo:
		parts := strings.Split(module, "/")
		base := parts[len(parts)-1]
		// Major version suffixes (example.com/lib/v2) are not part of the name.
		if len(parts) > 1 && len(base) > 1 && base[0] == 'v' && strings.Trim(base[1:], "0123456789") == "" {
			base = parts[len(parts)-2]
		}
		return strings.TrimPrefix(base, "go-")
	case LanguageJava:
		parts := strings.Split(module, ".")
		return parts[len(parts)-1]
	}
	return module
}

// hasDirective reports whether one of the comment lines carries directive,
// written as //modulith:<directive>.
func hasDirective(comments []string, directive string) bool {
	want := "//modulith:" + directive
	for _, line := range comments {
		line = strings.TrimSpace(line)
		if line == want || strings.HasPrefix(line, want+" ") {
			return true
		}
	}
	return false
}

// simpleTypeText renders a written type for messages: pointer, slice and
// generic decorations are dropped.
func simpleTypeText(text string) string {
	text = normalizeRefName(text)
	text = strings.TrimLeft(text, "*[]&.")
	if idx := strings.IndexAny(text, "[<"); idx > 0 {
		text = text[:idx]
	}
	return text
}
