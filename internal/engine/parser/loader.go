package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"modulith/internal/core/errors"
)

// LanguageSpec describes one supported source language.
type LanguageSpec struct {
	ID               string
	Extensions       []string
	TestFileSuffixes []string
}

var languageSpecs = map[string]LanguageSpec{
	LanguageGo: {
		ID:               LanguageGo,
		Extensions:       []string{".go"},
		TestFileSuffixes: []string{"_test.go"},
	},
	LanguageJava: {
		ID:               LanguageJava,
		Extensions:       []string{".java"},
		TestFileSuffixes: []string{"Test.java", "Tests.java", "IT.java"},
	},
}

// LookupLanguage returns the spec of a supported language.
func LookupLanguage(id string) (LanguageSpec, error) {
	spec, ok := languageSpecs[id]
	if !ok {
		err := errors.Newf(errors.CodeNotSupported, "language %q is not supported", id)
		return LanguageSpec{}, errors.AddContext(err, errors.CtxLanguage, id)
	}
	return spec, nil
}

func loadGrammar(id string) (*sitter.Language, error) {
	switch id {
	case LanguageGo:
		return sitter.NewLanguage(tree_sitter_go.Language()), nil
	case LanguageJava:
		return sitter.NewLanguage(tree_sitter_java.Language()), nil
	default:
		return nil, fmt.Errorf("language %q is enabled but runtime grammar loading is not implemented", id)
	}
}

func defaultExtractor(id string) (Extractor, bool) {
	switch id {
	case LanguageGo:
		return &GoExtractor{}, true
	case LanguageJava:
		return NewJavaExtractor(), true
	default:
		return nil, false
	}
}
