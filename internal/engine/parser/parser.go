package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"modulith/internal/core/errors"
)

type Extractor interface {
	Language() string
	Extract(node *sitter.Node, source []byte, filePath string) (*File, error)
}

// Parser parses the files of one language. It is safe for concurrent use.
type Parser struct {
	spec      LanguageSpec
	pool      *ParserPool
	extractor Extractor
}

func NewParser(language string) (*Parser, error) {
	spec, err := LookupLanguage(language)
	if err != nil {
		return nil, err
	}
	grammar, err := loadGrammar(language)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load grammar")
	}
	extractor, _ := defaultExtractor(language)
	return &Parser{
		spec:      spec,
		pool:      NewParserPool(grammar),
		extractor: extractor,
	}, nil
}

// WithExtractor replaces the default extractor, e.g. to change the Java
// annotation sets.
func (p *Parser) WithExtractor(e Extractor) *Parser {
	if e != nil && e.Language() == p.spec.ID {
		p.extractor = e
	}
	return p
}

func (p *Parser) Language() string {
	return p.spec.ID
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	file, err := p.extractor.Extract(tree.RootNode(), content, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "extraction failed"), errors.CtxPath, path)
	}
	return file, nil
}

func (p *Parser) IsSupportedPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range p.spec.Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func (p *Parser) IsTestFile(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range p.spec.TestFileSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
