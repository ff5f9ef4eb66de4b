package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/shared/observability"
	"symbolicator/internal/shared/util"
)

// Parser parses source files of every enabled language. It is safe for
// concurrent use; tree-sitter parsers are pooled per language.
type Parser struct {
	loader     *GrammarLoader
	extractors map[string]*Extractor
	pools      map[string]*ParserPool
	extensions map[string]string
	filenames  map[string]string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extractors: make(map[string]*Extractor),
		pools:      make(map[string]*ParserPool),
		extensions: make(map[string]string),
		filenames:  make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		grammar, ok := loader.Language(lang)
		if !spec.Enabled || !ok {
			continue
		}
		p.extractors[lang] = NewExtractor(spec)
		p.pools[lang] = NewParserPool(grammar)
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		for _, name := range spec.Filenames {
			p.filenames[strings.ToLower(filepath.Base(name))] = lang
		}
	}
	return p
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang := p.GetLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	started := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(started).Seconds())
	}()

	pool := p.pools[lang]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("parse failed: %s", path))
	}
	defer tree.Close()

	root := tree.RootNode()
	return p.extractors[lang].Extract(root, content, path), nil
}

func (p *Parser) GetLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if lang, ok := p.filenames[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.GetLanguage(path) != ""
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}
