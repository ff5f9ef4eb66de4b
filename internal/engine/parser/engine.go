package parser

import (
	"unicode/utf8"

	"symbolicator/internal/engine/symbol"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

type scope struct {
	name string
	kind symbol.Kind
}

// ExtractionContext carries shared state/helpers used by all extractors.
type ExtractionContext struct {
	Source []byte
	File   *File

	engine   *ExtractorEngine
	scopes   []scope
	declared map[uint]bool // start bytes of declaration name nodes
}

func newExtractionContext(engine *ExtractorEngine, source []byte, file *File) *ExtractionContext {
	return &ExtractionContext{
		Source:   source,
		File:     file,
		engine:   engine,
		declared: make(map[uint]bool),
	}
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
		return
	}
	e.walkChildren(ctx, node)
}

func (e *ExtractorEngine) walkChildren(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) WalkChildren(node *sitter.Node) {
	c.engine.walkChildren(c, node)
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Span(node *sitter.Node) Span {
	start, end := node.StartPosition(), node.EndPosition()
	return Span{
		Start: c.point(uint(start.Row), uint(start.Column), node.StartByte()),
		End:   c.point(uint(end.Row), uint(end.Column), node.EndByte()),
	}
}

// point converts a tree-sitter byte column into a UTF-16 column.
func (c *ExtractionContext) point(row, byteColumn, offset uint) Point {
	if offset > uint(len(c.Source)) {
		offset = uint(len(c.Source))
	}
	lineStart := uint(0)
	if byteColumn <= offset {
		lineStart = offset - byteColumn
	}
	return Point{Line: uint32(row), Column: utf16Len(c.Source[lineStart:offset])}
}

func utf16Len(b []byte) uint32 {
	var n uint32
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}

func (c *ExtractionContext) container() scope {
	if len(c.scopes) == 0 {
		return scope{}
	}
	return c.scopes[len(c.scopes)-1]
}

func (c *ExtractionContext) withScope(s scope, fn func()) {
	c.scopes = append(c.scopes, s)
	defer func() { c.scopes = c.scopes[:len(c.scopes)-1] }()
	fn()
}

func (c *ExtractionContext) declare(decl Declaration, nameNode *sitter.Node) {
	c.declared[nameNode.StartByte()] = true
	c.File.Declarations = append(c.File.Declarations, decl)
}

func (c *ExtractionContext) isDeclarationName(node *sitter.Node) bool {
	return c.declared[node.StartByte()]
}

func firstDescendant(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstDescendant(node.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}
