package parser

import (
	"fmt"
	"strings"
	"time"

	"symbolicator/internal/engine/symbol"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const maxErrorSnippet = 32

// Extractor turns a syntax tree into declarations, identifier uses and syntax
// errors, driven entirely by a LanguageSpec.
type Extractor struct {
	language string
	engine   *ExtractorEngine
}

func NewExtractor(spec LanguageSpec) *Extractor {
	handlers := make(map[string]NodeHandler, len(spec.Declarations)+len(spec.Identifiers))
	for kind, rule := range spec.Declarations {
		handlers[kind] = declarationHandler(rule)
	}
	for _, kind := range spec.Identifiers {
		handlers[kind] = handleIdentifier
	}
	return &Extractor{language: spec.Name, engine: NewExtractorEngine(handlers)}
}

func (x *Extractor) Extract(root *sitter.Node, source []byte, path string) *File {
	file := &File{
		Path:     path,
		Language: x.language,
		ParsedAt: time.Now(),
	}
	ctx := newExtractionContext(x.engine, source, file)
	x.engine.Walk(ctx, root)
	if root != nil && root.HasError() {
		collectSyntaxErrors(ctx, root)
	}
	return file
}

func declarationHandler(rule DeclarationRule) NodeHandler {
	return func(ctx *ExtractionContext, node *sitter.Node) bool {
		nameNode := node.ChildByFieldName(rule.NameField)

		if rule.ScopeOnly {
			name := ""
			if nameNode != nil {
				if t := firstDescendant(nameNode, "type_identifier"); t != nil {
					name = ctx.Text(t)
				} else {
					name = ctx.Text(nameNode)
				}
			}
			ctx.withScope(scope{name: name, kind: symbol.KindType}, func() {
				ctx.WalkChildren(node)
			})
			return true
		}

		names := declarationNames(node, nameNode, rule.MultiName)
		if len(names) == 0 {
			// Destructuring patterns and anonymous declarations: only uses.
			return false
		}

		enclosing := ctx.container()
		containerName := enclosing.name
		if rule.ReceiverField != "" {
			if recv := node.ChildByFieldName(rule.ReceiverField); recv != nil {
				if t := firstDescendant(recv, "type_identifier"); t != nil {
					containerName = ctx.Text(t)
				}
			}
		}
		kind := promote(rule.Kind, enclosing.kind, enclosing.name != "")

		span := ctx.Span(node)
		for _, n := range names {
			ctx.declare(Declaration{
				Name:      ctx.Text(n),
				Kind:      kind,
				Container: containerName,
				Span:      span,
				NameSpan:  ctx.Span(n),
			}, n)
		}

		if !rule.Scope {
			return false
		}
		ctx.withScope(scope{name: ctx.Text(names[0]), kind: kind}, func() {
			ctx.WalkChildren(node)
		})
		return true
	}
}

func declarationNames(node, nameNode *sitter.Node, multi bool) []*sitter.Node {
	if nameNode == nil || !isNameKind(nameNode.Kind()) {
		return nil
	}
	if !multi {
		return []*sitter.Node{nameNode}
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == nameNode.Kind() {
			out = append(out, child)
		}
	}
	return out
}

func isNameKind(kind string) bool {
	return strings.HasSuffix(kind, "identifier")
}

// promote refines function and variable kinds declared directly inside a
// type-like container into methods and fields.
func promote(kind, containerKind symbol.Kind, inContainer bool) symbol.Kind {
	if !inContainer {
		return kind
	}
	switch containerKind {
	case symbol.KindClass, symbol.KindType, symbol.KindInterface:
	default:
		return kind
	}
	switch kind {
	case symbol.KindFunction:
		return symbol.KindMethod
	case symbol.KindVariable:
		return symbol.KindField
	}
	return kind
}

func handleIdentifier(ctx *ExtractionContext, node *sitter.Node) bool {
	if ctx.isDeclarationName(node) {
		return true
	}
	ctx.File.Identifiers = append(ctx.File.Identifiers, Identifier{
		Name: ctx.Text(node),
		Span: ctx.Span(node),
	})
	return true
}

func collectSyntaxErrors(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if node.IsMissing() {
		ctx.File.SyntaxErrors = append(ctx.File.SyntaxErrors, SyntaxError{
			Span:    ctx.Span(node),
			Message: fmt.Sprintf("missing %s", node.Kind()),
		})
		return
	}
	if node.IsError() {
		ctx.File.SyntaxErrors = append(ctx.File.SyntaxErrors, SyntaxError{
			Span:    ctx.Span(node),
			Message: unexpectedMessage(ctx.Text(node)),
		})
		return
	}
	if !node.HasError() {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		collectSyntaxErrors(ctx, node.Child(i))
	}
}

func unexpectedMessage(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "syntax error"
	}
	if len(text) > maxErrorSnippet {
		text = text[:maxErrorSnippet] + "..."
	}
	return fmt.Sprintf("syntax error near %q", text)
}
