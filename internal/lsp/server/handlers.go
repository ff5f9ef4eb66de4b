package server

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"
	"symbolicator/internal/shared/util"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DefaultCompletionLimit applies when the context carries no limit.
const DefaultCompletionLimit = 100

// OnCompletionRequest completes the identifier left of the cursor from the
// committed table of the project owning the document. A document without an
// open buffer yields an empty list and a warning.
func OnCompletionRequest(hctx *Context, req *Request) (*protocol.CompletionList, error) {
	var params protocol.CompletionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	empty := &protocol.CompletionList{Items: []protocol.CompletionItem{}}
	path := util.URIToPath(params.TextDocument.URI)
	content, ok := hctx.Buffers.Get(path)
	if !ok {
		hctx.logger().Warn("completion requested for a document without an open buffer", "path", path)
		return empty, nil
	}

	project, ok := hctx.Workspace.ProjectFor(path)
	if !ok {
		return empty, nil
	}
	tbl := hctx.Tables.Get(project)

	limit := hctx.CompletionLimit
	if limit <= 0 {
		limit = DefaultCompletionLimit
	}
	prefix := identifierPrefix(content, params.Position)
	defs := tbl.Complete(prefix, limit)

	type labelKind struct {
		label string
		kind  symbol.Kind
	}
	seen := make(map[labelKind]bool, len(defs))
	items := make([]protocol.CompletionItem, 0, len(defs))
	for _, def := range defs {
		key := labelKind{label: def.Name, kind: def.Kind}
		if seen[key] {
			continue
		}
		seen[key] = true

		kind := completionKind(def.Kind)
		detail := def.Kind.String()
		if def.Container != "" {
			detail = def.Container + " " + detail
		}
		items = append(items, protocol.CompletionItem{
			Label:  def.Name,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return &protocol.CompletionList{
		IsIncomplete: len(defs) >= limit,
		Items:        items,
	}, nil
}

// OnGotoDefinitionRequest resolves the symbol under the cursor in tbl. No
// snapshot or no symbol gives an empty result.
func OnGotoDefinitionRequest(hctx *Context, req *Request, tbl *table.Table) ([]protocol.Location, error) {
	var params protocol.DefinitionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	locations := []protocol.Location{}
	sym, ok := symbolAt(tbl, params.TextDocumentPositionParams)
	if !ok {
		return locations, nil
	}
	def, ok := tbl.Definition(sym)
	if !ok {
		return locations, nil
	}
	return append(locations, protocol.Location{
		URI:   util.PathToURI(def.Location.File),
		Range: protocolRange(def.NameRange),
	}), nil
}

// OnReferencesRequest lists every occurrence of the symbol under the cursor,
// ordered by file then position.
func OnReferencesRequest(hctx *Context, req *Request, tbl *table.Table) ([]protocol.Location, error) {
	var params protocol.ReferenceParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	locations := []protocol.Location{}
	sym, ok := symbolAt(tbl, params.TextDocumentPositionParams)
	if !ok {
		return locations, nil
	}
	for _, loc := range tbl.References(sym, params.Context.IncludeDeclaration) {
		locations = append(locations, protocol.Location{
			URI:   util.PathToURI(loc.File),
			Range: protocolRange(loc.Range),
		})
	}
	return locations, nil
}

func symbolAt(tbl *table.Table, pos protocol.TextDocumentPositionParams) (symbol.Symbol, bool) {
	if tbl == nil {
		return symbol.None, false
	}
	path := util.URIToPath(pos.TextDocument.URI)
	return tbl.SymbolAt(path, table.Position{Line: pos.Position.Line, Column: pos.Position.Character})
}

func protocolRange(r table.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: r.Start.Line, Character: r.Start.Column},
		End:   protocol.Position{Line: r.End.Line, Character: r.End.Column},
	}
}

func completionKind(kind symbol.Kind) protocol.CompletionItemKind {
	switch kind {
	case symbol.KindFunction:
		return protocol.CompletionItemKindFunction
	case symbol.KindMethod:
		return protocol.CompletionItemKindMethod
	case symbol.KindType:
		return protocol.CompletionItemKindStruct
	case symbol.KindClass:
		return protocol.CompletionItemKindClass
	case symbol.KindInterface:
		return protocol.CompletionItemKindInterface
	case symbol.KindConstant:
		return protocol.CompletionItemKindConstant
	case symbol.KindField:
		return protocol.CompletionItemKindField
	case symbol.KindModule:
		return protocol.CompletionItemKindModule
	case symbol.KindFile:
		return protocol.CompletionItemKindFile
	default:
		return protocol.CompletionItemKindVariable
	}
}

// identifierPrefix returns the identifier characters immediately left of pos.
func identifierPrefix(content []byte, pos protocol.Position) string {
	line, ok := lineAt(content, pos.Line)
	if !ok {
		return ""
	}
	end := byteOffset(line, pos.Character)
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRune(line[:start])
		if !isIdentifierRune(r) {
			break
		}
		start -= size
	}
	return string(line[start:end])
}

func isIdentifierRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lineAt returns line n without its terminator.
func lineAt(content []byte, n uint32) ([]byte, bool) {
	text := string(content)
	for i := uint32(0); i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return nil, false
		}
		text = text[idx+1:]
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return []byte(strings.TrimSuffix(text, "\r")), true
}

// byteOffset converts a UTF-16 column into a byte offset within line,
// clamping to the line length.
func byteOffset(line []byte, character uint32) int {
	var units uint32
	offset := 0
	for offset < len(line) && units < character {
		r, size := utf8.DecodeRune(line[offset:])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		offset += size
	}
	return offset
}
