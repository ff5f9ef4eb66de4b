package analyzer

import (
	"fmt"
	"path/filepath"

	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/parser"
	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// nameIndex resolves a name to declarations, nearest scope first.
type nameIndex struct {
	byFile map[string]map[string][]symbol.Symbol
	byDir  map[string]map[string][]symbol.Symbol
	all    map[string][]symbol.Symbol
}

func newNameIndex() *nameIndex {
	return &nameIndex{
		byFile: make(map[string]map[string][]symbol.Symbol),
		byDir:  make(map[string]map[string][]symbol.Symbol),
		all:    make(map[string][]symbol.Symbol),
	}
}

func (ix *nameIndex) add(path, name string, sym symbol.Symbol) {
	dir := filepath.Dir(path)
	if ix.byFile[path] == nil {
		ix.byFile[path] = make(map[string][]symbol.Symbol)
	}
	if ix.byDir[dir] == nil {
		ix.byDir[dir] = make(map[string][]symbol.Symbol)
	}
	ix.byFile[path][name] = append(ix.byFile[path][name], sym)
	ix.byDir[dir][name] = append(ix.byDir[dir][name], sym)
	ix.all[name] = append(ix.all[name], sym)
}

func (ix *nameIndex) resolve(path, name string) (symbol.Symbol, bool) {
	if syms := ix.byFile[path][name]; len(syms) > 0 {
		return syms[0], true
	}
	if syms := ix.byDir[filepath.Dir(path)][name]; len(syms) > 0 {
		return syms[0], true
	}
	if syms := ix.all[name]; len(syms) > 0 {
		return syms[0], true
	}
	return symbol.None, false
}

type declKey struct {
	container string
	name      string
}

// link turns parsed files into a table and a report. Files must be sorted by
// path so symbol resolution is deterministic.
func (a *Analyzer) link(root string, files []*parser.File) (*table.Table, *diagnostics.Report) {
	report := diagnostics.NewReport()
	builder := table.NewBuilder(root)
	index := newNameIndex()
	broken := false

	for _, file := range files {
		fileSym := a.interner.Intern(fileKey(file.Path))
		for _, se := range file.SyntaxErrors {
			report.Add(fileSym, file.Path, diagnostics.Error(protocolRange(se.Span), se.Message))
			broken = true
		}

		seen := make(map[declKey]int)
		for _, decl := range file.Declarations {
			if decl.Name == "_" {
				continue
			}
			k := declKey{container: decl.Container, name: decl.Name}
			ordinal := seen[k]
			seen[k]++
			if ordinal > 0 && !allowsRedeclaration(file.Language, decl) {
				report.Add(fileSym, file.Path, diagnostics.Warning(
					protocolRange(decl.NameSpan),
					fmt.Sprintf("%s %q is declared more than once", decl.Kind, qualified(decl)),
				))
			}

			sym := a.interner.Intern(declarationKey(file.Path, decl, ordinal))
			builder.AddDefinition(table.Definition{
				Symbol:    sym,
				Name:      decl.Name,
				Kind:      decl.Kind,
				Container: decl.Container,
				Location:  table.Location{File: file.Path, Range: tableRange(decl.Span)},
				NameRange: tableRange(decl.NameSpan),
			})
			index.add(file.Path, decl.Name, sym)
		}
	}

	if broken {
		return nil, report
	}

	for _, file := range files {
		for _, id := range file.Identifiers {
			if sym, ok := index.resolve(file.Path, id.Name); ok {
				builder.AddReference(sym, file.Path, tableRange(id.Span))
			}
		}
	}
	return builder.Build(), report
}

func allowsRedeclaration(language string, decl parser.Declaration) bool {
	return language == "go" && decl.Name == "init" && decl.Container == "" && decl.Kind == symbol.KindFunction
}

func qualified(decl parser.Declaration) string {
	if decl.Container == "" {
		return decl.Name
	}
	return decl.Container + "." + decl.Name
}

func fileKey(path string) string {
	return "file\x00" + path
}

// declarationKey identifies a declaration across passes: edits that move a
// declaration keep its symbol as long as its name, container and ordinal hold.
func declarationKey(path string, decl parser.Declaration, ordinal int) string {
	return fmt.Sprintf("decl\x00%s\x00%s\x00%s\x00%d", path, decl.Container, decl.Name, ordinal)
}

func tableRange(s parser.Span) table.Range {
	return table.Range{
		Start: table.Position{Line: s.Start.Line, Column: s.Start.Column},
		End:   table.Position{Line: s.End.Line, Column: s.End.Column},
	}
}

func protocolRange(s parser.Span) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: s.Start.Line, Character: s.Start.Column},
		End:   protocol.Position{Line: s.End.Line, Character: s.End.Column},
	}
}
