package table

import (
	"sort"
	"time"

	"symbolicator/internal/engine/symbol"
)

// Builder accumulates definitions and references for one pass. It is not
// safe for concurrent use and must not be reused after Build.
type Builder struct {
	t *Table
}

func NewBuilder(root string) *Builder {
	return &Builder{t: &Table{
		root:        root,
		defs:        make(map[symbol.Symbol]Definition),
		byName:      make(map[string][]symbol.Symbol),
		occurrences: make(map[string][]Occurrence),
		refs:        make(map[symbol.Symbol][]reference),
	}}
}

// AddDefinition records def and its declaration occurrence at NameRange.
// A symbol already defined keeps its first definition.
func (b *Builder) AddDefinition(def Definition) {
	if !def.Symbol.IsValid() {
		return
	}
	if _, exists := b.t.defs[def.Symbol]; exists {
		return
	}
	b.t.defs[def.Symbol] = def
	b.t.byName[def.Name] = append(b.t.byName[def.Name], def.Symbol)
	b.addOccurrence(def.Symbol, def.Location.File, def.NameRange, true)
}

func (b *Builder) AddReference(sym symbol.Symbol, file string, rng Range) {
	if !sym.IsValid() {
		return
	}
	b.addOccurrence(sym, file, rng, false)
}

func (b *Builder) addOccurrence(sym symbol.Symbol, file string, rng Range, declaration bool) {
	b.t.occurrences[file] = append(b.t.occurrences[file], Occurrence{
		Symbol:      sym,
		Range:       rng,
		Declaration: declaration,
	})
	b.t.refs[sym] = append(b.t.refs[sym], reference{
		location:    Location{File: file, Range: rng},
		declaration: declaration,
	})
}

func (b *Builder) Build() *Table {
	t := b.t
	b.t = nil
	t.builtAt = time.Now()

	for file, occs := range t.occurrences {
		sort.SliceStable(occs, func(i, j int) bool {
			return occs[i].Range.Start.Before(occs[j].Range.Start)
		})
		t.occurrences[file] = occs
	}
	for sym, refs := range t.refs {
		sort.SliceStable(refs, func(i, j int) bool {
			if refs[i].location.File != refs[j].location.File {
				return refs[i].location.File < refs[j].location.File
			}
			return refs[i].location.Range.Start.Before(refs[j].location.Range.Start)
		})
		t.refs[sym] = refs
	}

	t.names = make([]string, 0, len(t.byName))
	for name, syms := range t.byName {
		symbol.Sort(syms)
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t
}
