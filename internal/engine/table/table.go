// Package table holds the immutable symbol table snapshot produced by one
// recomputation pass.
package table

import (
	"sort"
	"strings"
	"time"

	"symbolicator/internal/engine/symbol"
)

// Position is a 0-based line/column pair. Columns count UTF-16 code units.
type Position struct {
	Line   uint32
	Column uint32
}

func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

type Range struct {
	Start Position
	End   Position
}

// Contains reports whether p lies within the range. The end is inclusive so a
// cursor placed right after an identifier still resolves to it.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

type Location struct {
	File  string
	Range Range
}

type Definition struct {
	Symbol    symbol.Symbol
	Name      string
	Kind      symbol.Kind
	Container string
	Location  Location
	NameRange Range
}

// Occurrence is one appearance of a symbol in a file.
type Occurrence struct {
	Symbol      symbol.Symbol
	Range       Range
	Declaration bool
}

type reference struct {
	location    Location
	declaration bool
}

// Table is everything known about one project's symbols as of one pass.
// It is never mutated after Builder.Build returns.
type Table struct {
	root        string
	builtAt     time.Time
	defs        map[symbol.Symbol]Definition
	byName      map[string][]symbol.Symbol
	names       []string
	occurrences map[string][]Occurrence
	refs        map[symbol.Symbol][]reference
}

var empty = &Table{
	defs:        map[symbol.Symbol]Definition{},
	byName:      map[string][]symbol.Symbol{},
	occurrences: map[string][]Occurrence{},
	refs:        map[symbol.Symbol][]reference{},
}

// Empty returns the snapshot served before any pass has committed.
func Empty() *Table {
	return empty
}

func (t *Table) IsEmpty() bool {
	return t == nil || len(t.defs) == 0
}

func (t *Table) Root() string {
	if t == nil {
		return ""
	}
	return t.root
}

func (t *Table) BuiltAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.builtAt
}

// Len is the number of definitions in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.defs)
}

func (t *Table) Files() []string {
	if t == nil {
		return nil
	}
	files := make([]string, 0, len(t.occurrences))
	for file := range t.occurrences {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

func (t *Table) Definition(sym symbol.Symbol) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	def, ok := t.defs[sym]
	return def, ok
}

// Name renders a symbol using this snapshot's definitions.
func (t *Table) Name(sym symbol.Symbol) string {
	if def, ok := t.Definition(sym); ok {
		if def.Container != "" {
			return def.Container + "." + def.Name
		}
		return def.Name
	}
	return ""
}

// Lookup returns every definition with exactly this name, in symbol order.
func (t *Table) Lookup(name string) []Definition {
	if t == nil {
		return nil
	}
	syms := t.byName[name]
	out := make([]Definition, 0, len(syms))
	for _, sym := range syms {
		out = append(out, t.defs[sym])
	}
	return out
}

// SymbolAt resolves the symbol whose occurrence covers pos in file.
func (t *Table) SymbolAt(file string, pos Position) (symbol.Symbol, bool) {
	if t == nil {
		return symbol.None, false
	}
	occs := t.occurrences[file]
	// First occurrence starting after pos; the candidate is the one before it.
	idx := sort.Search(len(occs), func(i int) bool {
		return pos.Before(occs[i].Range.Start)
	})
	if idx == 0 {
		return symbol.None, false
	}
	occ := occs[idx-1]
	if !occ.Range.Contains(pos) {
		return symbol.None, false
	}
	return occ.Symbol, true
}

// References lists every location of sym ordered by file then position.
func (t *Table) References(sym symbol.Symbol, includeDeclaration bool) []Location {
	if t == nil {
		return nil
	}
	refs := t.refs[sym]
	out := make([]Location, 0, len(refs))
	for _, ref := range refs {
		if ref.declaration && !includeDeclaration {
			continue
		}
		out = append(out, ref.location)
	}
	return out
}

// Complete returns definitions whose name starts with prefix, ordered by name
// then symbol, capped at limit when limit > 0.
func (t *Table) Complete(prefix string, limit int) []Definition {
	if t == nil {
		return nil
	}
	start := sort.SearchStrings(t.names, prefix)
	out := make([]Definition, 0)
	for i := start; i < len(t.names); i++ {
		name := t.names[i]
		if !strings.HasPrefix(name, prefix) {
			break
		}
		for _, sym := range t.byName[name] {
			out = append(out, t.defs[sym])
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}
