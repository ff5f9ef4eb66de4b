// Package symbol defines the identity handle shared by symbol tables and
// diagnostics reports.
//
// A Symbol carries no text. Names are rendered by whoever produced the
// handle: the analyzer's Interner or a table.Table.
package symbol

import (
	"cmp"
	"slices"
	"sync/atomic"
)

// Symbol is an opaque, non-zero handle for a named program entity.
// Equality, map hashing and ordering all follow the numeric handle value.
type Symbol uint64

// None is the zero handle. It never identifies an entity.
const None Symbol = 0

var lastHandle atomic.Uint64

// New allocates a handle that is unique for the lifetime of the process.
func New() Symbol {
	return Symbol(lastHandle.Add(1))
}

func (s Symbol) IsValid() bool {
	return s != None
}

// Compare returns -1, 0 or +1 following the handle order.
func (s Symbol) Compare(other Symbol) int {
	return cmp.Compare(uint64(s), uint64(other))
}

func (s Symbol) Less(other Symbol) bool {
	return s < other
}

// Handle exposes the raw value for wire formats and logs.
func (s Symbol) Handle() uint64 {
	return uint64(s)
}

// Sort orders symbols in place by handle.
func Sort(symbols []Symbol) {
	slices.Sort(symbols)
}

type Kind int

const (
	KindFile Kind = iota
	KindModule
	KindFunction
	KindMethod
	KindType
	KindClass
	KindInterface
	KindVariable
	KindConstant
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindType:
		return "type"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}
