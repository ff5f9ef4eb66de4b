package parser

import (
	"time"

	"symbolicator/internal/engine/symbol"
)

// Point is a 0-based line and UTF-16 column, the unit editors count in.
type Point struct {
	Line   uint32
	Column uint32
}

type Span struct {
	Start Point
	End   Point
}

type File struct {
	Path         string
	Language     string
	Declarations []Declaration
	Identifiers  []Identifier
	SyntaxErrors []SyntaxError
	ParsedAt     time.Time
}

func (f *File) HasSyntaxErrors() bool {
	return f != nil && len(f.SyntaxErrors) > 0
}

type Declaration struct {
	Name      string
	Kind      symbol.Kind
	Container string // enclosing declaration name, "" at top level
	Span      Span   // whole declaration
	NameSpan  Span
}

// Identifier is a name use that is not itself a declaration name.
type Identifier struct {
	Name string
	Span Span
}

type SyntaxError struct {
	Span    Span
	Message string
}
