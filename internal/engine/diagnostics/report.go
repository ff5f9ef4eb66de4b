// Package diagnostics holds the per-pass diagnostics report.
package diagnostics

import (
	"symbolicator/internal/engine/symbol"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Source is stamped on every diagnostic the analyzer produces.
const Source = "symbolicator"

// Report maps symbols to the diagnostics attached to them for one pass.
// Iteration follows symbol order. A nil *Report behaves as an empty report.
type Report struct {
	entries map[symbol.Symbol][]protocol.Diagnostic
	paths   map[symbol.Symbol]string
}

func NewReport() *Report {
	return &Report{
		entries: make(map[symbol.Symbol][]protocol.Diagnostic),
		paths:   make(map[symbol.Symbol]string),
	}
}

// Add appends diagnostics for sym, recording path as the file they belong to.
func (r *Report) Add(sym symbol.Symbol, path string, diags ...protocol.Diagnostic) {
	if !sym.IsValid() || len(diags) == 0 {
		return
	}
	r.entries[sym] = append(r.entries[sym], diags...)
	if path != "" {
		r.paths[sym] = path
	}
}

func (r *Report) Symbols() []symbol.Symbol {
	if r == nil {
		return nil
	}
	out := make([]symbol.Symbol, 0, len(r.entries))
	for sym := range r.entries {
		out = append(out, sym)
	}
	symbol.Sort(out)
	return out
}

func (r *Report) Diagnostics(sym symbol.Symbol) []protocol.Diagnostic {
	if r == nil {
		return nil
	}
	diags := r.entries[sym]
	out := make([]protocol.Diagnostic, len(diags))
	copy(out, diags)
	return out
}

func (r *Report) Path(sym symbol.Symbol) (string, bool) {
	if r == nil {
		return "", false
	}
	path, ok := r.paths[sym]
	return path, ok
}

// Each visits every entry in symbol order.
func (r *Report) Each(fn func(sym symbol.Symbol, path string, diags []protocol.Diagnostic)) {
	for _, sym := range r.Symbols() {
		fn(sym, r.paths[sym], r.Diagnostics(sym))
	}
}

// Len is the number of symbols carrying diagnostics.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Count is the total number of diagnostics.
func (r *Report) Count() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, diags := range r.entries {
		total += len(diags)
	}
	return total
}

func (r *Report) CountSeverity(severity protocol.DiagnosticSeverity) int {
	if r == nil {
		return 0
	}
	total := 0
	for _, diags := range r.entries {
		for _, d := range diags {
			if d.Severity != nil && *d.Severity == severity {
				total++
			}
		}
	}
	return total
}

func (r *Report) HasErrors() bool {
	return r.CountSeverity(protocol.DiagnosticSeverityError) > 0
}

func Error(rng protocol.Range, message string) protocol.Diagnostic {
	return newDiagnostic(rng, protocol.DiagnosticSeverityError, message)
}

func Warning(rng protocol.Range, message string) protocol.Diagnostic {
	return newDiagnostic(rng, protocol.DiagnosticSeverityWarning, message)
}

func newDiagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := Source
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}
