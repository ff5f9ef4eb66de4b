// Package report renders analyzer results and journal entries for the
// terminal.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"

	"github.com/charmbracelet/lipgloss"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E2E8F0")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type fileDiagnostics struct {
	path  string
	diags []protocol.Diagnostic
}

// Summary is what WriteCheck printed.
type Summary struct {
	Files    int
	Errors   int
	Warnings int
	Symbols  int
}

// WriteCheck prints every diagnostic grouped by file, followed by a one-line
// summary. Paths are shown relative to root when possible. tbl may be nil
// when the pass produced no table.
func WriteCheck(w io.Writer, root string, tbl *table.Table, rep *diagnostics.Report) (Summary, error) {
	files := collect(rep)
	summary := Summary{
		Files:    len(files),
		Errors:   rep.CountSeverity(protocol.DiagnosticSeverityError),
		Warnings: rep.CountSeverity(protocol.DiagnosticSeverityWarning),
		Symbols:  tbl.Len(),
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("symbolicator check") + " " + statusStyle.Render(root) + "\n")
	for _, f := range files {
		b.WriteString("\n" + pathStyle.Render(relative(root, f.path)) + "\n")
		for _, d := range f.diags {
			fmt.Fprintf(&b, "  %d:%d %s %s\n",
				d.Range.Start.Line+1, d.Range.Start.Character+1,
				severityLabel(d.Severity), d.Message)
		}
	}

	b.WriteString("\n")
	switch {
	case summary.Errors > 0:
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d error(s), %d warning(s)", summary.Errors, summary.Warnings)))
		if tbl == nil {
			b.WriteString(" " + statusStyle.Render("no symbol table committed"))
		}
	case summary.Warnings > 0:
		b.WriteString(warningStyle.Render(fmt.Sprintf("%d warning(s)", summary.Warnings)))
		b.WriteString(" " + statusStyle.Render(fmt.Sprintf("%d symbols", summary.Symbols)))
	default:
		b.WriteString(successStyle.Render("no problems"))
		b.WriteString(" " + statusStyle.Render(fmt.Sprintf("%d symbols", summary.Symbols)))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return summary, err
}

// WriteHistory prints journal entries as an aligned table, newest first.
func WriteHistory(w io.Writer, records []ports.PassRecord) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, statusStyle.Render("no passes recorded")+"\n")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s  %-9s  %8s  %7s  %5s  %s\n", "STARTED", "RESULT", "DURATION", "SYMBOLS", "DIAGS", "PROJECT")
	for _, rec := range records {
		result := successStyle.Render(fmt.Sprintf("%-9s", "committed"))
		switch {
		case rec.Error != "":
			result = errorStyle.Render(fmt.Sprintf("%-9s", "failed"))
		case !rec.Committed:
			result = warningStyle.Render(fmt.Sprintf("%-9s", "kept"))
		}
		fmt.Fprintf(&b, "%-20s  %s  %8s  %7d  %5d  %s\n",
			rec.StartedAt.UTC().Format(time.DateTime),
			result,
			rec.Duration.Round(time.Millisecond),
			rec.SymbolCount,
			rec.DiagnosticCount,
			rec.ProjectRoot)
		if rec.Error != "" {
			b.WriteString("  " + statusStyle.Render(rec.Error) + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func collect(rep *diagnostics.Report) []fileDiagnostics {
	byPath := make(map[string][]protocol.Diagnostic)
	rep.Each(func(_ symbol.Symbol, path string, diags []protocol.Diagnostic) {
		byPath[path] = append(byPath[path], diags...)
	})

	files := make([]fileDiagnostics, 0, len(byPath))
	for path, diags := range byPath {
		sort.SliceStable(diags, func(i, j int) bool {
			a, b := diags[i].Range.Start, diags[j].Range.Start
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Character < b.Character
		})
		files = append(files, fileDiagnostics{path: path, diags: diags})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func severityLabel(severity *protocol.DiagnosticSeverity) string {
	if severity == nil {
		return statusStyle.Render("info   ")
	}
	switch *severity {
	case protocol.DiagnosticSeverityError:
		return errorStyle.Render("error  ")
	case protocol.DiagnosticSeverityWarning:
		return warningStyle.Render("warning")
	default:
		return statusStyle.Render("info   ")
	}
}
