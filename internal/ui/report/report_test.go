package report

import (
	"bytes"
	"testing"
	"time"

	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/symbol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func rangeAt(line, char uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: char},
		End:   protocol.Position{Line: line, Character: char + 1},
	}
}

func TestWriteCheckGroupsByFile(t *testing.T) {
	rep := diagnostics.NewReport()
	rep.Add(symbol.New(), "/proj/b.go", diagnostics.Warning(rangeAt(3, 0), "unused declaration"))
	rep.Add(symbol.New(), "/proj/a.go",
		diagnostics.Error(rangeAt(9, 4), "syntax error"),
		diagnostics.Error(rangeAt(1, 2), "missing brace"),
	)

	var buf bytes.Buffer
	summary, err := WriteCheck(&buf, "/proj", nil, rep)
	require.NoError(t, err)

	assert.Equal(t, Summary{Files: 2, Errors: 2, Warnings: 1}, summary)
	out := buf.String()
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "2:3")
	assert.Contains(t, out, "no symbol table committed")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("missing brace")), bytes.Index(buf.Bytes(), []byte("syntax error")))
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a.go")), bytes.Index(buf.Bytes(), []byte("b.go")))
}

func TestWriteCheckClean(t *testing.T) {
	var buf bytes.Buffer
	summary, err := WriteCheck(&buf, "/proj", nil, diagnostics.NewReport())
	require.NoError(t, err)
	assert.Zero(t, summary.Errors)
	assert.Contains(t, buf.String(), "no problems")
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, nil))
	assert.Contains(t, buf.String(), "no passes recorded")

	buf.Reset()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteHistory(&buf, []ports.PassRecord{
		{PassID: "b", ProjectRoot: "/proj", StartedAt: started, Duration: 42 * time.Millisecond, Committed: true, SymbolCount: 7},
		{PassID: "a", ProjectRoot: "/proj", StartedAt: started.Add(-time.Minute), Error: "walk failed"},
	}))
	out := buf.String()
	assert.Contains(t, out, "2026-03-01 12:00:00")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "42ms")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "walk failed")
}
