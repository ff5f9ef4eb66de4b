package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/engine/parser"
	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"
	"symbolicator/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type mapBuffers map[string][]byte

func (m mapBuffers) Get(path string) ([]byte, bool) {
	b, ok := m[path]
	return b, ok
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	loader, err := parser.NewGrammarLoader(nil)
	require.NoError(t, err)
	return New(parser.NewParser(loader), opts...)
}

func sampleProject(t *testing.T) (string, string, string) {
	t.Helper()
	root := t.TempDir()
	a := writeFile(t, root, "a.go", "package p\n\nfunc Hello() string {\n\treturn helper()\n}\n")
	b := writeFile(t, root, "b.go", "package p\n\nfunc helper() string { return \"x\" }\n")
	writeFile(t, root, "sub/c.go", "package sub\n\nfunc Use() { Hello() }\n")
	return root, a, b
}

func TestComputeSymbolsBuildsTable(t *testing.T) {
	root, a, b := sampleProject(t)
	an := newTestAnalyzer(t)

	tbl, report, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Zero(t, report.Count())
	assert.Equal(t, root, tbl.Root())
	assert.Equal(t, 3, tbl.Len())

	helpers := tbl.Lookup("helper")
	require.Len(t, helpers, 1)
	assert.Equal(t, b, helpers[0].Location.File)

	sym, ok := tbl.SymbolAt(a, table.Position{Line: 3, Column: 9})
	require.True(t, ok)
	assert.Equal(t, helpers[0].Symbol, sym)

	refs := tbl.References(sym, true)
	require.Len(t, refs, 2)
	assert.Equal(t, a, refs[0].File)
	assert.Equal(t, b, refs[1].File)

	hello := tbl.Lookup("Hello")
	require.Len(t, hello, 1)
	uses := tbl.References(hello[0].Symbol, false)
	require.Len(t, uses, 1)
	assert.Equal(t, filepath.Join(root, "sub", "c.go"), uses[0].File)
}

func TestSequentialParsingMatchesParallel(t *testing.T) {
	root, _, _ := sampleProject(t)

	serial, _, err := newTestAnalyzer(t, WithConcurrency(1)).ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	parallel, _, err := newTestAnalyzer(t, WithConcurrency(8)).ComputeSymbols(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, serial.Len(), parallel.Len())
	assert.Equal(t, 1, newTestAnalyzer(t, WithConcurrency(1)).concurrency)
	assert.Positive(t, newTestAnalyzer(t, WithConcurrency(0)).concurrency, "non-positive keeps the default")
	for _, name := range []string{"Hello", "helper", "Use"} {
		assert.Len(t, parallel.Lookup(name), len(serial.Lookup(name)), name)
	}
}

func TestComputeSymbolsKeepsSymbolsStableAcrossPasses(t *testing.T) {
	root, _, b := sampleProject(t)
	an := newTestAnalyzer(t)

	first, _, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)

	writeFile(t, root, "b.go", "package p\n\n// moved down\n\nfunc helper() string { return \"y\" }\n")
	second, _, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)

	before := first.Lookup("helper")[0]
	after := second.Lookup("helper")[0]
	assert.Equal(t, before.Symbol, after.Symbol)
	assert.Equal(t, b, after.Location.File)
	assert.Equal(t, uint32(4), after.NameRange.Start.Line)
}

func TestComputeSymbolsSyntaxErrorReturnsNoTable(t *testing.T) {
	root, _, _ := sampleProject(t)
	broken := writeFile(t, root, "broken.go", "package p\n\nfunc Broken( {\n")
	an := newTestAnalyzer(t)

	tbl, report, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	assert.Nil(t, tbl)
	require.True(t, report.HasErrors())

	syms := report.Symbols()
	require.Len(t, syms, 1)
	path, ok := report.Path(syms[0])
	require.True(t, ok)
	assert.Equal(t, broken, path)
	assert.Equal(t, report.Count(), report.CountSeverity(protocol.DiagnosticSeverityError))
}

func TestComputeSymbolsWarnsOnDuplicates(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "dup.py", "def f():\n    pass\n\ndef f():\n    pass\n")
	an := newTestAnalyzer(t)

	tbl, report, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.False(t, report.HasErrors())
	require.Equal(t, 1, report.CountSeverity(protocol.DiagnosticSeverityWarning))

	var message string
	report.Each(func(_ symbol.Symbol, p string, diags []protocol.Diagnostic) {
		assert.Equal(t, path, p)
		message = diags[0].Message
	})
	assert.True(t, strings.Contains(message, `"f"`), message)
	assert.Len(t, tbl.Lookup("f"), 2)
}

func TestComputeSymbolsAllowsRepeatedGoInit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "i.go", "package p\n\nfunc init() {}\n\nfunc init() {}\n")
	an := newTestAnalyzer(t)

	_, report, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, report.Count())
}

func TestComputeSymbolsMissingRoot(t *testing.T) {
	an := newTestAnalyzer(t)
	_, _, err := an.ComputeSymbols(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestComputeSymbolsHonoursExcludesAndSizeLimit(t *testing.T) {
	root, _, _ := sampleProject(t)
	writeFile(t, root, "vendor/v.go", "package v\n\nfunc Vendored() {}\n")
	writeFile(t, root, "gen.pb.go", "package p\n\nfunc Generated() {}\n")
	writeFile(t, root, "big.go", "package p\n\nfunc Big() {}\n"+strings.Repeat("// pad\n", 200))

	matcher, err := util.NewExcludeMatcher([]string{"vendor"}, []string{"*.pb.go"})
	require.NoError(t, err)
	an := newTestAnalyzer(t, WithExcludes(matcher), WithMaxFileBytes(512))

	tbl, _, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, tbl.Lookup("Vendored"))
	assert.Empty(t, tbl.Lookup("Generated"))
	assert.Empty(t, tbl.Lookup("Big"))
	assert.Len(t, tbl.Lookup("Hello"), 1)
}

func TestComputeSymbolsPrefersOpenBuffers(t *testing.T) {
	root, a, _ := sampleProject(t)
	buffers := mapBuffers{a: []byte("package p\n\nfunc Unsaved() string { return helper() }\n")}
	an := newTestAnalyzer(t, WithBuffers(buffers))

	tbl, _, err := an.ComputeSymbols(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, tbl.Lookup("Unsaved"), 1)
	assert.Empty(t, tbl.Lookup("Hello"))
}

func TestComputeSymbolsCancelled(t *testing.T) {
	root, _, _ := sampleProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestAnalyzer(t).ComputeSymbols(ctx, root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAnalyzer))
}
