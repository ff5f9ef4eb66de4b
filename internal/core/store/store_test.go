package store

import (
	"fmt"
	"sync"
	"testing"

	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWith(name string) *table.Table {
	b := table.NewBuilder("/proj")
	b.AddDefinition(table.Definition{Symbol: symbol.New(), Name: name, Location: table.Location{File: "/proj/a.go"}})
	return b.Build()
}

func TestGet_BeforeAnyReplaceReturnsEmpty(t *testing.T) {
	s := New()
	got := s.Get("/proj")
	require.NotNil(t, got)
	assert.Same(t, table.Empty(), got)

	_, ok := s.Lookup("/proj")
	assert.False(t, ok)
}

func TestReplace_LastWriterWins(t *testing.T) {
	s := New()
	first := tableWith("First")
	second := tableWith("Second")

	s.Replace("/proj", first)
	s.Replace("/proj/", second)

	assert.Same(t, second, s.Get("/proj"))
	assert.Equal(t, []string{"/proj"}, s.Roots())
}

func TestReplace_NilIsIgnored(t *testing.T) {
	s := New()
	first := tableWith("First")
	s.Replace("/proj", first)
	s.Replace("/proj", nil)
	assert.Same(t, first, s.Get("/proj"))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		root := fmt.Sprintf("/proj%d", w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Replace(root, tableWith("X"))
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NotNil(t, s.Get("/proj0"))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, s.Roots(), 4)
}
