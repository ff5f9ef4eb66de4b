package symbol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndNonZero(t *testing.T) {
	seen := make(map[Symbol]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				sym := New()
				mu.Lock()
				seen[sym] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 800)
	assert.False(t, seen[None])
	for sym := range seen {
		assert.True(t, sym.IsValid())
	}
}

func TestOrderingMatchesHandles(t *testing.T) {
	a, b := New(), New()
	require.True(t, a.Less(b))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))

	syms := []Symbol{b, a, b}
	Sort(syms)
	assert.Equal(t, []Symbol{a, b, b}, syms)
}

func TestInterner_StableAcrossCalls(t *testing.T) {
	in := NewInterner()
	first := in.Intern("file:main.go")
	second := in.Intern("file:main.go")
	other := in.Intern("file:util.go")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, in.Len())

	key, ok := in.Key(other)
	require.True(t, ok)
	assert.Equal(t, "file:util.go", key)

	_, ok = in.Lookup("file:missing.go")
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
