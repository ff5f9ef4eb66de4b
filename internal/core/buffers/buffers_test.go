package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGetClose(t *testing.T) {
	s := New()
	s.Open("/proj/a.go", 1, []byte("package a"))

	got, ok := s.Get("/proj/./a.go")
	require.True(t, ok)
	assert.Equal(t, "package a", string(got))

	s.Close("/proj/a.go")
	_, ok = s.Get("/proj/a.go")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	content := []byte("package a")
	s.Open("/proj/a.go", 1, content)
	content[0] = 'X'

	got, _ := s.Get("/proj/a.go")
	got[1] = 'Y'

	again, _ := s.Get("/proj/a.go")
	assert.Equal(t, "package a", string(again))
}

func TestUpdateIgnoresStaleVersions(t *testing.T) {
	s := New()
	s.Open("/proj/a.go", 3, []byte("v3"))

	assert.False(t, s.Update("/proj/a.go", 2, []byte("v2")))
	assert.True(t, s.Update("/proj/a.go", 4, []byte("v4")))

	got, _ := s.Get("/proj/a.go")
	assert.Equal(t, "v4", string(got))
	v, ok := s.Version("/proj/a.go")
	require.True(t, ok)
	assert.Equal(t, int32(4), v)
}

func TestUpdateOpensUnknownDocument(t *testing.T) {
	s := New()
	require.True(t, s.Update("/proj/b.go", 1, []byte("x")))
	assert.Equal(t, []string{"/proj/b.go"}, s.Paths())
}
