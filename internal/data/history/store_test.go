package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"symbolicator/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Record(ctx, ports.PassRecord{
		PassID:      "p1",
		ProjectRoot: "/a",
		StartedAt:   base,
		Duration:    1500 * time.Millisecond,
		Committed:   true,
		SymbolCount: 12,
	}))
	require.NoError(t, store.Record(ctx, ports.PassRecord{
		PassID:      "p2",
		ProjectRoot: "/a",
		StartedAt:   base.Add(time.Minute),
		Duration:    20 * time.Millisecond,
		Error:       "[ANALYZER_ERROR] walk project",
	}))
	require.NoError(t, store.Record(ctx, ports.PassRecord{
		PassID:      "p3",
		ProjectRoot: "/b",
		StartedAt:   base.Add(2 * time.Minute),
	}))

	recs, err := store.Recent(ctx, "/a", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "p2", recs[0].PassID)
	assert.False(t, recs[0].Committed)
	assert.Equal(t, "[ANALYZER_ERROR] walk project", recs[0].Error)
	assert.Equal(t, "p1", recs[1].PassID)
	assert.True(t, recs[1].Committed)
	assert.Equal(t, 12, recs[1].SymbolCount)
	assert.Equal(t, 1500*time.Millisecond, recs[1].Duration)
	assert.True(t, base.Equal(recs[1].StartedAt))

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "p3", all[0].PassID)
}

func TestRecordPrunesToRetention(t *testing.T) {
	store := openTestStore(t)
	store.SetRetention(3)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Record(ctx, ports.PassRecord{
			PassID:      fmt.Sprintf("p%d", i),
			ProjectRoot: "/a",
			StartedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := store.Recent(ctx, "/a", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "p5", recs[0].PassID)
	assert.Equal(t, "p3", recs[2].PassID)
}

func TestRecordRejectsEmptyPassID(t *testing.T) {
	store := openTestStore(t)
	require.Error(t, store.Record(context.Background(), ports.PassRecord{ProjectRoot: "/a"}))
}

func TestOpenRejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)

	_, err = Open("  ")
	require.Error(t, err)
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), ports.PassRecord{PassID: "p1", ProjectRoot: "/a"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	recs, err := reopened.Recent(context.Background(), "/a", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
