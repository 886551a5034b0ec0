package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetaStore(t *testing.T, maxSessions int) *MetaStore {
	t.Helper()
	return NewMetaStore(filepath.Join(t.TempDir(), "sessions.json"), maxSessions, nil)
}

func TestMetaStoreUpsertAndGet(t *testing.T) {
	store := newMetaStore(t, 10)

	meta := Meta{
		ID:        "s1",
		Summary:   "db: Use SQLite",
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
		RecordCounts: map[string]int{
			"decision": 1,
		},
	}
	require.NoError(t, store.Upsert(meta))

	got, found, err := store.Get("s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "db: Use SQLite", got.Summary)
	assert.Equal(t, 1, got.RecordCounts["decision"])

	_, found, err = store.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetaStoreUpsertReplaces(t *testing.T) {
	store := newMetaStore(t, 10)

	require.NoError(t, store.Upsert(Meta{ID: "s1", Summary: "first"}))
	require.NoError(t, store.Upsert(Meta{ID: "s1", Summary: "second"}))

	sessions, err := store.Load()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "second", sessions[0].Summary)
}

func TestMetaStorePrunesOldest(t *testing.T) {
	store := newMetaStore(t, 2)
	base := time.Now()

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.Upsert(Meta{
			ID:        id,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	sessions, err := store.Load()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	_, found, err := store.Get("old")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetaStoreRemove(t *testing.T) {
	store := newMetaStore(t, 10)
	require.NoError(t, store.Upsert(Meta{ID: "s1"}))

	removed, err := store.Remove("s1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove("s1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMetaStoreMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewMetaStore(path, 10, nil)
	sessions, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
