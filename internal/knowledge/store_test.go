package knowledge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "records.json"), nil)
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	set := &Set{}
	require.NoError(t, set.Add(&Decision{
		ID: store.GenerateID(), Topic: "db", Decision: "Use SQLite",
		SessionID: "s1", Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, set.Add(&Task{
		ID: store.GenerateID(), Title: "Add tests", Status: TaskPending,
		SessionCreated: "s1", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.Save(set))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Decisions, 1)
	assert.Len(t, loaded.Tasks, 1)
	assert.Equal(t, "Use SQLite", loaded.Decisions[0].Decision)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	set, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, set.All())
}

func TestStoreLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path, nil)
	set, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, set.All())
}

func TestStoreLoadDropsInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	// A decision missing its topic fails validation and is dropped.
	content := `{"decisions":[{"id":"d1","decision":"x","session_id":"s1"},
		{"id":"d2","topic":"db","decision":"Use SQLite","session_id":"s1"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewStore(path, nil)
	set, err := store.Load()
	require.NoError(t, err)
	require.Len(t, set.Decisions, 1)
	assert.Equal(t, "d2", set.Decisions[0].ID)
}

func TestStoreUpdate(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Update(func(set *Set) error {
		return set.Add(&Insight{ID: "i1", Content: "observed", SessionID: "s1"})
	}))

	set, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, set.Insights, 1)
}

func TestSetRemoveOperations(t *testing.T) {
	set := &Set{}
	require.NoError(t, set.Add(&Decision{ID: "d1", Topic: "db", Decision: "x", SessionID: "s1"}))
	require.NoError(t, set.Add(&Decision{ID: "d2", Topic: "api", Decision: "y", SessionID: "s2"}))
	require.NoError(t, set.Add(&Insight{ID: "i1", Content: "z", SessionID: "s1"}))

	rec, err := set.FindByID("d2")
	require.NoError(t, err)
	assert.Equal(t, TypeDecision, rec.Kind())

	removed := set.RemoveSession("s1")
	assert.ElementsMatch(t, []string{"d1", "i1"}, removed)
	assert.Len(t, set.All(), 1)

	_, err = set.FindByID("d1")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.False(t, set.RemoveByID("gone"))

	ids := set.RemoveByType(TypeDecision)
	assert.Equal(t, []string{"d2"}, ids)
	assert.Equal(t, 0, set.Counts()[TypeDecision])
}

func TestGenerateIDUnique(t *testing.T) {
	store := newTestStore(t)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := store.GenerateID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
