package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChanges(t *testing.T, log *session.ChangeLog, want int) []session.Change {
	t.Helper()
	var collected []session.Change
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		changes, err := log.Drain(context.Background())
		require.NoError(t, err)
		collected = append(collected, changes...)
		if len(collected) >= want {
			return collected
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("wanted %d changes, saw %d within deadline", want, len(collected))
	return nil
}

func TestTrackerRecordsWrites(t *testing.T) {
	dir := t.TempDir()
	log := session.NewChangeLog(filepath.Join(t.TempDir(), "pending.jsonl"), 0, 0, nil)

	tr, err := New(log, nil)
	require.NoError(t, err)
	defer tr.Stop()

	require.NoError(t, tr.Watch(dir))
	tr.Start(context.Background())

	target := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0o644))

	changes := waitForChanges(t, log, 1)
	require.NotEmpty(t, changes)
	assert.Equal(t, target, changes[0].Path)
	assert.Contains(t, []string{"create", "write"}, changes[0].Op)
}

func TestTrackerSkipsIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	log := session.NewChangeLog(filepath.Join(t.TempDir(), "pending.jsonl"), 0, 0, nil)
	tr, err := New(log, nil)
	require.NoError(t, err)
	defer tr.Stop()

	require.NoError(t, tr.Watch(dir))
	tr.Start(context.Background())

	// Events under ignored trees never reach the log.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "index"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.go"), []byte("package src\n"), 0o644))

	changes := waitForChanges(t, log, 1)
	for _, c := range changes {
		assert.NotContains(t, c.Path, ".git")
		assert.NotContains(t, c.Path, "node_modules")
	}
}

func TestOpName(t *testing.T) {
	assert.Equal(t, "create", opName(fsnotify.Create))
	assert.Equal(t, "write", opName(fsnotify.Write))
	assert.Equal(t, "remove", opName(fsnotify.Remove))
	assert.Equal(t, "rename", opName(fsnotify.Rename))
	assert.Empty(t, opName(fsnotify.Chmod))
}
