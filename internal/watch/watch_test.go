package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oldnordic/magellan-go/internal/config"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		Project: config.Project{Root: root},
		Index: config.Index{
			RespectGitignore: true,
			WatchDebounceMs:  50,
		},
		Exclude: []string{"**/vendor/**"},
	}
}

func TestWatcherEmitsDirtyBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))

	w, err := New(root, testConfig(root), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	path := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0o644))

	select {
	case batch := <-w.Batches():
		require.Contains(t, batch.Paths, "b.go")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dirty batch")
	}

	require.NoError(t, w.Stop())
}

func TestWatcherIgnoresDatabaseFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	w, err := New(root, testConfig(root), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.db-wal"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real.go"), []byte("package a"), 0o644))

	select {
	case batch := <-w.Batches():
		require.Equal(t, []string{"real.go"}, batch.Paths)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dirty batch")
	}

	require.NoError(t, w.Stop())
}

func TestWatcherExcludesVendorDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "vendor"), 0o755))

	w, err := New(root, testConfig(root), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "ignored.go"), []byte("package v"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.go"), []byte("package a"), 0o644))

	select {
	case batch := <-w.Batches():
		require.Equal(t, []string{"kept.go"}, batch.Paths)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dirty batch")
	}

	require.NoError(t, w.Stop())
}

func TestLegacyTryRecvEventDrainsBatchOneAtATime(t *testing.T) {
	w := &Watcher{}
	w.recordLegacyBatch(DirtyBatch{Paths: []string{"a.go", "b.go"}})

	ev, ok := w.TryRecvEvent()
	require.True(t, ok)
	require.Equal(t, "a.go", ev.Path)

	ev, ok = w.TryRecvEvent()
	require.True(t, ok)
	require.Equal(t, "b.go", ev.Path)

	_, ok = w.TryRecvEvent()
	require.False(t, ok)
}

func TestMergeNotificationsDoesNotOverridePendingFilesystemEvent(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	w, err := New(root, testConfig(root), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	pubsub := make(chan string, 1)
	w.MergeNotifications(pubsub)

	require.NoError(t, os.WriteFile(filepath.Join(root, "c.go"), []byte("package a"), 0o644))
	pubsub <- "c.go"

	select {
	case batch := <-w.Batches():
		require.Equal(t, []string{"c.go"}, batch.Paths)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dirty batch")
	}

	close(pubsub)
	require.NoError(t, w.Stop())
}
