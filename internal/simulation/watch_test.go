package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatchSnapshotsSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SnapshotsDir), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := WatchSnapshots(ctx, dir)
	require.NoError(t, err)

	path := filepath.Join(dir, SnapshotsDir, "0000.csv")
	require.NoError(t, os.WriteFile(path, []byte("key\n1\n"), 0o644))

	select {
	case got, ok := <-events:
		require.True(t, ok)
		require.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for new snapshot")
	}

	// A non-snapshot file must not wake the viewer.
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotsDir, "note.txt"), []byte("x"), 0o644))
	select {
	case got := <-events:
		t.Fatalf("unexpected event %q", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range events {
		// Drain until the watcher goroutine closes the channel.
	}
}

func TestWatchSnapshotsMissingDir(t *testing.T) {
	_, err := WatchSnapshots(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
