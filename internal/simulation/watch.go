package simulation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/clusterlab/clusterlab/internal/xlog"
)

// WatchSnapshots tails a run directory written by another process. It
// emits the path of every snapshot CSV that appears or changes until
// ctx is cancelled, then closes the channel. A missing directory is an
// immediate error.
func WatchSnapshots(ctx context.Context, dir string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	snapDir := filepath.Join(dir, SnapshotsDir)
	if err := w.Add(snapDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", snapDir, err)
	}

	log := xlog.WithComponent("watch")
	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".csv") {
					continue
				}
				// renameio lands files with a rename, which shows
				// up as Create; direct writers show up as Write.
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- ev.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", snapDir).Msg("watcher error")
			}
		}
	}()
	return ch, nil
}
