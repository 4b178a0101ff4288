package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/types"
)

// FileSink rewrites a data.js file after every append. The Store calls it in
// append order, so the last write always holds the full history.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the data.js path.
func (f *FileSink) Path() string { return f.path }

// Persist writes snapshot to the data file.
func (f *FileSink) Persist(_ context.Context, _ string, _ types.Entry, snapshot *types.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return datajs.WriteFile(f.path, snapshot)
}

// WatchFile reloads st from path whenever another writer replaces or rewrites
// the file, e.g. a CI job pushing to gh-pages. It runs until ctx is cancelled.
//
// The parent directory is watched since atomic writers rename over the file.
// A file that fails to decode or validate is logged and ignored.
func WatchFile(ctx context.Context, st *Store, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	slog.Info("store: watching data file", "path", path)

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			reload(st, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("store: watcher error", "err", err)
		}
	}
}

func reload(st *Store, path string) {
	d, err := datajs.ReadFile(path)
	if err != nil {
		slog.Warn("store: data file reload failed, keeping current history", "path", path, "err", err)
		return
	}
	// Our own writes come back as events; skip files that are not newer.
	if d.LastUpdate <= st.lastUpdate() {
		return
	}
	if err := st.Replace(d); err != nil {
		slog.Warn("store: data file invalid, keeping current history", "path", path, "err", err)
		return
	}
	slog.Info("store: history reloaded from data file", "path", path, "suites", len(d.Entries))
}

func (s *Store) lastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.LastUpdate
}
