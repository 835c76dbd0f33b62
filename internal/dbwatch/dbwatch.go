// Package dbwatch notifies the board UI when another okanban process
// (typically a one-shot CLI invocation run while the board is open)
// writes to the shared SQLite file, so the board can invalidate its
// cached snapshot instead of going stale.
package dbwatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okanban/okanban/internal/logging"
)

var log = logging.ForComponent(logging.CompCLI)

// debounce coalesces the burst of events a single SQLite commit
// produces (the main file, its -wal, and its -shm companions).
const debounce = 150 * time.Millisecond

// Watcher watches the directory containing an okanban.db file and
// signals on Changes() whenever it (or its WAL sidecar) is written.
type Watcher struct {
	fsw     *fsnotify.Watcher
	dbName  string
	changes chan struct{}
}

// New watches dbPath's containing directory. fsnotify must watch the
// directory, not the file itself: SQLite's WAL mode replaces the file
// via rename/relink on checkpoint, which would silently drop a
// file-level watch.
func New(dbPath string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dbPath)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		dbName:  filepath.Base(dbPath),
		changes: make(chan struct{}, 1),
	}, nil
}

// Changes returns the channel that receives a value (non-blocking,
// coalesced) whenever the watched database file changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run processes fsnotify events until ctx is cancelled. Must be run in
// its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	var pending bool
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(debounce)
			}
		case <-timer.C:
			pending = false
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("dbwatch: fsnotify error", "error", err)
		}
	}
}

// relevant reports whether name is the watched database file or one of
// its WAL-mode sidecars (-wal, -shm).
func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	return base == w.dbName || base == w.dbName+"-wal" || base == w.dbName+"-shm"
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
