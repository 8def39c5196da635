// Package watch keeps filesystem watches on the folders that are currently
// expanded and reports which of them changed.
package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kyaoi/sizetree/internal/store"
)

// DefaultDebounce coalesces bursts of events for one directory.
const DefaultDebounce = 500 * time.Millisecond

// Watcher mirrors an ExpandedPaths set onto fsnotify watches.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	events   chan string
	done     chan struct{}

	mu      sync.Mutex
	watched map[string]struct{}
	timers  map[string]*pendingFire
	closed  bool
}

// New starts a watcher. A nil logger discards log output.
func New(logger *slog.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		events:   make(chan string, 64),
		done:     make(chan struct{}),
		watched:  make(map[string]struct{}),
		timers:   make(map[string]*pendingFire),
	}
	go w.loop()
	return w, nil
}

// Events delivers the directories whose contents changed.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Follow keeps the watch list equal to the expanded set until the returned
// function is called.
func (w *Watcher) Follow(expanded *store.ExpandedPaths) func() {
	return expanded.Subscribe(w.apply)
}

// Watched returns the directories currently watched, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return store.NewPathSet(keys(w.watched)...).Paths()
}

func (w *Watcher) apply(expanded store.PathSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	for dir := range w.watched {
		if expanded.Has(dir) {
			continue
		}
		if err := w.fsw.Remove(dir); err != nil {
			w.logger.Debug("unwatch failed", "dir", dir, "err", err)
		}
		delete(w.watched, dir)
	}
	for _, dir := range expanded.Paths() {
		if _, ok := w.watched[dir]; ok {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			// Files and vanished folders can sit in the set; skip them.
			w.logger.Debug("watch failed", "dir", dir, "err", err)
			continue
		}
		w.watched[dir] = struct{}{}
	}
}

// Close stops watching and closes the events channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, d := range w.timers {
		d.timer.Stop()
	}
	close(w.done)
	close(w.events)
	w.mu.Unlock()

	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(filepath.Dir(event.Name))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) schedule(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// A timer that already fired may have its fire blocked on mu; replace
	// it so that stale fire finds a different entry and does nothing.
	if d, ok := w.timers[dir]; ok && d.timer.Stop() {
		d.timer.Reset(w.debounce)
		return
	}
	d := &pendingFire{}
	d.timer = time.AfterFunc(w.debounce, func() { w.fire(dir, d) })
	w.timers[dir] = d
}

func (w *Watcher) fire(dir string, d *pendingFire) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers[dir] != d {
		return
	}
	delete(w.timers, dir)
	if w.closed {
		return
	}

	select {
	case w.events <- dir:
	default:
		w.logger.Warn("watch event dropped", "dir", dir)
	}
}

type pendingFire struct {
	timer *time.Timer
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
