// Package watch implements the debounced filesystem watcher (spec §4.9): a
// recursive fsnotify watcher that batches raw events within a debounce
// window into a deterministic, sorted, deduplicated DirtyBatch, with a
// mutex-guarded legacy single-path-per-call compatibility API and an
// optional pub/sub merge channel for native-backend mutation notifications.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/errors"
)

// DirtyBatch is one debounce window's worth of changed paths: sorted
// lexicographically, duplicates removed (spec §4.9).
type DirtyBatch struct {
	Paths []string
}

// databaseSuffixes excludes the backend's own storage files from being
// watched, so the indexer's own writes never re-trigger themselves into a
// feedback loop.
var databaseSuffixes = []string{".db", ".db-journal", ".db-wal", ".db-shm", ".sqlite", ".sqlite3"}

func isDatabaseFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range databaseSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Watcher recursively watches root, producing DirtyBatch values on Batches()
// no more often than once per debounce window.
type Watcher struct {
	root      string
	cfg       *config.Config
	gitignore *config.GitignoreParser
	debounce  time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	batches chan DirtyBatch

	legacyMu    sync.Mutex
	legacyBatch []string
	legacyIndex int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher over root. gi may be nil to disable gitignore
// filtering regardless of cfg.Index.RespectGitignore.
func New(root string, cfg *config.Config, gi *config.GitignoreParser) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		root:      root,
		cfg:       cfg,
		gitignore: gi,
		debounce:  debounce,
		fsw:       fsw,
		pending:   make(map[string]bool),
		batches:   make(chan DirtyBatch, 8),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Batches returns the channel DirtyBatch values are delivered on. Not
// closed by Stop: a flush already in flight when Stop is called may still
// deliver its batch, but no further batches follow once Stop returns.
func (w *Watcher) Batches() <-chan DirtyBatch { return w.batches }

// Start recursively adds watches under root (skipping ignored directories)
// and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop halts event processing and releases the underlying fsnotify watcher.
// Events pending in the debounce window are dropped, matching the teacher's
// deliberate choice not to flush on shutdown (a flush can race a concurrent
// close of downstream state).
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return nil // best-effort: a directory we can't watch just won't report events
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDir(path string) bool {
	for _, pattern := range w.cfg.Exclude {
		base := strings.TrimSuffix(pattern, "/**")
		if matched, _ := filepath.Match(base, filepath.Base(path)); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	if w.gitignore != nil && w.cfg.Index.RespectGitignore {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		if w.gitignore.ShouldIgnore(filepath.ToSlash(rel), true) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() && !w.shouldIgnoreDir(path) {
			_ = w.fsw.Add(path)
			return
		}
	}

	accepted, err := w.validatePath(path)
	if err != nil {
		return // already a PathValidationError; the caller has no synchronous way to surface it
	}

	w.mu.Lock()
	w.pending[accepted] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

// validatePath applies spec §4.9's filtering pipeline: drop directories,
// drop database files, reject paths outside root, drop Exclude-glob
// matches, apply the gitignore predicate, reject symlink escapes and apply
// the Include globs, returning the root-relative slash form.
func (w *Watcher) validatePath(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", &errors.PathValidationError{Path: path, Reason: "directory"}
	}
	if isDatabaseFile(path) {
		return "", &errors.PathValidationError{Path: path, Reason: "database file"}
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", &errors.PathValidationError{Path: path, Reason: "outside watched root"}
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.cfg.Exclude {
		if m, _ := doublestar.Match(pattern, rel); m {
			return "", &errors.PathValidationError{Path: path, Reason: "excluded"}
		}
	}

	if w.gitignore != nil && w.cfg.Index.RespectGitignore && w.gitignore.ShouldIgnore(rel, false) {
		return "", &errors.PathValidationError{Path: path, Reason: "gitignored"}
	}

	if real, err := filepath.EvalSymlinks(path); err == nil {
		if realRoot, err := filepath.EvalSymlinks(w.root); err == nil {
			if !strings.HasPrefix(real, realRoot) {
				return "", &errors.PathValidationError{Path: path, Reason: "symlink escapes watched root"}
			}
		}
	}

	if len(w.cfg.Include) > 0 {
		matched := false
		for _, pattern := range w.cfg.Include {
			if m, _ := doublestar.Match(pattern, rel); m {
				matched = true
				break
			}
		}
		if !matched {
			return "", &errors.PathValidationError{Path: path, Reason: "no include pattern matched"}
		}
	}

	return rel, nil
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	batch := DirtyBatch{Paths: paths}
	w.recordLegacyBatch(batch)

	select {
	case w.batches <- batch:
	case <-w.ctx.Done():
	}
}

// MergeNotifications forwards paths from a secondary channel (the native
// backend's pub/sub mutation feed, spec §4.9's optional cache-invalidation
// path) into the same debounce window as filesystem events. Filesystem
// events take priority: a path already pending from fsnotify is left as-is.
func (w *Watcher) MergeNotifications(ch <-chan string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			case path, ok := <-ch:
				if !ok {
					return
				}
				w.mu.Lock()
				if !w.pending[path] {
					w.pending[path] = true
				}
				if w.timer != nil {
					w.timer.Stop()
				}
				w.timer = time.AfterFunc(w.debounce, w.flush)
				w.mu.Unlock()
			}
		}
	}()
}
