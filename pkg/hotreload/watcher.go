// Package hotreload watches a BASIC source file and reruns it on save.
package hotreload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ========================================
// File Watcher
// ========================================

// FileWatcher watches paths for changes via fsnotify and delivers
// debounced, pattern-filtered batches of FileChange to onChange.
type FileWatcher struct {
	mu           sync.Mutex
	watchPaths   []string
	patterns     []string
	excludes     []string
	debounceTime time.Duration
	onChange     func([]FileChange)
	watcher      *fsnotify.Watcher
	stop         chan struct{}
	running      bool
}

// FileChange represents a change to a file.
type FileChange struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota
	ChangeTypeCreated
	ChangeTypeDeleted
)

func (ct ChangeType) String() string {
	switch ct {
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeCreated:
		return "created"
	case ChangeTypeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// WatcherOption configures the file watcher.
type WatcherOption func(*FileWatcher)

// WithPatterns sets file patterns to watch (e.g. "*.bas", "*.bi").
func WithPatterns(patterns ...string) WatcherOption {
	return func(w *FileWatcher) {
		w.patterns = patterns
	}
}

// WithExcludes sets substrings of paths to ignore.
func WithExcludes(excludes ...string) WatcherOption {
	return func(w *FileWatcher) {
		w.excludes = excludes
	}
}

// WithDebounce sets how long to wait for more events before notifying.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.debounceTime = d
	}
}

// NewFileWatcher creates a new file watcher over paths (files or
// directories). onChange is invoked with every debounced batch of changes.
func NewFileWatcher(paths []string, onChange func([]FileChange), opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		watchPaths:   paths,
		patterns:     []string{"*.bas", "*.bi"},
		excludes:     []string{".git"},
		debounceTime: 150 * time.Millisecond,
		onChange:     onChange,
		stop:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins watching for file changes.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	w.watcher = fsw
	w.running = true
	w.mu.Unlock()

	for _, p := range w.watchPaths {
		dir := p
		if info, statErr := os.Stat(p); statErr == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		close(w.stop)
		w.watcher.Close()
		w.running = false
	}
}

// watchLoop translates raw fsnotify events into debounced FileChange
// batches, filtered by pattern and exclude list.
func (w *FileWatcher) watchLoop(ctx context.Context) {
	var pending []FileChange
	var debounceTimer *time.Timer

	flush := func() {
		w.mu.Lock()
		changes := pending
		pending = nil
		w.mu.Unlock()

		if len(changes) > 0 && w.onChange != nil {
			w.onChange(changes)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldExclude(event.Name) || !w.matchesPattern(event.Name) {
				continue
			}

			var ct ChangeType
			switch {
			case event.Op&fsnotify.Create != 0:
				ct = ChangeTypeCreated
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				ct = ChangeTypeDeleted
			case event.Op&fsnotify.Write != 0:
				ct = ChangeTypeModified
			default:
				continue
			}

			w.mu.Lock()
			pending = append(pending, FileChange{Path: event.Name, Type: ct, Timestamp: time.Now()})
			w.mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounceTime, flush)

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *FileWatcher) shouldExclude(path string) bool {
	for _, exclude := range w.excludes {
		if strings.Contains(path, exclude) {
			return true
		}
	}
	return false
}

func (w *FileWatcher) matchesPattern(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	for _, pattern := range w.patterns {
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// ========================================
// Run Manager
// ========================================

// Runner executes a BASIC source file, the way the teacher's
// CompilerInterface+ServerInterface pair recompiled and hot-swapped a
// route's bytecode into a live process.
type Runner interface {
	Run(path string) error
}

// RunManager reruns path through a Runner every time the watcher reports
// a change, generalizing the teacher's ReloadManager (push new bytecode
// into a running HTTP server, preserving request state) into "rerun this
// batch script from the top" — a BASIC program has no server state to
// preserve across reloads.
type RunManager struct {
	mu       sync.Mutex
	watcher  *FileWatcher
	runner   Runner
	runCount int
	lastRun  time.Time
	onErr    func(error)
	onRun    func(RunEvent)
}

// RunEvent reports the outcome of one watch-triggered rerun.
type RunEvent struct {
	Changes   []FileChange
	Success   bool
	Error     error
	Duration  time.Duration
	RunCount  int
	Timestamp time.Time
}

// RunManagerOption configures a RunManager.
type RunManagerOption func(*RunManager)

// WithRunErrorHandler sets the callback invoked when a rerun fails.
func WithRunErrorHandler(handler func(error)) RunManagerOption {
	return func(rm *RunManager) {
		rm.onErr = handler
	}
}

// WithOnRun sets the callback invoked after every rerun, success or not.
func WithOnRun(handler func(RunEvent)) RunManagerOption {
	return func(rm *RunManager) {
		rm.onRun = handler
	}
}

// NewRunManager watches path and reruns it through runner on every save.
func NewRunManager(path string, runner Runner, opts ...RunManagerOption) *RunManager {
	rm := &RunManager{runner: runner}
	for _, opt := range opts {
		opt(rm)
	}
	rm.watcher = NewFileWatcher([]string{path}, rm.handleChanges,
		WithPatterns(filepath.Base(path)),
		WithDebounce(150*time.Millisecond),
	)
	return rm
}

// Start starts watching.
func (rm *RunManager) Start(ctx context.Context) error { return rm.watcher.Start(ctx) }

// Stop stops watching.
func (rm *RunManager) Stop() { rm.watcher.Stop() }

func (rm *RunManager) handleChanges(changes []FileChange) {
	start := time.Now()
	rm.mu.Lock()
	rm.runCount++
	count := rm.runCount
	rm.mu.Unlock()

	var target string
	for _, c := range changes {
		if c.Type != ChangeTypeDeleted {
			target = c.Path
			break
		}
	}
	if target == "" {
		return
	}

	err := rm.runner.Run(target)

	rm.mu.Lock()
	rm.lastRun = time.Now()
	rm.mu.Unlock()

	if err != nil && rm.onErr != nil {
		rm.onErr(err)
	}
	if rm.onRun != nil {
		rm.onRun(RunEvent{
			Changes:   changes,
			Success:   err == nil,
			Error:     err,
			Duration:  time.Since(start),
			RunCount:  count,
			Timestamp: time.Now(),
		})
	}
}

// Stats returns rerun statistics.
func (rm *RunManager) Stats() RunStats {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return RunStats{RunCount: rm.runCount, LastRun: rm.lastRun}
}

// RunStats reports accumulated RunManager activity.
type RunStats struct {
	RunCount int
	LastRun  time.Time
}
