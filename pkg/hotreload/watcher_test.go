package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileWatcher_MatchesPattern(t *testing.T) {
	w := &FileWatcher{
		patterns: []string{"*.bas", "*.bi"},
	}

	tests := []struct {
		path    string
		matches bool
	}{
		{"main.bas", true},
		{"defs.bi", true},
		{"test.go", false},
		{"readme.md", false},
		{"path/to/file.bas", true},
	}

	for _, tt := range tests {
		result := w.matchesPattern(tt.path)
		if result != tt.matches {
			t.Errorf("matchesPattern(%q) = %v, want %v", tt.path, result, tt.matches)
		}
	}
}

func TestFileWatcher_ShouldExclude(t *testing.T) {
	w := &FileWatcher{
		excludes: []string{"node_modules", ".git", "vendor"},
	}

	tests := []struct {
		path     string
		excluded bool
	}{
		{"src/main.bas", false},
		{"node_modules/pkg/file.js", true},
		{".git/config", true},
		{"vendor/lib/code.go", true},
		{"app/main.bas", false},
	}

	for _, tt := range tests {
		result := w.shouldExclude(tt.path)
		if result != tt.excluded {
			t.Errorf("shouldExclude(%q) = %v, want %v", tt.path, result, tt.excluded)
		}
	}
}

func TestFileWatcher_DetectsWrite(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "hotreload-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "test.bas")
	if err := os.WriteFile(testFile, []byte("PRINT 1\n"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var mu sync.Mutex
	var changes []FileChange
	done := make(chan struct{}, 1)

	w := NewFileWatcher([]string{tmpDir}, func(c []FileChange) {
		mu.Lock()
		changes = append(changes, c...)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}, WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(testFile, []byte("PRINT 2\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change notification")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) == 0 {
		t.Fatal("expected at least one change")
	}
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *fakeRunner) Run(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, path)
	return r.err
}

func TestRunManager_RerunsOnChange(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "hotreload-run-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "prog.bas")
	if err := os.WriteFile(testFile, []byte("PRINT 1\n"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	runner := &fakeRunner{}
	var events []RunEvent
	var mu sync.Mutex
	done := make(chan struct{}, 1)

	rm := NewRunManager(testFile, runner, WithOnRun(func(e RunEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rm.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rm.Stop()

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(testFile, []byte("PRINT 2\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a rerun")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 || !events[0].Success {
		t.Fatalf("expected a successful run event, got %+v", events)
	}

	stats := rm.Stats()
	if stats.RunCount == 0 {
		t.Errorf("expected RunCount > 0, got %d", stats.RunCount)
	}
}

func TestRunManager_ReportsRunnerError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "hotreload-run-err-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "prog.bas")
	if err := os.WriteFile(testFile, []byte("PRINT 1\n"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	runner := &fakeRunner{err: os.ErrInvalid}
	var mu sync.Mutex
	var gotErr error
	done := make(chan struct{}, 1)

	rm := NewRunManager(testFile, runner, WithRunErrorHandler(func(err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rm.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rm.Stop()

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(testFile, []byte("PRINT 2\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the error handler")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotErr == nil {
		t.Error("expected runner error to be reported")
	}
}
