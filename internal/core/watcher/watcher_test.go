package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"modulith/internal/core/errors"
)

func waitFor(t *testing.T, changes <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change of %s", want)
		}
	}
}

func TestNew_RejectsNilCallback(t *testing.T) {
	w, err := New(Options{}, nil)
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNew_RejectsInvalidPattern(t *testing.T) {
	_, err := New(Options{ExcludeDirs: []string{"[a"}}, func([]string) {})
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "vendor"), 0o755); err != nil {
		t.Fatal(err)
	}

	opts := SourceOptions("go")
	opts.Debounce = 50 * time.Millisecond
	opts.ExcludeDirs = []string{"vendor"}
	opts.ExcludeFiles = []string{"*.pb.go"}

	changes := make(chan []string, 8)
	w, err := New(opts, func(paths []string) { changes <- paths })
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, tmpDir); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "orders.go")
	if err := os.WriteFile(testFile, []byte("package orders"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, testFile, 2*time.Second)

	// Excluded and unrelated files stay quiet.
	for _, name := range []string{"api.pb.go", "notes.txt", "orders_test.go"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "vendor", "lib.go"), []byte("package lib"), 0o644); err != nil {
		t.Fatal(err)
	}
	quiet := time.After(300 * time.Millisecond)
	for waiting := true; waiting; {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p != testFile {
					t.Errorf("unexpected change of %s", p)
				}
			}
		case <-quiet:
			waiting = false
		}
	}

	// New directories are watched recursively.
	subdir := filepath.Join(tmpDir, "billing")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "invoice.go")
	if err := os.WriteFile(subFile, []byte("package billing"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changes := make(chan []string, 8)
	w, err := New(Options{Debounce: 50 * time.Millisecond}, func(paths []string) { changes <- paths })
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, tmpDir); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "Old.java")
	newPath := filepath.Join(tmpDir, "New.java")
	if err := os.WriteFile(oldPath, []byte("class Old {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changes, newPath, 2*time.Second)
}

func TestWatcher_LanguageFilters(t *testing.T) {
	tests := []struct {
		language     string
		includeTests bool
		path         string
		excluded     bool
	}{
		{"go", false, "main.go", false},
		{"go", false, "main.java", true},
		{"go", false, "go.mod", false},
		{"go", false, "main_test.go", true},
		{"go", true, "main_test.go", false},
		{"java", false, "Order.java", false},
		{"java", false, "OrderTest.java", true},
		{"java", false, "pom.xml", false},
		{"java", false, "order.go", true},
	}
	for _, tt := range tests {
		opts := SourceOptions(tt.language)
		opts.IncludeTests = tt.includeTests
		w, err := New(opts, func([]string) {})
		if err != nil {
			t.Fatal(err)
		}
		if got := w.shouldExcludeFile(tt.path); got != tt.excluded {
			t.Errorf("%s/%s: excluded=%v, want %v", tt.language, tt.path, got, tt.excluded)
		}
		w.Close()
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := New(Options{}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	w.scheduleChange("ignored.go")
}
