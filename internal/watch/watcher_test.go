// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newRecorder() *recorder { return &recorder{notify: make(chan struct{}, 16)} }

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.batches = append(r.batches, changed)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for OnChange")
	}
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.batches)
}

func startWatcher(t *testing.T, cfg Config) (cancel func()) {
	t.Helper()

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	return func() {
		stop()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_CoalescesModuleFileChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mod := filepath.Join(root, "acme.palettemod")
	if err := os.MkdirAll(mod, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	stop := startWatcher(t, Config{Roots: []string{root}, Debounce: 150 * time.Millisecond, OnChange: rec.onChange})
	defer stop()

	mustWrite(t, filepath.Join(mod, "palettemod.cue"), "module: \"acme\"\n")
	time.Sleep(10 * time.Millisecond)
	mustWrite(t, filepath.Join(mod, "commands.yaml"), "add: {}\n")

	rec.wait(t)
	batches := rec.snapshot()
	if len(batches) != 1 {
		t.Fatalf("OnChange called %d times, want 1: %v", len(batches), batches)
	}
	for _, want := range []string{"palettemod.cue", "commands.yaml"} {
		if !slices.Contains(batches[0], filepath.Join(mod, want)) {
			t.Errorf("batch %v missing %s", batches[0], want)
		}
	}
	if !slices.IsSorted(batches[0]) {
		t.Errorf("batch %v is not sorted", batches[0])
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mod := filepath.Join(root, "acme.palettemod")
	if err := os.MkdirAll(mod, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	stop := startWatcher(t, Config{Roots: []string{root}, Debounce: 50 * time.Millisecond, OnChange: rec.onChange})
	defer stop()

	mustWrite(t, filepath.Join(mod, "README.md"), "docs")
	mustWrite(t, filepath.Join(mod, "commands.cue.swp"), "swap")
	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("OnChange fired for unrelated files: %v", got)
	}

	mustWrite(t, filepath.Join(mod, "commands.cue"), "add: {}\n")
	rec.wait(t)
	if got := rec.snapshot(); len(got) != 1 || !slices.Equal(got[0], []string{filepath.Join(mod, "commands.cue")}) {
		t.Errorf("batches = %v, want only commands.cue", got)
	}
}

func TestWatcher_FollowsNewModuleDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rec := newRecorder()
	stop := startWatcher(t, Config{Roots: []string{root}, Debounce: 100 * time.Millisecond, OnChange: rec.onChange})
	defer stop()

	mod := filepath.Join(root, "late.palettemod")
	if err := os.Mkdir(mod, 0o755); err != nil {
		t.Fatal(err)
	}
	rec.wait(t)

	mustWrite(t, filepath.Join(mod, "palettemod.cue"), "module: \"late\"\n")
	rec.wait(t)

	got := rec.snapshot()
	if !slices.Contains(got[len(got)-1], filepath.Join(mod, "palettemod.cue")) {
		t.Errorf("last batch = %v, want palettemod.cue in new module", got[len(got)-1])
	}
}

func TestWatcher_CustomPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rec := newRecorder()
	stop := startWatcher(t, Config{
		Roots:    []string{root},
		Patterns: []string{"*.txt"},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
	})
	defer stop()

	mustWrite(t, filepath.Join(root, "note.txt"), "x")
	rec.wait(t)
	if got := rec.snapshot(); !slices.Equal(got[0], []string{filepath.Join(root, "note.txt")}) {
		t.Errorf("batch = %v, want note.txt", got[0])
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Roots: []string{t.TempDir()}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait until the first Run has claimed the watcher.
	for !w.started.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	mustWrite(t, file, "")

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"no roots", Config{}, ErrNoRoots},
		{"missing root", Config{Roots: []string{filepath.Join(dir, "missing")}}, ErrNoRoots},
		{"file root", Config{Roots: []string{file}}, ErrNoRoots},
		{"bad pattern", Config{Roots: []string{dir}, Patterns: []string{"[oops"}}, doublestar.ErrBadPattern},
		{"bad ignore", Config{Roots: []string{dir}, Ignore: []string{"{a"}}, doublestar.ErrBadPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_SkipsMissingRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{Roots: []string{filepath.Join(dir, "missing"), dir}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.fsw.Close()

	if got := w.Roots(); len(got) != 1 || got[0] != dir {
		t.Errorf("Roots() = %v, want [%s]", got, dir)
	}
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	w := &Watcher{patterns: DefaultPatterns, ignores: defaultIgnores}
	tests := []struct {
		rel     string
		match   bool
		ignored bool
	}{
		{"acme.palettemod", true, false},
		{"acme.palettemod/palettemod.cue", true, false},
		{"nested/acme.palettemod/commands.yml", true, false},
		{"acme.palettemod/notes.md", false, false},
		{".git/HEAD", false, true},
		{"acme.palettemod/commands.cue~", false, true},
	}
	for _, tt := range tests {
		if got := w.matches(tt.rel); got != tt.match {
			t.Errorf("matches(%q) = %v, want %v", tt.rel, got, tt.match)
		}
		if got := w.ignored(tt.rel); got != tt.ignored {
			t.Errorf("ignored(%q) = %v, want %v", tt.rel, got, tt.ignored)
		}
	}
}

func TestRelative_PicksDeepestRoot(t *testing.T) {
	t.Parallel()

	outer := filepath.Join(string(filepath.Separator), "srv", "modules")
	inner := filepath.Join(outer, "vendor")
	w := &Watcher{roots: []string{outer, inner}}

	root, rel, ok := w.relative(filepath.Join(inner, "x.palettemod", "commands.cue"))
	if !ok || root != inner || rel != "x.palettemod/commands.cue" {
		t.Errorf("relative() = %q, %q, %v", root, rel, ok)
	}
	if _, _, ok := w.relative(filepath.Join(string(filepath.Separator), "srv", "modulesx", "a")); ok {
		t.Error("relative() matched a sibling with a shared prefix")
	}
}
