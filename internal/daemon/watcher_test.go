package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcher_DebouncesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, func() { calls.Add(1) }, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	profileDir := filepath.Join(dir, "work")
	if err := os.Mkdir(profileDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"profile.toml", "displays.json"} {
		if err := os.WriteFile(filepath.Join(profileDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })

	time.Sleep(3 * DefaultDebounce)
	if n := calls.Load(); n != 1 {
		t.Fatalf("onChange called %d times for one burst", n)
	}

	// Edits inside an existing profile directory are seen as well.
	if err := os.WriteFile(filepath.Join(profileDir, "profile.toml"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_IgnoresHiddenStaging(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, func() { calls.Add(1) }, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	if err := os.Mkdir(filepath.Join(dir, ".staging-123"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * DefaultDebounce)
	if n := calls.Load(); n != 0 {
		t.Fatalf("onChange called %d times for a hidden directory", n)
	}
}

func TestWatcher_Relevant(t *testing.T) {
	w := NewWatcher("/profiles", func() {}, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/profiles/work", true},
		{"/profiles/work/profile.toml", true},
		{"/profiles/.tmp-1/displays.json", false},
		{"/profiles/.tmp-1", false},
		{"/profiles", false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
