package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/womp-app/womp/internal/womperr"
)

type fakeMirror struct {
	calls []bool
	err   error
}

func (m *fakeMirror) SetEnabled(enabled bool) error {
	m.calls = append(m.calls, enabled)
	return m.err
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if !cfg.RunCommands || cfg.TrayIcon != TrayIconWomp || cfg.Theme != ThemeSystem {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("theme: dark\nsave_hdr_state: true\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Theme != ThemeDark {
		t.Fatalf("expected theme dark, got %q", cfg.Theme)
	}
	if !cfg.SaveHDRState {
		t.Fatalf("expected save_hdr_state true")
	}
	if !cfg.RunCommands {
		t.Fatalf("expected run_commands to keep its default")
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("no_such_key: 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to mention path, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   GlobalConfig
		want func(GlobalConfig) bool
	}{
		{
			name: "hdr off forces sdr off",
			in:   GlobalConfig{SaveHDRState: false, SaveSDRWhiteLevel: true},
			want: func(c GlobalConfig) bool { return !c.SaveSDRWhiteLevel },
		},
		{
			name: "hdr on keeps sdr",
			in:   GlobalConfig{SaveHDRState: true, SaveSDRWhiteLevel: true},
			want: func(c GlobalConfig) bool { return c.SaveSDRWhiteLevel },
		},
		{
			name: "unknown tray icon falls back",
			in:   GlobalConfig{TrayIcon: "sparkles"},
			want: func(c GlobalConfig) bool { return c.TrayIcon == TrayIconWomp },
		},
		{
			name: "theme is case folded",
			in:   GlobalConfig{Theme: "Light"},
			want: func(c GlobalConfig) bool { return c.Theme == ThemeLight },
		},
		{
			name: "empty match policy defaults to topology",
			in:   GlobalConfig{},
			want: func(c GlobalConfig) bool { return c.ActiveMatch == MatchTopology },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if !tt.want(got) {
				t.Fatalf("unexpected result %+v", got)
			}
		})
	}
}

func TestStoreSet_DisablingHDRClearsSDR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(path, nil, zaptest.NewLogger(t))

	in := DefaultConfig()
	in.SaveHDRState = false
	in.SaveSDRWhiteLevel = true

	got, err := store.Set(in)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if got.SaveSDRWhiteLevel {
		t.Fatalf("expected save_sdr_white_level false in returned config")
	}
	if store.Get().SaveSDRWhiteLevel {
		t.Fatalf("expected save_sdr_white_level false in stored config")
	}

	reloaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.SaveSDRWhiteLevel {
		t.Fatalf("expected persisted save_sdr_white_level false")
	}
}

func TestStoreSet_MirrorsAutostart(t *testing.T) {
	mirror := &fakeMirror{}
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"), mirror, zaptest.NewLogger(t))

	cfg := DefaultConfig()
	cfg.Autostart = true
	if _, err := store.Set(cfg); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg.Autostart = false
	if _, err := store.Set(cfg); err != nil {
		t.Fatalf("set: %v", err)
	}

	if len(mirror.calls) != 2 || !mirror.calls[0] || mirror.calls[1] {
		t.Fatalf("unexpected mirror calls %v", mirror.calls)
	}
}

func TestStoreSet_MirrorFailureKeepsValueAndSurfacesError(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("registry denied")}
	store := NewStore(filepath.Join(t.TempDir(), "config.yaml"), mirror, zaptest.NewLogger(t))

	cfg := DefaultConfig()
	cfg.Autostart = true
	got, err := store.Set(cfg)
	if !errors.Is(err, womperr.ErrAutostartMismatch) {
		t.Fatalf("expected ErrAutostartMismatch, got %v", err)
	}
	if !got.Autostart || !store.Get().Autostart {
		t.Fatalf("expected autostart to remain stored as true")
	}
}

// gatedMirror blocks the first SetEnabled until release is closed.
type gatedMirror struct {
	mu      sync.Mutex
	calls   []bool
	entered chan struct{}
	release chan struct{}
}

func (m *gatedMirror) SetEnabled(enabled bool) error {
	m.mu.Lock()
	first := len(m.calls) == 0
	m.calls = append(m.calls, enabled)
	m.mu.Unlock()
	if first {
		close(m.entered)
		<-m.release
	}
	return nil
}

func TestStoreSet_ConcurrentSetsMirrorInStoreOrder(t *testing.T) {
	mirror := &gatedMirror{entered: make(chan struct{}), release: make(chan struct{})}
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(path, mirror, zaptest.NewLogger(t))

	on := DefaultConfig()
	on.Autostart = true
	off := DefaultConfig()
	off.Autostart = false

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		store.Set(on)
	}()
	<-mirror.entered

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		store.Set(off)
	}()
	select {
	case <-secondDone:
		t.Fatal("second Set finished while the first was still mirroring")
	case <-time.After(50 * time.Millisecond):
	}

	close(mirror.release)
	<-firstDone
	<-secondDone

	mirror.mu.Lock()
	calls := append([]bool(nil), mirror.calls...)
	mirror.mu.Unlock()
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Fatalf("mirror calls = %v, want [true false]", calls)
	}
	if store.Get().Autostart {
		t.Fatal("stored autostart = true, want the last value false")
	}
	reloaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Autostart != calls[len(calls)-1] {
		t.Fatalf("file autostart = %v, last mirror call = %v", reloaded.Autostart, calls[len(calls)-1])
	}
}

func TestNewStore_CorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("theme: [unterminated\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewStore(path, nil, zaptest.NewLogger(t))
	if store.Get() != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", store.Get())
	}
}
