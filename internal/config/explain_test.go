package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/womp-app/womp/internal/womperr"
)

func TestKeys_FileOrder(t *testing.T) {
	keys := Keys()
	if len(keys) != 11 {
		t.Fatalf("keys = %v", keys)
	}
	if keys[0] != "autostart" || keys[len(keys)-1] != "active_match" {
		t.Fatalf("unexpected order: %v", keys)
	}
}

func TestExplain_Sources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("theme: dark\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fileKeys, err := FileKeys(path)
	if err != nil {
		t.Fatalf("file keys: %v", err)
	}

	tests := []struct {
		key    string
		value  any
		source Source
	}{
		{"theme", "dark", SourceFile},
		{"run_commands", true, SourceDefault},
		{"tray_icon", "womp", SourceDefault},
	}
	for _, tt := range tests {
		v, src, err := Explain(cfg, fileKeys, tt.key)
		if err != nil {
			t.Fatalf("Explain(%q): %v", tt.key, err)
		}
		if v != tt.value || src != tt.source {
			t.Errorf("Explain(%q) = %v, %s; want %v, %s", tt.key, v, src, tt.value, tt.source)
		}
	}

	if _, _, err := Explain(cfg, fileKeys, "hotkey"); !errors.Is(err, womperr.ErrInvalidArgument) {
		t.Fatalf("unknown key err = %v", err)
	}
}

func TestFileKeys_MissingFile(t *testing.T) {
	keys, err := FileKeys(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || len(keys) != 0 {
		t.Fatalf("FileKeys = %v, %v", keys, err)
	}
}

func TestWithSetting(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name    string
		key     string
		value   string
		check   func(GlobalConfig) bool
		wantErr bool
	}{
		{"bool", "save_dpi_scale", "true", func(c GlobalConfig) bool { return c.SaveDPIScale }, false},
		{"enum", "theme", "light", func(c GlobalConfig) bool { return c.Theme == ThemeLight }, false},
		{"enum case folded", "active_match", "Exact", func(c GlobalConfig) bool { return c.ActiveMatch == MatchExact }, false},
		{"unknown key", "gap_size", "4", nil, true},
		{"wrong type", "run_commands", "maybe", nil, true},
		{"bad enum", "tray_icon", "rocket", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithSetting(base, tt.key, tt.value)
			if tt.wantErr {
				if !errors.Is(err, womperr.ErrInvalidArgument) {
					t.Fatalf("err = %v, want ErrInvalidArgument", err)
				}
				if got != base {
					t.Fatalf("config changed on error: %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("WithSetting: %v", err)
			}
			if !tt.check(got) {
				t.Fatalf("setting not applied: %+v", got)
			}
		})
	}
}
