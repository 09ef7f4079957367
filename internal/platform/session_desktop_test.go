package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/womp-app/womp/internal/layout"
)

type scriptedRunner struct {
	outputs map[string]string
	calls   []string
}

func (r *scriptedRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	if out, ok := r.outputs[call]; ok {
		return []byte(out), nil
	}
	if strings.Contains(call, " set") {
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected call %q", call)
}

func TestSessionDesktop_Reads(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"gsettings get org.gnome.desktop.interface text-scaling-factor": "1.25\n",
		"gsettings get org.gnome.desktop.background picture-uri":        "'file:///home/u/Pictures/bg%20one.png'\n",
		"gsettings get org.gnome.desktop.background picture-options":    "'spanned'\n",
		"pactl get-default-sink":                                        "alsa_output.pci-0000_00_1f.3.analog-stereo\n",
	}}
	d := SessionDesktop{Run: r.run}
	ctx := context.Background()

	scale, err := d.DPIScale(ctx)
	if err != nil || scale != 125 {
		t.Fatalf("DPIScale() = %d, %v; want 125", scale, err)
	}

	wp, err := d.Wallpaper(ctx)
	if err != nil {
		t.Fatalf("Wallpaper(): %v", err)
	}
	if wp.Path != "/home/u/Pictures/bg one.png" || wp.Position != layout.WallpaperSpan {
		t.Fatalf("unexpected wallpaper %+v", wp)
	}

	sink, err := d.AudioOutput(ctx)
	if err != nil || sink != "alsa_output.pci-0000_00_1f.3.analog-stereo" {
		t.Fatalf("AudioOutput() = %q, %v", sink, err)
	}
}

func TestSessionDesktop_Writes(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{}}
	d := SessionDesktop{Run: r.run}
	ctx := context.Background()

	if err := d.SetDPIScale(ctx, "DP-1", 150); err != nil {
		t.Fatalf("SetDPIScale: %v", err)
	}
	if err := d.SetWallpaper(ctx, layout.Wallpaper{Path: "/tmp/a b.png", Position: layout.WallpaperFit}); err != nil {
		t.Fatalf("SetWallpaper: %v", err)
	}
	if err := d.SetAudioOutput(ctx, "hdmi"); err != nil {
		t.Fatalf("SetAudioOutput: %v", err)
	}

	want := []string{
		"gsettings set org.gnome.desktop.interface text-scaling-factor 1.50",
		"gsettings set org.gnome.desktop.background picture-uri file:///tmp/a%20b.png",
		"gsettings set org.gnome.desktop.background picture-uri-dark file:///tmp/a%20b.png",
		"gsettings set org.gnome.desktop.background picture-options scaled",
		"pactl set-default-sink hdmi",
	}
	if strings.Join(r.calls, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected calls:\n%s", strings.Join(r.calls, "\n"))
	}
}

func TestSessionDesktop_Unsupported(t *testing.T) {
	d := SessionDesktop{}
	if err := d.SetHDR(context.Background(), "DP-1", true); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := d.SetIconSize(context.Background(), 48); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestUnquoteGVariant(t *testing.T) {
	tests := map[string]string{
		"'zoom'\n": "zoom",
		"uint32 5": "5",
		"1.0":      "1.0",
		"'it''s'":  "it''s",
		"@as []":   "@as []",
	}
	for in, want := range tests {
		if got := unquoteGVariant(in); got != want {
			t.Errorf("unquoteGVariant(%q) = %q, want %q", in, got, want)
		}
	}
}
