package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"github.com/womp-app/womp/internal/layout"
)

// CommandRunner runs a helper program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// SessionDesktop covers the optional fields on freedesktop sessions through
// gsettings (scaling, wallpaper) and pactl (default sink). HDR and icon
// size have no session-wide setting and are unsupported.
type SessionDesktop struct {
	Run CommandRunner
}

const (
	interfaceSchema  = "org.gnome.desktop.interface"
	backgroundSchema = "org.gnome.desktop.background"
)

var gnomePictureOptions = map[layout.WallpaperPosition]string{
	layout.WallpaperCenter:  "centered",
	layout.WallpaperTile:    "wallpaper",
	layout.WallpaperStretch: "stretched",
	layout.WallpaperFit:     "scaled",
	layout.WallpaperFill:    "zoom",
	layout.WallpaperSpan:    "spanned",
}

func (d SessionDesktop) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if d.Run == nil {
		return ExecRunner(ctx, name, args...)
	}
	return d.Run(ctx, name, args...)
}

func (d SessionDesktop) gsettingsGet(ctx context.Context, schema, key string) (string, error) {
	out, err := d.run(ctx, "gsettings", "get", schema, key)
	if err != nil {
		return "", err
	}
	return unquoteGVariant(string(out)), nil
}

func (d SessionDesktop) gsettingsSet(ctx context.Context, schema, key, value string) error {
	_, err := d.run(ctx, "gsettings", "set", schema, key, value)
	return err
}

// DPIScale reads the text scaling factor as a percentage.
func (d SessionDesktop) DPIScale(ctx context.Context) (int, error) {
	raw, err := d.gsettingsGet(ctx, interfaceSchema, "text-scaling-factor")
	if err != nil {
		return 0, err
	}
	factor, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected text-scaling-factor %q: %w", raw, err)
	}
	return int(factor*100 + 0.5), nil
}

// SetDPIScale sets the session-wide text scaling factor; displayID is ignored
// because the setting is not per output.
func (d SessionDesktop) SetDPIScale(ctx context.Context, _ string, percent int) error {
	if percent <= 0 {
		return fmt.Errorf("invalid scale %d%%", percent)
	}
	return d.gsettingsSet(ctx, interfaceSchema, "text-scaling-factor",
		strconv.FormatFloat(float64(percent)/100, 'f', 2, 64))
}

func (SessionDesktop) SetHDR(context.Context, string, bool) error          { return ErrUnsupported }
func (SessionDesktop) SetSDRWhiteLevel(context.Context, string, int) error { return ErrUnsupported }
func (SessionDesktop) SetIconSize(context.Context, int) error              { return ErrUnsupported }

// Wallpaper reads the background picture and its fit mode.
func (d SessionDesktop) Wallpaper(ctx context.Context) (layout.Wallpaper, error) {
	uri, err := d.gsettingsGet(ctx, backgroundSchema, "picture-uri")
	if err != nil {
		return layout.Wallpaper{}, err
	}
	options, err := d.gsettingsGet(ctx, backgroundSchema, "picture-options")
	if err != nil {
		return layout.Wallpaper{}, err
	}

	wp := layout.Wallpaper{Path: uriToPath(uri), Position: layout.WallpaperFill}
	for pos, opt := range gnomePictureOptions {
		if opt == options {
			wp.Position = pos
			break
		}
	}
	return wp, nil
}

// SetWallpaper points the background at wp.Path.
func (d SessionDesktop) SetWallpaper(ctx context.Context, wp layout.Wallpaper) error {
	uri := (&url.URL{Scheme: "file", Path: wp.Path}).String()
	if err := d.gsettingsSet(ctx, backgroundSchema, "picture-uri", uri); err != nil {
		return err
	}
	// Newer GNOME reads a separate key while the dark style is active.
	_ = d.gsettingsSet(ctx, backgroundSchema, "picture-uri-dark", uri)

	if opt, ok := gnomePictureOptions[wp.Position]; ok {
		return d.gsettingsSet(ctx, backgroundSchema, "picture-options", opt)
	}
	return nil
}

// AudioOutput returns the default PulseAudio/PipeWire sink.
func (d SessionDesktop) AudioOutput(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "pactl", "get-default-sink")
	if err != nil {
		return "", err
	}
	sink := strings.TrimSpace(string(out))
	if sink == "" {
		return "", fmt.Errorf("no default sink")
	}
	return sink, nil
}

// SetAudioOutput changes the default sink.
func (d SessionDesktop) SetAudioOutput(ctx context.Context, device string) error {
	_, err := d.run(ctx, "pactl", "set-default-sink", device)
	return err
}

// unquoteGVariant strips the GVariant text quoting gsettings prints, e.g.
// "'zoom'\n" or "uint32 5".
func unquoteGVariant(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 && !strings.HasPrefix(s, "'") {
		if _, err := strconv.ParseFloat(s[i+1:], 64); err == nil {
			s = s[i+1:]
		}
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return s
}

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}
