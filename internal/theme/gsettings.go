package theme

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/womp-app/womp/internal/platform"
)

// gnomeAccents maps GNOME's named accent-color values to their sRGB hex.
var gnomeAccents = map[string]string{
	"blue":   "#3584e4",
	"teal":   "#2190a4",
	"green":  "#3a944a",
	"yellow": "#c88800",
	"orange": "#ed5b00",
	"red":    "#e62d42",
	"pink":   "#d56199",
	"purple": "#9141ac",
	"slate":  "#6f8396",
}

// GSettings reads org.gnome.desktop.interface.
type GSettings struct {
	Run     platform.CommandRunner
	Timeout time.Duration
}

func (g GSettings) get(key string) (string, error) {
	run := g.Run
	if run == nil {
		run = platform.ExecRunner
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := run(ctx, "gsettings", "get", "org.gnome.desktop.interface", key)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(out)), "'"), nil
}

func (g GSettings) Accent() (colorful.Color, error) {
	name, err := g.get("accent-color")
	if err != nil {
		return colorful.Color{}, err
	}
	hex, ok := gnomeAccents[name]
	if !ok {
		return colorful.Color{}, fmt.Errorf("unknown accent-color %q", name)
	}
	return colorful.Hex(hex)
}

func (g GSettings) PrefersDark() (bool, error) {
	scheme, err := g.get("color-scheme")
	if err != nil {
		return false, err
	}
	if scheme == "prefer-dark" {
		return true, nil
	}
	// Older sessions only signal dark mode through the GTK theme name.
	gtk, err := g.get("gtk-theme")
	if err != nil {
		return false, nil
	}
	return strings.HasSuffix(strings.ToLower(gtk), "-dark"), nil
}
