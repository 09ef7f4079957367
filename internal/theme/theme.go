// Package theme derives the system color set pushed to frontend windows:
// background, foreground and seven accent shades.
package theme

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/womp-app/womp/internal/config"
)

// Source reads the desktop's accent color and light/dark preference.
type Source interface {
	Accent() (colorful.Color, error)
	PrefersDark() (bool, error)
}

// DefaultAccent is used when the desktop exposes no accent color.
var DefaultAccent = colorful.Color{R: 0x00 / 255.0, G: 0x78 / 255.0, B: 0xd4 / 255.0}

// Palette is the system color set in the order windows expect it.
type Palette struct {
	Background   colorful.Color
	Foreground   colorful.Color
	AccentDark3  colorful.Color
	AccentDark2  colorful.Color
	AccentDark1  colorful.Color
	Accent       colorful.Color
	AccentLight1 colorful.Color
	AccentLight2 colorful.Color
	AccentLight3 colorful.Color
}

// shadeSteps are the Lab blend factors for the three dark and three light
// shades, nearest first.
var shadeSteps = [3]float64{0.2, 0.4, 0.6}

// Build derives a palette from an accent color.
func Build(accent colorful.Color, dark bool) Palette {
	accent = accent.Clamped()
	black := colorful.Color{}
	white := colorful.Color{R: 1, G: 1, B: 1}

	p := Palette{Accent: accent}
	if dark {
		p.Background, p.Foreground = black, white
	} else {
		p.Background, p.Foreground = white, black
	}
	p.AccentDark1 = accent.BlendLab(black, shadeSteps[0]).Clamped()
	p.AccentDark2 = accent.BlendLab(black, shadeSteps[1]).Clamped()
	p.AccentDark3 = accent.BlendLab(black, shadeSteps[2]).Clamped()
	p.AccentLight1 = accent.BlendLab(white, shadeSteps[0]).Clamped()
	p.AccentLight2 = accent.BlendLab(white, shadeSteps[1]).Clamped()
	p.AccentLight3 = accent.BlendLab(white, shadeSteps[2]).Clamped()
	return p
}

// Colors returns the palette as nine "rgb(r, g, b)" strings: Background,
// Foreground, AccentDark3..AccentDark1, Accent, AccentLight1..AccentLight3.
func (p Palette) Colors() []string {
	ordered := []colorful.Color{
		p.Background, p.Foreground,
		p.AccentDark3, p.AccentDark2, p.AccentDark1,
		p.Accent,
		p.AccentLight1, p.AccentLight2, p.AccentLight3,
	}
	out := make([]string, len(ordered))
	for i, c := range ordered {
		r, g, b := c.RGB255()
		out[i] = fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
	}
	return out
}

// Resolve reads src and builds the palette for the theme setting. Light and
// dark override the desktop preference; read failures fall back to the
// default accent and light mode.
func Resolve(src Source, t config.Theme) Palette {
	accent := DefaultAccent
	dark := false
	if src != nil {
		if c, err := src.Accent(); err == nil {
			accent = c
		}
		if d, err := src.PrefersDark(); err == nil {
			dark = d
		}
	}
	switch t {
	case config.ThemeDark:
		dark = true
	case config.ThemeLight:
		dark = false
	}
	return Build(accent, dark)
}
