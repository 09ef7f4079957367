// Package layout holds the captured display state stored with each profile
// and the rules for comparing it against the live system.
package layout

import (
	"errors"
	"fmt"
	"sort"
)

// WallpaperPosition is the fit mode of a desktop wallpaper.
type WallpaperPosition string

const (
	WallpaperCenter  WallpaperPosition = "center"
	WallpaperTile    WallpaperPosition = "tile"
	WallpaperStretch WallpaperPosition = "stretch"
	WallpaperFit     WallpaperPosition = "fit"
	WallpaperFill    WallpaperPosition = "fill"
	WallpaperSpan    WallpaperPosition = "span"
)

// Wallpaper is the desktop background image and how it is fitted.
type Wallpaper struct {
	Path     string            `json:"path"`
	Position WallpaperPosition `json:"position"`
}

// Display is one connected output. Pointer fields are optional captures; nil
// means the field was not captured and is left alone on apply.
type Display struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Enabled        bool   `json:"enabled"`
	Primary        bool   `json:"primary"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	RefreshMilliHz int    `json:"refresh_mhz"`
	Rotation       int    `json:"rotation"`

	DPIScale      *int  `json:"dpi_scale,omitempty"`
	HDRSupported  bool  `json:"hdr_supported"`
	HDREnabled    *bool `json:"hdr_enabled,omitempty"`
	SDRWhiteLevel *int  `json:"sdr_white_level,omitempty"`
}

// Layout is the full display state captured in a profile.
type Layout struct {
	Displays    []Display  `json:"displays"`
	IconSize    *int       `json:"icon_size,omitempty"`
	Wallpaper   *Wallpaper `json:"wallpaper,omitempty"`
	AudioOutput *string    `json:"audio_output,omitempty"`
}

// Fields selects which optional fields are captured and applied.
type Fields struct {
	DPIScale      bool
	IconSize      bool
	HDRState      bool
	SDRWhiteLevel bool
	Wallpaper     bool
	AudioOutput   bool
}

var (
	ErrNoDisplays      = errors.New("layout has no enabled displays")
	ErrDuplicateID     = errors.New("duplicate display id")
	ErrInvalidGeometry = errors.New("invalid display geometry")
	ErrMultiplePrimary = errors.New("more than one primary display")
)

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := Layout{
		Displays:    make([]Display, len(l.Displays)),
		IconSize:    cloneInt(l.IconSize),
		AudioOutput: cloneString(l.AudioOutput),
	}
	for i, d := range l.Displays {
		d.DPIScale = cloneInt(d.DPIScale)
		d.HDREnabled = cloneBool(d.HDREnabled)
		d.SDRWhiteLevel = cloneInt(d.SDRWhiteLevel)
		out.Displays[i] = d
	}
	if l.Wallpaper != nil {
		wp := *l.Wallpaper
		out.Wallpaper = &wp
	}
	return out
}

// Find returns the display with id.
func (l Layout) Find(id string) (Display, bool) {
	for _, d := range l.Displays {
		if d.ID == id {
			return d, true
		}
	}
	return Display{}, false
}

// Enabled returns the enabled displays sorted by id.
func (l Layout) Enabled() []Display {
	var out []Display
	for _, d := range l.Displays {
		if d.Enabled {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Strip returns a copy with every optional field not selected in f removed.
func (l Layout) Strip(f Fields) Layout {
	out := l.Clone()
	for i := range out.Displays {
		d := &out.Displays[i]
		if !f.DPIScale {
			d.DPIScale = nil
		}
		if !f.HDRState {
			d.HDREnabled = nil
		}
		if !f.HDRState || !f.SDRWhiteLevel {
			d.SDRWhiteLevel = nil
		}
	}
	if !f.IconSize {
		out.IconSize = nil
	}
	if !f.Wallpaper {
		out.Wallpaper = nil
	}
	if !f.AudioOutput {
		out.AudioOutput = nil
	}
	return out
}

// Missing returns the ids of enabled displays in want that are not connected
// in live, sorted.
func Missing(want, live Layout) []string {
	var missing []string
	for _, d := range want.Enabled() {
		if _, ok := live.Find(d.ID); !ok {
			missing = append(missing, d.ID)
		}
	}
	return missing
}

// Validate checks that l can be handed to a backend.
func Validate(l Layout) error {
	seen := make(map[string]struct{}, len(l.Displays))
	primaries := 0
	enabled := 0
	for _, d := range l.Displays {
		if d.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidGeometry)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
		if !d.Enabled {
			continue
		}
		enabled++
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("%w: %s is %dx%d", ErrInvalidGeometry, d.ID, d.Width, d.Height)
		}
		switch d.Rotation {
		case 0, 90, 180, 270:
		default:
			return fmt.Errorf("%w: %s rotation %d", ErrInvalidGeometry, d.ID, d.Rotation)
		}
		if d.Primary {
			primaries++
		}
	}
	if enabled == 0 {
		return ErrNoDisplays
	}
	if primaries > 1 {
		return ErrMultiplePrimary
	}
	return nil
}

// Bounds returns the size of the bounding box of all enabled displays,
// accounting for rotation.
func Bounds(l Layout) (width, height int) {
	for _, d := range l.Enabled() {
		w, h := d.Width, d.Height
		if d.Rotation == 90 || d.Rotation == 270 {
			w, h = h, w
		}
		if right := d.X + w; right > width {
			width = right
		}
		if bottom := d.Y + h; bottom > height {
			height = bottom
		}
	}
	return width, height
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
