package layout

import (
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

// Matches reports whether live satisfies stored. Topology matching compares
// the enabled display set with geometry, refresh, rotation and primary flag.
// Exact matching also compares every optional field stored captured.
func Matches(stored, live Layout, exact bool) bool {
	want := stored.Enabled()
	got := live.Enabled()
	if len(want) == 0 || len(want) != len(got) {
		return false
	}

	for i := range want {
		if !sameTopology(want[i], got[i]) {
			return false
		}
		if exact && !sameDisplayExtras(want[i], got[i]) {
			return false
		}
	}

	if !exact {
		return true
	}
	if stored.IconSize != nil && (live.IconSize == nil || *stored.IconSize != *live.IconSize) {
		return false
	}
	if stored.Wallpaper != nil && (live.Wallpaper == nil || *stored.Wallpaper != *live.Wallpaper) {
		return false
	}
	if stored.AudioOutput != nil && (live.AudioOutput == nil || *stored.AudioOutput != *live.AudioOutput) {
		return false
	}
	return true
}

func sameTopology(a, b Display) bool {
	return a.ID == b.ID &&
		a.X == b.X && a.Y == b.Y &&
		a.Width == b.Width && a.Height == b.Height &&
		a.Rotation == b.Rotation &&
		a.Primary == b.Primary &&
		sameRefresh(a.RefreshMilliHz, b.RefreshMilliHz)
}

// Refresh rates are reported with different rounding across drivers, so
// anything within half a hertz is treated as equal. Zero means unknown.
func sameRefresh(a, b int) bool {
	if a == 0 || b == 0 {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 500
}

func sameDisplayExtras(want, got Display) bool {
	if want.DPIScale != nil && (got.DPIScale == nil || *want.DPIScale != *got.DPIScale) {
		return false
	}
	if want.HDREnabled != nil && (got.HDREnabled == nil || *want.HDREnabled != *got.HDREnabled) {
		return false
	}
	if want.SDRWhiteLevel != nil && (got.SDRWhiteLevel == nil || *want.SDRWhiteLevel != *got.SDRWhiteLevel) {
		return false
	}
	return true
}

// Fingerprint hashes l independently of display order.
func Fingerprint(l Layout) (uint64, error) {
	canonical := l.Clone()
	canonical.Displays = append(canonical.Enabled(), disabled(l)...)
	h, err := hashstructure.Hash(canonical, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fingerprint layout: %w", err)
	}
	return h, nil
}

func disabled(l Layout) []Display {
	var out []Display
	for _, d := range l.Clone().Displays {
		if !d.Enabled {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
