package config

import "strings"

// Theme selects the window theme pushed to every window.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// TrayIcon is the glyph shown in the notification area.
type TrayIcon string

const (
	TrayIconWomp    TrayIcon = "womp"
	TrayIconDisplay TrayIcon = "display"
	TrayIconMonitor TrayIcon = "monitor"
)

// MatchPolicy controls how the live layout is compared against stored
// profiles when deriving the active profile.
type MatchPolicy string

const (
	// MatchTopology compares the set of enabled displays, their geometry,
	// refresh rate, rotation and primary flag.
	MatchTopology MatchPolicy = "topology"
	// MatchExact additionally compares every optional field the profile
	// captured (DPI scale, HDR, SDR level, icon size, wallpaper, audio).
	MatchExact MatchPolicy = "exact"
)

// GlobalConfig is the process-wide settings object. Writes always replace
// the whole struct.
type GlobalConfig struct {
	Autostart         bool        `yaml:"autostart" json:"autostart"`
	Theme             Theme       `yaml:"theme" json:"theme"`
	TrayIcon          TrayIcon    `yaml:"tray_icon" json:"tray_icon"`
	RunCommands       bool        `yaml:"run_commands" json:"run_commands"`
	SaveDPIScale      bool        `yaml:"save_dpi_scale" json:"save_dpi_scale"`
	SaveIconSize      bool        `yaml:"save_icon_size" json:"save_icon_size"`
	SaveHDRState      bool        `yaml:"save_hdr_state" json:"save_hdr_state"`
	SaveSDRWhiteLevel bool        `yaml:"save_sdr_white_level" json:"save_sdr_white_level"`
	SaveWallpaperInfo bool        `yaml:"save_wallpaper_info" json:"save_wallpaper_info"`
	SaveAudioOutput   bool        `yaml:"save_audio_output" json:"save_audio_output"`
	ActiveMatch       MatchPolicy `yaml:"active_match" json:"active_match"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() GlobalConfig {
	return GlobalConfig{
		Autostart:   false,
		Theme:       ThemeSystem,
		TrayIcon:    TrayIconWomp,
		RunCommands: true,
		ActiveMatch: MatchTopology,
	}
}

// Normalize returns a copy with enum values folded to their canonical form
// (unknown values fall back to defaults) and cross-field rules applied.
func (c GlobalConfig) Normalize() GlobalConfig {
	c.Theme = ParseTheme(string(c.Theme))
	c.TrayIcon = ParseTrayIcon(string(c.TrayIcon))
	c.ActiveMatch = ParseMatchPolicy(string(c.ActiveMatch))

	// SDR white level is only meaningful while HDR state is captured.
	if !c.SaveHDRState {
		c.SaveSDRWhiteLevel = false
	}
	return c
}

// ParseTheme maps s to a Theme, defaulting to ThemeSystem.
func ParseTheme(s string) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeSystem
	}
}

// ParseTrayIcon maps s to a TrayIcon, defaulting to TrayIconWomp.
func ParseTrayIcon(s string) TrayIcon {
	switch TrayIcon(strings.ToLower(strings.TrimSpace(s))) {
	case TrayIconDisplay:
		return TrayIconDisplay
	case TrayIconMonitor:
		return TrayIconMonitor
	default:
		return TrayIconWomp
	}
}

// ParseMatchPolicy maps s to a MatchPolicy, defaulting to MatchTopology.
func ParseMatchPolicy(s string) MatchPolicy {
	if MatchPolicy(strings.ToLower(strings.TrimSpace(s))) == MatchExact {
		return MatchExact
	}
	return MatchTopology
}
