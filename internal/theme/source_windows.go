//go:build windows

package theme

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sys/windows/registry"
)

const (
	dwmKey         = `Software\Microsoft\Windows\DWM`
	personalizeKey = `Software\Microsoft\Windows\CurrentVersion\Themes\Personalize`
)

type registrySource struct{}

// Accent reads the DWM accent color, stored as 0xAABBGGRR.
func (registrySource) Accent() (colorful.Color, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, dwmKey, registry.QUERY_VALUE)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("open DWM key: %w", err)
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("AccentColor")
	if err != nil {
		return colorful.Color{}, fmt.Errorf("read AccentColor: %w", err)
	}
	r := uint8(v & 0xff)
	g := uint8((v >> 8) & 0xff)
	b := uint8((v >> 16) & 0xff)
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

func (registrySource) PrefersDark() (bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, personalizeKey, registry.QUERY_VALUE)
	if err != nil {
		return false, fmt.Errorf("open Personalize key: %w", err)
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("AppsUseLightTheme")
	if err != nil {
		return false, fmt.Errorf("read AppsUseLightTheme: %w", err)
	}
	return v == 0, nil
}

// NewSystemSource returns the desktop color source for this platform.
func NewSystemSource() Source {
	return registrySource{}
}
