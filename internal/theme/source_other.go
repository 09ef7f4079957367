//go:build !linux && !windows

package theme

import (
	"errors"

	"github.com/lucasb-eyer/go-colorful"
)

type noSource struct{}

func (noSource) Accent() (colorful.Color, error) {
	return colorful.Color{}, errors.New("no accent color source on this platform")
}

func (noSource) PrefersDark() (bool, error) {
	return false, errors.New("no theme source on this platform")
}

// NewSystemSource returns the desktop color source for this platform.
func NewSystemSource() Source {
	return noSource{}
}
