//go:build linux

package theme

// NewSystemSource returns the desktop color source for this platform.
func NewSystemSource() Source {
	return GSettings{}
}
