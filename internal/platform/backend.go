package platform

import (
	"context"
	"errors"

	"github.com/womp-app/womp/internal/layout"
)

// ErrUnsupported is returned by setters the platform cannot implement.
var ErrUnsupported = errors.New("not supported on this platform")

// ErrOutputMissing is returned when a layout names a display that is not
// connected.
var ErrOutputMissing = errors.New("display not connected")

// Backend reads and changes the OS display configuration.
type Backend interface {
	// ReadLayout returns every connected display plus whichever optional
	// fields the platform can report. Unsupported fields are left nil.
	ReadLayout(ctx context.Context) (layout.Layout, error)
	// Validate checks that l can be applied as-is without touching the
	// live configuration.
	Validate(ctx context.Context, l layout.Layout) error
	// ApplyTopology commits the arrangement (enabled set, position, mode,
	// rotation, primary) of l in one step. If any part fails the backend
	// puts back the arrangement it read before the commit and returns the
	// original error; a failed restore is appended to that error.
	ApplyTopology(ctx context.Context, l layout.Layout) error
	// PowerOff puts every display into power saving.
	PowerOff(ctx context.Context) error

	Desktop
}

// Desktop changes the optional captured fields. Setters return
// ErrUnsupported when the platform has no way to change the value.
type Desktop interface {
	SetDPIScale(ctx context.Context, displayID string, percent int) error
	SetHDR(ctx context.Context, displayID string, enabled bool) error
	SetSDRWhiteLevel(ctx context.Context, displayID string, nits int) error
	SetIconSize(ctx context.Context, size int) error
	SetWallpaper(ctx context.Context, wp layout.Wallpaper) error
	SetAudioOutput(ctx context.Context, device string) error
}

// Closer is implemented by backends holding OS resources.
type Closer interface {
	Close() error
}
