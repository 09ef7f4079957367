//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// New returns an error: display control is implemented for Linux (X11) and
// Windows only.
func New(*zap.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
}
