//go:build !linux && !windows

package autostart

type unsupported struct{}

// New returns a registrar that always fails with ErrUnsupported.
func New(Entry) Registrar {
	return unsupported{}
}

func (unsupported) SetEnabled(bool) error  { return ErrUnsupported }
func (unsupported) Enabled() (bool, error) { return false, ErrUnsupported }
