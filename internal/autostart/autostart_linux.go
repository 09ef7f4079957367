//go:build linux

package autostart

// New returns the XDG autostart registrar.
func New(entry Entry) Registrar {
	return &XDG{Entry: entry}
}
