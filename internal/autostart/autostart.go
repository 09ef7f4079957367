// Package autostart registers the daemon with the desktop session so it
// starts at login.
package autostart

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned on platforms without a startup mechanism.
var ErrUnsupported = errors.New("autostart is not supported on this platform")

// Registrar toggles session startup registration.
type Registrar interface {
	SetEnabled(enabled bool) error
	Enabled() (bool, error)
}

// Entry describes what gets launched at login.
type Entry struct {
	Name    string
	Comment string
	Exec    string
	Args    []string
}

func (e Entry) commandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	parts = append(parts, quoteArg(e.Exec))
	for _, arg := range e.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"") {
		return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
	}
	return arg
}
