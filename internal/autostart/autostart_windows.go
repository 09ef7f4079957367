//go:build windows

package autostart

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// RunKey registers the application under HKCU\...\CurrentVersion\Run.
type RunKey struct {
	Entry Entry
}

var _ Registrar = (*RunKey)(nil)

// New returns the registry-backed registrar.
func New(entry Entry) Registrar {
	return &RunKey{Entry: entry}
}

// SetEnabled writes or deletes the Run value.
func (r *RunKey) SetEnabled(enabled bool) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open run key: %w", err)
	}
	defer key.Close()

	if !enabled {
		if err := key.DeleteValue(r.Entry.Name); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("failed to delete run value: %w", err)
		}
		return nil
	}
	if err := key.SetStringValue(r.Entry.Name, r.Entry.commandLine()); err != nil {
		return fmt.Errorf("failed to set run value: %w", err)
	}
	return nil
}

// Enabled reports whether the Run value exists.
func (r *RunKey) Enabled() (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false, fmt.Errorf("failed to open run key: %w", err)
	}
	defer key.Close()

	if _, _, err := key.GetStringValue(r.Entry.Name); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
