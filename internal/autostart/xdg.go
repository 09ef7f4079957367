package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// XDG manages a freedesktop autostart entry under
// $XDG_CONFIG_HOME/autostart (or ~/.config/autostart).
type XDG struct {
	Entry Entry
	// Dir overrides the autostart directory.
	Dir string
}

var _ Registrar = (*XDG)(nil)

func (x *XDG) dir() (string, error) {
	if x.Dir != "" {
		return x.Dir, nil
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

func (x *XDG) path() (string, error) {
	dir, err := x.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.ToLower(x.Entry.Name)+".desktop"), nil
}

// SetEnabled writes or removes the .desktop file.
func (x *XDG) SetEnabled(enabled bool) error {
	path, err := x.path()
	if err != nil {
		return err
	}

	if !enabled {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(x.desktopFile()), 0644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return nil
}

// Enabled reports whether the .desktop file exists.
func (x *XDG) Enabled() (bool, error) {
	path, err := x.path()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (x *XDG) desktopFile() string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", x.Entry.Name)
	if x.Entry.Comment != "" {
		fmt.Fprintf(&b, "Comment=%s\n", x.Entry.Comment)
	}
	fmt.Fprintf(&b, "Exec=%s\n", x.Entry.commandLine())
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}
