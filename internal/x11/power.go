package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/dpms"
)

// ForceDisplaysOff blanks every monitor through DPMS. Any input wakes them.
func (c *Connection) ForceDisplaysOff() error {
	conn := c.Conn()
	if err := dpms.Init(conn); err != nil {
		return fmt.Errorf("dpms init failed: %w", err)
	}
	if err := dpms.EnableChecked(conn).Check(); err != nil {
		return fmt.Errorf("failed to enable dpms: %w", err)
	}
	if err := dpms.ForceLevelChecked(conn, dpms.DPMSModeOff).Check(); err != nil {
		return fmt.Errorf("failed to force dpms off: %w", err)
	}
	return nil
}
