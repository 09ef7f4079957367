package daemon

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener shows a file or directory in the desktop's default handler.
type Opener func(path string) error

// OpenPath hands path to the platform file opener without waiting for it.
func OpenPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	go cmd.Wait()
	return nil
}
