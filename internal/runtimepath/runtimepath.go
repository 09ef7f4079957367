package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "WOMP"

// Dir returns the runtime directory used for the daemon IPC socket and the
// bridge discovery file. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present, non-Windows only)
// 3) <tmp>/womp-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	if runtime.GOOS != "windows" {
		runUserDir := fmt.Sprintf("/run/user/%d", uid)
		if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
			return runUserDir, nil
		}
	}

	tmpDir := filepath.Join(os.TempDir(), fmt.Sprintf("womp-runtime-%d", uid))
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "womp.sock"), nil
}

// BridgeAddrPath returns the file the daemon writes its websocket bridge
// address to, so windows started later can find it.
func BridgeAddrPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "womp-bridge.addr"), nil
}

// BridgeTokenPath returns the file holding the per-run bridge token. It sits
// next to the address file and is readable by the owner only.
func BridgeTokenPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "womp-bridge.token"), nil
}

// ConfigDir returns the WOMP configuration root. WOMP_CONFIG_DIR overrides
// the platform default (<user config dir>/WOMP).
func ConfigDir() (string, error) {
	if dir := os.Getenv("WOMP_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// ProfilesDir returns the directory holding one subdirectory per profile.
func ProfilesDir() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "profiles"), nil
}
