// Package bridge exposes the command surface and the event bus to frontend
// windows over a loopback websocket.
package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/womp-app/womp/internal/womperr"
)

// Request is a command sent by a window.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Reply answers a Request with the same id.
type Reply struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Push carries an event to a window.
type Push struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newReply(id string, data any, err error) Reply {
	if err != nil {
		return Reply{ID: id, Error: err.Error(), Code: womperr.Code(err)}
	}
	return Reply{ID: id, OK: true, Data: data}
}

// WriteAddrFile records the bridge URL for windows and the CLI.
func WriteAddrFile(path, url string) error {
	if err := writeRuntimeFile(path, url); err != nil {
		return fmt.Errorf("failed to write bridge address: %w", err)
	}
	return nil
}

// WriteTokenFile records the per-run bridge token.
func WriteTokenFile(path, token string) error {
	if err := writeRuntimeFile(path, token); err != nil {
		return fmt.Errorf("failed to write bridge token: %w", err)
	}
	return nil
}

// ReadAddrFile returns the URL written by WriteAddrFile.
func ReadAddrFile(path string) (string, error) {
	return readRuntimeFile(path, "bridge address")
}

// ReadTokenFile returns the token written by WriteTokenFile.
func ReadTokenFile(path string) (string, error) {
	return readRuntimeFile(path, "bridge token")
}

func writeRuntimeFile(path, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create runtime dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

func readRuntimeFile(path, what string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s not found (is the daemon running?): %w", what, womperr.ErrNotFound)
		}
		return "", err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%s file %s is empty: %w", what, path, womperr.ErrNotFound)
	}
	return value, nil
}
