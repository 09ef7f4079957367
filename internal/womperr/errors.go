// Package womperr defines the error kinds shared by the profile store, the
// display engine and the command surface.
package womperr

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNameConflict        = errors.New("name conflict")
	ErrEmptyName           = errors.New("name is empty after sanitization")
	ErrLayoutUnavailable   = errors.New("layout unavailable")
	ErrCommandLaunchFailed = errors.New("command launch failed")
	ErrBusy                = errors.New("busy")
	ErrPersistence         = errors.New("persistence error")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAutostartMismatch   = errors.New("autostart registration does not match config")
)

// Wire codes reported to callers alongside the error message.
const (
	CodeNotFound            = "not_found"
	CodeNameConflict        = "name_conflict"
	CodeEmptyName           = "empty_name"
	CodeLayoutUnavailable   = "layout_unavailable"
	CodeCommandLaunchFailed = "command_launch_failed"
	CodeBusy                = "busy"
	CodePersistence         = "persistence_error"
	CodeInvalidArgument     = "invalid_argument"
	CodeAutostartMismatch   = "autostart_mismatch"
	CodeInternal            = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrNameConflict, CodeNameConflict},
	{ErrEmptyName, CodeEmptyName},
	{ErrLayoutUnavailable, CodeLayoutUnavailable},
	{ErrCommandLaunchFailed, CodeCommandLaunchFailed},
	{ErrBusy, CodeBusy},
	{ErrPersistence, CodePersistence},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrAutostartMismatch, CodeAutostartMismatch},
}

// Code returns the wire code for err, or "" for a nil error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode maps a wire code back to its sentinel so clients can use errors.Is
// on errors that crossed a process boundary.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
