package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/womp-app/womp/internal/config"
	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/womperr"
)

// Command names shared by every transport.
const (
	CommandGetProfiles              = "get_profiles"
	CommandGetActiveProfile         = "get_active_profile"
	CommandDeleteProfile            = "delete_profile"
	CommandRenameProfile            = "rename_profile"
	CommandCloneProfile             = "clone_profile"
	CommandWriteDisplayConfig       = "write_display_config"
	CommandReadDisplayConfig        = "read_display_config"
	CommandApplyDisplayLayout       = "apply_display_layout"
	CommandSaveCurrentDisplayLayout = "save_current_display_layout"
	CommandOpenProfileDir           = "open_profile_dir"
	CommandNextProfile              = "next_profile"
	CommandPreviousProfile          = "previous_profile"
	CommandTurnOffAllDisplays       = "turn_off_all_displays"
	CommandGetGlobalConfig          = "get_global_config"
	CommandSetGlobalConfig          = "set_global_config"
	CommandGetSystemColors          = "get_system_colors"
	CommandChangeTheme              = "change_theme"
	CommandEmitToWindow             = "emit_to_window"
	CommandSetColorEventsEnabled    = "set_color_events_enabled"
	CommandGetConfigDir             = "get_config_dir"
	CommandGetProfilesDir           = "get_profiles_dir"
	CommandGetProfileDir            = "get_profile_dir"
	CommandPing                     = "ping"
	CommandQuit                     = "quit"
)

// Request is one JSON line sent by a client.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Response answers a Request. Code carries the womperr wire code on errors.
type Response struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// ProfileNameArgs names a single profile.
type ProfileNameArgs struct {
	ProfileName string `json:"profileName" jsonschema:"Profile name (slug) as listed by get_profiles"`
}

// SaveCurrentArgs names the profile to capture into. Overwrite defaults to
// true; false makes an existing profile a name_conflict error.
type SaveCurrentArgs struct {
	ProfileName string `json:"profileName" jsonschema:"Profile name; it is sanitized into a slug"`
	Overwrite   *bool  `json:"overwrite,omitempty" jsonschema:"Replace the layout of an existing profile (default true); false fails with name_conflict instead"`
}

// OverwriteOrDefault reports whether an existing profile may be replaced.
func (a SaveCurrentArgs) OverwriteOrDefault() bool {
	return a.Overwrite == nil || *a.Overwrite
}

type RenameProfileArgs struct {
	OldName string `json:"oldName" jsonschema:"Current profile name"`
	NewName string `json:"newName" jsonschema:"New profile name; it is sanitized into a slug"`
}

type WriteDisplayConfigArgs struct {
	ProfileName string         `json:"profileName" jsonschema:"Profile name"`
	Config      profile.Config `json:"config" jsonschema:"Profile metadata and run hooks"`
}

type SetGlobalConfigArgs struct {
	GlobalConfig config.GlobalConfig `json:"globalConfig" jsonschema:"Full global config; every field is replaced"`
}

type ChangeThemeArgs struct {
	Theme string `json:"theme" jsonschema:"system, light or dark"`
}

type EmitToWindowArgs struct {
	WindowName string `json:"windowName" jsonschema:"Target window, e.g. main or dialog"`
	Event      string `json:"event" jsonschema:"Event name"`
	Payload    string `json:"payload" jsonschema:"Event payload"`
}

type SetColorEventsArgs struct {
	Enabled bool `json:"enabled" jsonschema:"Whether system-colors-changed events are pushed"`
}

// ApplyResult is returned by apply_display_layout, next_profile and
// previous_profile. Profile is empty when nothing was applied.
type ApplyResult struct {
	Profile  string   `json:"profile,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewOKResponse creates a successful response with optional data.
func NewOKResponse(id string, data any) (*Response, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		raw = b
	}
	return &Response{ID: id, Status: StatusOK, Data: raw}, nil
}

// NewErrorResponse creates an error response carrying err's wire code.
func NewErrorResponse(id string, err error) *Response {
	return &Response{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
		Code:   womperr.Code(err),
	}
}

// Err rebuilds the error of an error response so errors.Is works across
// the process boundary. It returns nil for OK responses.
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}
	return &RemoteError{Message: r.Error, Code: r.Code}
}

// RemoteError is an error reported by the daemon.
type RemoteError struct {
	Message string
	Code    string
}

func (e *RemoteError) Error() string { return e.Message }

// Unwrap maps the wire code back to its sentinel.
func (e *RemoteError) Unwrap() error { return womperr.FromCode(e.Code) }

// ParseRequest parses a request from JSON bytes.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: failed to parse request: %v", womperr.ErrInvalidArgument, err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("%w: missing command", womperr.ErrInvalidArgument)
	}
	return &req, nil
}

// DecodeArgs unmarshals raw into out. Empty args decode to the zero value.
func DecodeArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", womperr.ErrInvalidArgument, err)
	}
	return nil
}

// Marshal converts a response to JSON bytes.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
