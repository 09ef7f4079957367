package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/womp-app/womp/internal/ipc"
)

// NoInput is the input of tools without arguments.
type NoInput struct{}

func addTool[In any](s *Server, command, description string) {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        command,
		Description: description,
	}, forward[In](s, command))
}

func (s *Server) registerTools() {
	addTool[NoInput](s, ipc.CommandGetProfiles,
		"List every saved display profile with its metadata (display name, description, icon, run hooks). Profiles are returned in name order.")
	addTool[NoInput](s, ipc.CommandGetActiveProfile,
		"Return the name of the profile matching the current display layout, or null when none matches.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandApplyDisplayLayout,
		"Apply a saved profile: switch the display topology, then restore the optional captured settings (DPI, HDR, icon size, wallpaper, audio). Fails with layout_unavailable if a display in the profile is disconnected. Returns the applied profile and any warnings.")
	addTool[ipc.SaveCurrentArgs](s, ipc.CommandSaveCurrentDisplayLayout,
		"Capture the current display layout into a profile. Creates the profile if needed, otherwise replaces its layout and keeps its metadata, unless overwrite is false, in which case an existing profile fails with name_conflict. The name is sanitized into a slug.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandDeleteProfile,
		"Delete a profile and its files.")
	addTool[ipc.RenameProfileArgs](s, ipc.CommandRenameProfile,
		"Rename a profile. Returns the new slug. Fails with name_conflict if the target exists.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandCloneProfile,
		"Copy a profile to the first free name of the form <name>_copy, <name>_copy_2, ... Returns the new name.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandReadDisplayConfig,
		"Read a profile's metadata (display name, description, icon, before/after run hooks).")
	addTool[ipc.WriteDisplayConfigArgs](s, ipc.CommandWriteDisplayConfig,
		"Replace a profile's metadata. When run commands are enabled, hook targets must exist.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandOpenProfileDir,
		"Open a profile's directory in the desktop file manager.")
	addTool[ipc.ProfileNameArgs](s, ipc.CommandGetProfileDir,
		"Return the directory holding a profile's files.")
	addTool[NoInput](s, ipc.CommandNextProfile,
		"Apply the profile after the active one, wrapping around. Does nothing when no profile is active.")
	addTool[NoInput](s, ipc.CommandPreviousProfile,
		"Apply the profile before the active one, wrapping around. Does nothing when no profile is active.")
	addTool[NoInput](s, ipc.CommandTurnOffAllDisplays,
		"Put every display into power saving. Displays wake on input.")
	addTool[NoInput](s, ipc.CommandGetGlobalConfig,
		"Return the global settings: which optional fields are captured, run commands, active matching policy, tray icon, theme and autostart.")
	addTool[ipc.SetGlobalConfigArgs](s, ipc.CommandSetGlobalConfig,
		"Replace the global settings. Returns the stored config. autostart_mismatch means the settings were saved but OS startup registration failed.")
	addTool[NoInput](s, ipc.CommandGetSystemColors,
		"Return the nine window theme colors derived from the desktop accent color, as rgb(r, g, b) strings.")
	addTool[ipc.ChangeThemeArgs](s, ipc.CommandChangeTheme,
		"Set the window theme to system, light or dark.")
	addTool[ipc.EmitToWindowArgs](s, ipc.CommandEmitToWindow,
		"Send an event to a frontend window by name.")
	addTool[ipc.SetColorEventsArgs](s, ipc.CommandSetColorEventsEnabled,
		"Turn system-colors-changed events on or off.")
	addTool[NoInput](s, ipc.CommandGetConfigDir,
		"Return the WOMP configuration directory.")
	addTool[NoInput](s, ipc.CommandGetProfilesDir,
		"Return the directory holding all profiles.")
	addTool[NoInput](s, ipc.CommandPing,
		"Check that the daemon is running.")
	addTool[NoInput](s, ipc.CommandQuit,
		"Stop the WOMP daemon.")
}
