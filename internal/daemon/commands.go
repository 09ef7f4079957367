package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/womp-app/womp/internal/display"
	"github.com/womp-app/womp/internal/ipc"
)

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

func (s *Service) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		ipc.CommandGetProfiles: func(context.Context, json.RawMessage) (any, error) {
			return s.Profiles()
		},
		ipc.CommandGetActiveProfile: func(ctx context.Context, _ json.RawMessage) (any, error) {
			if name, ok := s.ActiveProfile(ctx); ok {
				return name, nil
			}
			return nil, nil
		},
		ipc.CommandDeleteProfile: withProfile(func(_ context.Context, name string) (any, error) {
			return nil, s.DeleteProfile(name)
		}),
		ipc.CommandRenameProfile: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.RenameProfileArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return s.RenameProfile(a.OldName, a.NewName)
		},
		ipc.CommandCloneProfile: withProfile(func(_ context.Context, name string) (any, error) {
			return s.CloneProfile(name)
		}),
		ipc.CommandWriteDisplayConfig: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.WriteDisplayConfigArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return nil, s.WriteDisplayConfig(a.ProfileName, a.Config)
		},
		ipc.CommandReadDisplayConfig: withProfile(func(_ context.Context, name string) (any, error) {
			return s.ReadDisplayConfig(name)
		}),
		ipc.CommandApplyDisplayLayout: withProfile(func(ctx context.Context, name string) (any, error) {
			res, err := s.ApplyDisplayLayout(ctx, name)
			return applyResult(res), err
		}),
		ipc.CommandSaveCurrentDisplayLayout: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a ipc.SaveCurrentArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return s.SaveCurrentDisplayLayout(ctx, a.ProfileName, a.OverwriteOrDefault())
		},
		ipc.CommandOpenProfileDir: withProfile(func(_ context.Context, name string) (any, error) {
			return nil, s.OpenProfileDir(name)
		}),
		ipc.CommandNextProfile: func(ctx context.Context, _ json.RawMessage) (any, error) {
			name, err := s.NextProfile(ctx)
			return ipc.ApplyResult{Profile: name}, err
		},
		ipc.CommandPreviousProfile: func(ctx context.Context, _ json.RawMessage) (any, error) {
			name, err := s.PreviousProfile(ctx)
			return ipc.ApplyResult{Profile: name}, err
		},
		ipc.CommandTurnOffAllDisplays: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, s.TurnOffAllDisplays(ctx)
		},
		ipc.CommandGetGlobalConfig: func(context.Context, json.RawMessage) (any, error) {
			return s.GlobalConfig(), nil
		},
		ipc.CommandSetGlobalConfig: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.SetGlobalConfigArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return s.SetGlobalConfig(a.GlobalConfig)
		},
		ipc.CommandGetSystemColors: func(context.Context, json.RawMessage) (any, error) {
			return s.SystemColors(), nil
		},
		ipc.CommandChangeTheme: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.ChangeThemeArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			return nil, s.ChangeTheme(a.Theme)
		},
		ipc.CommandEmitToWindow: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.EmitToWindowArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			s.EmitToWindow(a.WindowName, a.Event, a.Payload)
			return nil, nil
		},
		ipc.CommandSetColorEventsEnabled: func(_ context.Context, raw json.RawMessage) (any, error) {
			var a ipc.SetColorEventsArgs
			if err := ipc.DecodeArgs(raw, &a); err != nil {
				return nil, err
			}
			s.SetColorEventsEnabled(a.Enabled)
			return nil, nil
		},
		ipc.CommandGetConfigDir: func(context.Context, json.RawMessage) (any, error) {
			return s.ConfigDir(), nil
		},
		ipc.CommandGetProfilesDir: func(context.Context, json.RawMessage) (any, error) {
			return s.ProfilesDir(), nil
		},
		ipc.CommandGetProfileDir: withProfile(func(_ context.Context, name string) (any, error) {
			return s.ProfileDir(name)
		}),
		ipc.CommandPing: func(context.Context, json.RawMessage) (any, error) {
			return "pong", nil
		},
		ipc.CommandQuit: func(context.Context, json.RawMessage) (any, error) {
			s.Quit()
			return nil, nil
		},
	}
}

func (s *Service) commandTable() map[string]handlerFunc {
	s.cmdOnce.Do(func() { s.commands = s.handlers() })
	return s.commands
}

// CommandNames lists every command Call accepts.
func (s *Service) CommandNames() []string {
	names := make([]string, 0, len(s.commandTable()))
	for name := range s.commandTable() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func withProfile(fn func(ctx context.Context, name string) (any, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a ipc.ProfileNameArgs
		if err := ipc.DecodeArgs(raw, &a); err != nil {
			return nil, err
		}
		return fn(ctx, a.ProfileName)
	}
}

func applyResult(res display.Result) ipc.ApplyResult {
	out := ipc.ApplyResult{Warnings: res.Warnings}
	if res.Applied {
		out.Profile = res.Profile
	}
	return out
}

// Call runs a command by name. It implements ipc.Dispatcher and backs the
// window bridge.
func (s *Service) Call(ctx context.Context, command string, args json.RawMessage) (any, error) {
	h, ok := s.commandTable()[command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ipc.ErrUnknownCommand, command)
	}
	return h(ctx, args)
}
