package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/womperr"
)

func (a *app) profiles(ctx context.Context) ([]profile.Profile, error) {
	var list []profile.Profile
	if err := a.call(ctx, ipc.CommandGetProfiles, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *app) active(ctx context.Context) (string, error) {
	var name *string
	if err := a.call(ctx, ipc.CommandGetActiveProfile, nil, &name); err != nil {
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return *name, nil
}

// withSuggestion decorates a not-found error with the closest profile name.
func (a *app) withSuggestion(ctx context.Context, err error, name string) error {
	if !errors.Is(err, womperr.ErrNotFound) {
		return err
	}
	list, lerr := a.profiles(ctx)
	if lerr != nil {
		return err
	}
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	if s := suggest(name, names); s != "" {
		return fmt.Errorf("%w (did you mean %q?)", err, s)
	}
	return err
}

func newListCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := a.profiles(ctx)
			if err != nil {
				return err
			}
			active, err := a.active(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Profiles []profile.Profile `json:"profiles"`
					Active   string            `json:"active,omitempty"`
				}{list, active})
			}
			renderProfiles(out, list, active, isTerminal(os.Stdout))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newActiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the profile matching the current layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.active(cmd.Context())
			if err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("no profile matches the current layout: %w", womperr.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func printApplyResult(cmd *cobra.Command, res ipc.ApplyResult) {
	if res.Profile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", res.Profile)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
}

func newApplyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <profile>",
		Short: "Apply a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var res ipc.ApplyResult
			err := a.call(ctx, ipc.CommandApplyDisplayLayout, ipc.ProfileNameArgs{ProfileName: args[0]}, &res)
			printApplyResult(cmd, res)
			if err != nil {
				return a.withSuggestion(ctx, err, args[0])
			}
			return nil
		},
	}
}

func newSaveCommand(a *app) *cobra.Command {
	var onlyNew bool
	cmd := &cobra.Command{
		Use:   "save <profile>",
		Short: "Save the current layout as a profile",
		Long:  "Save the current layout. An existing profile keeps its metadata and has its layout replaced, unless --new is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite := !onlyNew
			req := ipc.SaveCurrentArgs{ProfileName: args[0], Overwrite: &overwrite}
			var p profile.Profile
			if err := a.call(cmd.Context(), ipc.CommandSaveCurrentDisplayLayout, req, &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved current layout as %s\n", p.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyNew, "new", false, "Fail if the profile already exists instead of replacing its layout")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <profile>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.call(ctx, ipc.CommandDeleteProfile, ipc.ProfileNameArgs{ProfileName: args[0]}, nil); err != nil {
				return a.withSuggestion(ctx, err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rename <profile> <new-name>",
		Aliases: []string{"mv"},
		Short:   "Rename a profile",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var slug string
			if err := a.call(ctx, ipc.CommandRenameProfile, ipc.RenameProfileArgs{OldName: args[0], NewName: args[1]}, &slug); err != nil {
				return a.withSuggestion(ctx, err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], slug)
			return nil
		},
	}
}

func newCloneCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "clone <profile>",
		Aliases: []string{"cp"},
		Short:   "Copy a profile under a free <name>_copy name",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var clone string
			if err := a.call(ctx, ipc.CommandCloneProfile, ipc.ProfileNameArgs{ProfileName: args[0]}, &clone); err != nil {
				return a.withSuggestion(ctx, err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cloned %s to %s\n", args[0], clone)
			return nil
		},
	}
}

func newOpenCommand(a *app) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "open <profile>",
		Short: "Open a profile's directory in the file manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if printOnly {
				var dir string
				if err := a.call(ctx, ipc.CommandGetProfileDir, ipc.ProfileNameArgs{ProfileName: args[0]}, &dir); err != nil {
					return a.withSuggestion(ctx, err, args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			}
			if err := a.call(ctx, ipc.CommandOpenProfileDir, ipc.ProfileNameArgs{ProfileName: args[0]}, nil); err != nil {
				return a.withSuggestion(ctx, err, args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the directory instead of opening it")
	return cmd
}

func newCycleCommand(a *app, use, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res ipc.ApplyResult
			err := a.call(cmd.Context(), command, nil, &res)
			printApplyResult(cmd, res)
			if err != nil {
				return err
			}
			if res.Profile == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No active profile to cycle from")
			}
			return nil
		},
	}
}

func newOffCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Put every display into power saving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd.Context(), ipc.CommandTurnOffAllDisplays, nil, nil)
		},
	}
}
