package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/womp-app/womp/internal/config"
	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/womperr"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change global settings",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print settings with their source (file or default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, fileKeys, err := a.loadSettings(ctx)
			if err != nil {
				return err
			}
			keys := config.Keys()
			if len(args) == 1 {
				keys = args
			}
			for _, key := range keys {
				v, src, err := config.Explain(cfg, fileKeys, key)
				if err != nil {
					if s := suggest(key, config.Keys()); s != "" {
						return fmt.Errorf("%w (did you mean %q?)", err, s)
					}
					return err
				}
				if len(args) == 1 {
					fmt.Fprintln(cmd.OutOrStdout(), v)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-8v (%s)\n", key, v, src)
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var cfg config.GlobalConfig
			if err := a.call(ctx, ipc.CommandGetGlobalConfig, nil, &cfg); err != nil {
				return err
			}
			next, err := config.WithSetting(cfg, args[0], args[1])
			if err != nil {
				return err
			}
			var stored config.GlobalConfig
			err = a.call(ctx, ipc.CommandSetGlobalConfig, ipc.SetGlobalConfigArgs{GlobalConfig: next}, &stored)
			if errors.Is(err, womperr.ErrAutostartMismatch) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
				return nil
			}
			return err
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configPath(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, pathCmd)
	return cmd
}

func (a *app) configPath(ctx context.Context) (string, error) {
	var dir string
	if err := a.call(ctx, ipc.CommandGetConfigDir, nil, &dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// loadSettings fetches the live settings from the daemon and the keys
// explicitly present in its config file.
func (a *app) loadSettings(ctx context.Context) (config.GlobalConfig, map[string]bool, error) {
	var cfg config.GlobalConfig
	if err := a.call(ctx, ipc.CommandGetGlobalConfig, nil, &cfg); err != nil {
		return cfg, nil, err
	}
	path, err := a.configPath(ctx)
	if err != nil {
		return cfg, nil, err
	}
	fileKeys, err := config.FileKeys(path)
	if err != nil {
		a.logger.Debug("config file unreadable, reporting defaults")
		fileKeys = map[string]bool{}
	}
	return cfg, fileKeys, nil
}
