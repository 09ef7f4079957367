package main

import (
	"github.com/spf13/cobra"

	"github.com/womp-app/womp/internal/daemon"
)

func newDaemonCommand(a *app) *cobra.Command {
	var opts daemon.Options
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the WOMP daemon (tray, IPC socket and window bridge)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.SocketPath = a.socketPath
			opts.Logger = a.logger
			return daemon.Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default: $WOMP_CONFIG_DIR or the user config dir)")
	cmd.Flags().StringVar(&opts.BridgeAddr, "bridge-addr", "", "Window bridge listen address (default: 127.0.0.1 on a free port)")
	cmd.Flags().BoolVar(&opts.NoTray, "no-tray", false, "Do not show the tray icon")
	cmd.Flags().DurationVar(&opts.ReconcileInterval, "reconcile-interval", 0, "How often the active profile is re-checked (default 10s)")
	return cmd
}
