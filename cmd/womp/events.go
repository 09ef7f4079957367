package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/bridge"
	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/runtimepath"
)

func newEventsCommand(a *app) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print events pushed to a window until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			addrPath, err := runtimepath.BridgeAddrPath()
			if err != nil {
				return err
			}
			url, err := bridge.ReadAddrFile(addrPath)
			if err != nil {
				return err
			}
			tokenPath, err := runtimepath.BridgeTokenPath()
			if err != nil {
				return err
			}
			token, err := bridge.ReadTokenFile(tokenPath)
			if err != nil {
				return err
			}
			a.logger.Debug("listening for events", zap.String("url", url), zap.String("window", window))

			out := cmd.OutOrStdout()
			return bridge.Listen(ctx, url, token, window, func(p bridge.Push) {
				fmt.Fprintf(out, "%s %s\n", p.Event, p.Payload)
			})
		},
	}
	cmd.Flags().StringVar(&window, "window", eventbus.WindowMain, "Window name to listen as")
	return cmd
}
