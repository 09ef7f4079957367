package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/womp-app/womp/internal/mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve WOMP tools over stdio (requires a running daemon)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return mcp.NewServer(a.client(), a.logger).Run(ctx)
		},
	})
	return cmd
}
