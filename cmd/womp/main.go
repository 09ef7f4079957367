package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/logging"
	"github.com/womp-app/womp/internal/womperr"
)

// app carries the state shared by every subcommand.
type app struct {
	verbose    bool
	socketPath string
	logFile    string
	logger     *zap.Logger
}

func (a *app) client() *ipc.Client {
	if a.socketPath != "" {
		return ipc.NewClientAt(a.socketPath)
	}
	return ipc.NewClient()
}

func (a *app) call(ctx context.Context, command string, args any, out any) error {
	return a.client().Call(ctx, command, args, out)
}

func newRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "womp",
		Short: "Save and switch display profiles",
		Long: `WOMP saves the arrangement of your displays (and optionally DPI scale,
HDR, icon size, wallpaper and audio output) as named profiles and switches
between them from the tray, the command line or an MCP client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{
				Verbose: a.verbose,
				File:    a.logFile,
				NoColor: !isTerminal(os.Stderr),
			})
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&a.socketPath, "socket", "", "Daemon socket path (default: runtime dir)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write logs to this file")

	root.AddCommand(
		newDaemonCommand(a),
		newListCommand(a),
		newActiveCommand(a),
		newApplyCommand(a),
		newSaveCommand(a),
		newDeleteCommand(a),
		newRenameCommand(a),
		newCloneCommand(a),
		newOpenCommand(a),
		newCycleCommand(a, "next", ipc.CommandNextProfile, "Apply the profile after the active one"),
		newCycleCommand(a, "previous", ipc.CommandPreviousProfile, "Apply the profile before the active one"),
		newOffCommand(a),
		newConfigCommand(a),
		newEventsCommand(a),
		newMCPCommand(a),
	)
	return root
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, womperr.ErrInvalidArgument):
		return 2
	case errors.Is(err, womperr.ErrNotFound):
		return 3
	case errors.Is(err, womperr.ErrBusy):
		return 4
	default:
		return 1
	}
}

func main() {
	// Allow starting from Explorer without a console warning.
	cobra.MousetrapHelpText = ""

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
