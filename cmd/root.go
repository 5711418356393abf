package cmd

import (
	"fmt"
	"os"

	"shapesync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "shapesync",
	Short: "Shapesync replica daemon",
	Long: `Shapesync keeps a local embedded replica of remote shape tables.
It performs dependency-ordered full syncs, applies live change streams,
and pushes locally queued writes back to the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding at debug level gives readable ISO8601 timestamps
		// for a CLI invocation instead of the production epoch format.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
