package cmd

import (
	"context"
	"log"
	"time"

	"shapesync/core/config"
	"shapesync/core/database"
	"shapesync/core/logger"
	"shapesync/core/remote"
	"shapesync/core/shape"
	"shapesync/core/status"
	"shapesync/core/token"
	syncfeature "shapesync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// repairCmd forces a full resync of one mirrored table.
var repairCmd = &cobra.Command{
	Use:   "repair [table]",
	Short: "Force a full resync of one table",
	Long: `Downloads the remote snapshot of the given table and reconciles the
local replica against it, regardless of the table's current state.

Examples:
  # Resync the todos table
  shapesync repair todos`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		shapes := shape.Registry()
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		if err := database.Migrate(db, shapes); err != nil {
			return err
		}

		tokens := token.NewProvider(
			cfg.Remote.AuthURL,
			cfg.Remote.AuthSecret,
			cfg.Remote.StaticToken,
			time.Duration(cfg.Remote.TimeoutSeconds)*time.Second,
		)
		client := remote.NewHTTPClient(cfg.Remote, tokens)

		// No status broadcast for a one-shot CLI repair.
		pub := status.NewPublisher(nil, logg)
		engine := syncfeature.NewEngine(db, client, tokens, pub, nil, shapes, cfg.Remote, logg)

		table := args[0]
		if err := engine.ForceFullTableSync(context.Background(), table); err != nil {
			return err
		}
		logg.Info("Table resynced", zap.String("table", table))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(repairCmd)
}
