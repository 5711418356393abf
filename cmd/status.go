package cmd

import (
	"fmt"
	"log"

	"shapesync/core/config"
	"shapesync/core/database"
	"shapesync/core/logger"
	"shapesync/core/shape"
	"shapesync/core/status"

	"github.com/spf13/cobra"
)

// statusCmd prints the persisted sync status and per-table row counts.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted sync status and replica row counts",
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

		pub := status.NewPublisher(db, logg)
		pub.Load()
		st, msg := pub.Get()

		fmt.Printf("status: %s\n", st)
		if msg != "" {
			fmt.Printf("message: %s\n", msg)
		}

		for _, s := range shapes {
			count, err := database.RowCount(db, s.Name)
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %d rows\n", s.Name, count)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
