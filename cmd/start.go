package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shapesync/core/config"
	"shapesync/core/database"
	"shapesync/core/loader"
	"shapesync/core/logger"
	"shapesync/core/middleware/auth"
	"shapesync/core/middleware/rayid"
	"shapesync/core/remote"
	"shapesync/core/shape"
	"shapesync/core/status"
	"shapesync/core/storage"
	"shapesync/core/token"
	"shapesync/feature/live"
	"shapesync/feature/outbox"
	syncfeature "shapesync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the replica daemon",
	Long:  `Starts the local HTTP API, the initial sync, the live change streams and the outbox pusher.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect the local replica and create its schema
		shapes := shape.Registry()
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to open local replica database", zap.Error(err))
		}
		if err := database.Migrate(db, shapes); err != nil {
			logg.Fatal("Failed to migrate local replica", zap.Error(err))
		}

		// 4. Remote client and credentials
		tokens := token.NewProvider(
			cfg.Remote.AuthURL,
			cfg.Remote.AuthSecret,
			cfg.Remote.StaticToken,
			time.Duration(cfg.Remote.TimeoutSeconds)*time.Second,
		)
		client := remote.NewHTTPClient(cfg.Remote, tokens)

		// 5. Status publisher, restored from the last run
		pub := status.NewPublisher(db, logg)
		pub.Load()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// 6. Optional pre-repair archiver
		var archiver *syncfeature.Archiver
		if cfg.Storage.Enabled {
			store, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			archiver = syncfeature.NewArchiver(store, cfg.Storage.Bucket, logg)
			if err := archiver.EnsureBucket(ctx); err != nil {
				logg.Warn("Archive bucket unavailable", zap.Error(err))
			}
		}

		// 7. Reconciliation engine and live stream appliers
		engine := syncfeature.NewEngine(db, client, tokens, pub, archiver, shapes, cfg.Remote, logg)
		cursors := live.NewCursorStore(db)
		applier := live.NewApplier(
			db, client, cursors,
			engine.ForceFullTableSync,
			time.Duration(cfg.Sync.StreamBackoffMillis)*time.Millisecond,
			logg,
		)
		engine.OnShapeReady = func(s shape.Shape) {
			go applier.Run(ctx, s)
		}

		// 8. Outbox service and pusher
		svc := outbox.NewService(db, shapes, logg)
		pusher := outbox.NewPusher(
			db, client, svc, cfg.Remote,
			cfg.Sync.PushBatchSize,
			time.Duration(cfg.Sync.PushDebounceMillis)*time.Millisecond,
			time.Duration(cfg.Sync.PushIntervalSeconds)*time.Second,
			logg,
		)
		svc.SetNotify(pusher.Notify)
		go pusher.Run(ctx)

		go engine.Start(ctx)

		// 9. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// Middleware Registration
		// RayID must be first to trace everything.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 10. Feature Loader
		mgr := loader.NewManager()
		mgr.Register(syncfeature.NewFeature(true, engine, pub, logg))
		mgr.Register(outbox.NewFeature(true, svc, pusher, logg))
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 11. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 12. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down...")
		cancel()
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
