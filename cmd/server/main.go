// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"wws_listings_backend/internal/config"
	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/listing/esutil"
	"wws_listings_backend/internal/platform/database"
	platformElasticsearch "wws_listings_backend/internal/platform/elasticsearch"
	"wws_listings_backend/internal/platform/logger"

	"go.uber.org/zap"
)

const usage = `Usage:
  server                       start the HTTP API
  server sync-listings [flags] re-index every listing into Elasticsearch
  server migrate up|down       apply or roll back the postgres migrations`

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sync-listings":
			runSyncCommand(os.Args[2:])
			return
		case "migrate":
			runMigrateCommand(os.Args[2:])
			return
		case "-h", "--help", "help":
			fmt.Println(usage)
			return
		}
	}

	startServer()
}

func loadConfigAndLogger(purpose string) (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for %s: %v", purpose, err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for %s: %v", purpose, err)
	}
	return cfg, appLogger
}

func runSyncCommand(args []string) {
	syncListingsCmd := flag.NewFlagSet("sync-listings", flag.ExitOnError)
	batchSize := syncListingsCmd.Int("batch-size", esutil.DefaultSyncBatchSize, "Batch size for syncing listings")
	_ = syncListingsCmd.Parse(args)

	cfg, appLogger := loadConfigAndLogger("sync")
	defer appLogger.Sync() //nolint:errcheck

	db, closeDB, err := provideDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize database for sync", zap.Error(err))
	}
	defer closeDB()

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("FATAL: ELASTICSEARCH_URL must be set to sync listings.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := esutil.NewSyncer(listing.NewGORMRepository(db), esClient, appLogger, *batchSize)
	indexed, err := syncer.Sync(ctx)
	if err != nil {
		appLogger.Fatal("FATAL: Listing synchronization failed", zap.Int("indexed", indexed), zap.Error(err))
	}
	appLogger.Info("Listing synchronization completed successfully.", zap.Int("indexed", indexed))
}

func runMigrateCommand(args []string) {
	if len(args) != 1 || (args[0] != "up" && args[0] != "down") {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, appLogger := loadConfigAndLogger("migrate")
	defer appLogger.Sync() //nolint:errcheck

	if cfg.DBDriver != config.DBDriverPostgres {
		appLogger.Fatal("FATAL: The migrate command only supports DB_DRIVER=postgres; sqlite is auto-migrated on startup.")
	}

	var err error
	if args[0] == "up" {
		err = database.MigratePostgresUp(cfg.DBSource, appLogger)
	} else {
		err = database.MigratePostgresDown(cfg.DBSource, appLogger)
	}
	if err != nil {
		appLogger.Fatal("FATAL: Migration failed", zap.String("direction", args[0]), zap.Error(err))
	}
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	if server.ESClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
		if err := platformElasticsearch.CreateListingsIndexIfNotExists(ctx, server.ESClient, server.AppLogger); err != nil {
			server.AppLogger.Error("Failed to create Elasticsearch listings index", zap.Error(err))
		}
		cancel()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		server.AppLogger.Info("Received signal, shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			server.AppLogger.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		server.AppLogger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		server.AppLogger.Info("Server shutdown complete.")
	}
	_ = server.AppLogger.Sync()
}
