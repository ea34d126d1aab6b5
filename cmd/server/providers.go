// File: cmd/server/providers.go
package main

import (
	"context"

	"wws_listings_backend/internal/config"
	"wws_listings_backend/internal/filestorage"
	"wws_listings_backend/internal/jobs"
	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/listing/esutil"
	"wws_listings_backend/internal/platform/database"
	"wws_listings_backend/internal/platform/elasticsearch"
	"wws_listings_backend/internal/scoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDatabase opens the configured database and, when DB_AUTO_MIGRATE is
// set, brings the schema up to date before anything else touches it.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		database.CloseGORMDB(db, logger)
	}

	if cfg.DBAutoMigrate {
		if err := database.Migrate(cfg, db, logger, &listing.Listing{}); err != nil {
			cleanup()
			return nil, nil, err
		}
		backfilled, err := listing.BackfillSearchText(context.Background(), db)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if backfilled > 0 {
			logger.Info("Backfilled listing search text", zap.Int("rows", backfilled))
		}
	}
	return db, cleanup, nil
}

func provideCalculator(cfg *config.Config) *scoring.Calculator {
	return scoring.NewCalculator(cfg.WWSEurPerPoint)
}

func provideFileStorage(cfg *config.Config, logger *zap.Logger) (*filestorage.FileStorageService, error) {
	return filestorage.NewFileStorageService(filestorage.Options{
		StoragePath: cfg.UploadsDir,
		PublicRoute: cfg.UploadsRoute,
		MaxFiles:    cfg.MaxUploadFiles,
		MaxFileSize: cfg.MaxUploadFileSizeBytes(),
	}, logger)
}

func provideListingHandler(
	service listing.Service,
	storage *filestorage.FileStorageService,
	logger *zap.Logger,
	cfg *config.Config,
) *listing.Handler {
	return listing.NewHandler(service, storage, logger.Named("ListingHandler"), cfg.MaxMultipartMemoryBytes())
}

// provideReindexJob hands the job a syncer only when a search client exists.
func provideReindexJob(
	repo listing.Repository,
	client *elasticsearch.ESClientWrapper,
	logger *zap.Logger,
	cfg *config.Config,
) *jobs.ListingReindexJob {
	var syncer jobs.IndexSyncer
	if client != nil {
		syncer = esutil.NewSyncer(repo, client, logger, esutil.DefaultSyncBatchSize)
	}
	return jobs.NewListingReindexJob(syncer, logger, cfg)
}
