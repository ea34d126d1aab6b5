// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"wws_listings_backend/internal/app"
	"wws_listings_backend/internal/config"
	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/listing/esutil"
	"wws_listings_backend/internal/platform/elasticsearch"
	"wws_listings_backend/internal/platform/logger"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,
		elasticsearch.NewClient,

		// Listings
		listing.NewGORMRepository,
		provideCalculator,
		esutil.NewListingIndexer,
		listing.NewService,
		provideFileStorage,
		provideListingHandler,

		// Jobs
		provideReindexJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
