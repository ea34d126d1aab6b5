// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wws_listings_backend/internal/config"
	"wws_listings_backend/internal/filestorage"
	"wws_listings_backend/internal/jobs"
	"wws_listings_backend/internal/listing"
	"wws_listings_backend/internal/middleware"
	"wws_listings_backend/internal/platform/elasticsearch"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultServerTimeout applies when SERVER_TIMEOUT_SECONDS is unset.
const defaultServerTimeout = 30 * time.Second

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Exported for the startup code in cmd/server.
	ESClient  *elasticsearch.ESClientWrapper
	AppLogger *zap.Logger

	listingHandler *listing.Handler
	reindexJob     *jobs.ListingReindexJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	listingHandler *listing.Handler,
	photoStorage *filestorage.FileStorageService,
	reindexJob *jobs.ListingReindexJob,
	esClient *elasticsearch.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg.GinMode))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	adminMW := middleware.APIKeyAuthMiddleware(cfg.APISecretKey, logger.Named("AdminAuth"))
	if cfg.APISecretKey == "" {
		logger.Warn("API_SECRET_KEY is not set; listing status changes are disabled")
	}

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "WWS listings API is healthy!"})
	})

	api := router.Group("/api")
	api.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the WWS rental listings API"})
	})
	listingHandler.RegisterRoutes(api, adminMW)

	if photoStorage != nil {
		router.Static(photoStorage.PublicRoute(), photoStorage.StoragePath())
	}

	timeout := cfg.ServerTimeout
	if timeout <= 0 {
		timeout = defaultServerTimeout
	}
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:     httpServer,
		router:         router,
		cfg:            cfg,
		logger:         logger,
		ESClient:       esClient,
		AppLogger:      logger,
		listingHandler: listingHandler,
		reindexJob:     reindexJob,
	}, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	origins := []string{}
	for _, origin := range strings.Split(cfg.ClientURL, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.APIKeyHeader, middleware.RequestIDHeader}
	corsCfg.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	return corsCfg
}

// Router exposes the configured gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	if s.reindexJob != nil {
		if _, err := s.reindexJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start listing reindex job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.reindexJob != nil {
		s.reindexJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
