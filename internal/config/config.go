// File: internal/config/config.go
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`
	ClientURL     string        `mapstructure:"CLIENT_URL"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSource          string        `mapstructure:"DB_SOURCE"` // URL form, used by golang-migrate
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`
	SQLitePath        string        `mapstructure:"SQLITE_PATH"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Uploads
	UploadsDir           string `mapstructure:"UPLOADS_DIR"`
	UploadsRoute         string `mapstructure:"UPLOADS_ROUTE"`
	MaxUploadFiles       int    `mapstructure:"MAX_UPLOAD_FILES"`
	MaxUploadFileSizeMB  int    `mapstructure:"MAX_UPLOAD_FILE_SIZE_MB"`
	// Part of a multipart body held in memory; the rest spills to temp files.
	MaxMultipartMemoryMB int    `mapstructure:"MAX_MULTIPART_MEMORY_MB"`

	// Admin access for status transitions
	APISecretKey string `mapstructure:"API_SECRET_KEY"`

	// Scoring
	WWSEurPerPoint float64 `mapstructure:"WWS_EUR_PER_POINT"`

	// Cron Jobs
	ListingReindexJobSchedule string `mapstructure:"LISTING_REINDEX_JOB_SCHEDULE"`

	// Elasticsearch Configuration. Empty disables indexing.
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// MaxMultipartMemoryBytes is the in-memory budget for parsing multipart bodies.
func (c *Config) MaxMultipartMemoryBytes() int64 {
	return int64(c.MaxMultipartMemoryMB) << 20
}

// MaxUploadFileSizeBytes is the per-photo size limit in bytes.
func (c *Config) MaxUploadFileSizeBytes() int64 {
	return int64(c.MaxUploadFileSizeMB) << 20
}

// GormDSN builds the key/value DSN the GORM postgres driver expects.
func (c *Config) GormDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "3001")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CLIENT_URL", "http://localhost:9000")

	v.SetDefault("DB_DRIVER", DBDriverSQLite)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "wws_listings_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("SQLITE_PATH", "data/apartments.db")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("UPLOADS_ROUTE", "/uploads")
	v.SetDefault("MAX_UPLOAD_FILES", 10)
	v.SetDefault("MAX_UPLOAD_FILE_SIZE_MB", 10)
	v.SetDefault("MAX_MULTIPART_MEMORY_MB", 8)

	v.SetDefault("API_SECRET_KEY", "")
	v.SetDefault("WWS_EUR_PER_POINT", 5.56)
	v.SetDefault("LISTING_REINDEX_JOB_SCHEDULE", "@daily")
	v.SetDefault("ELASTICSEARCH_URL", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute

	// DB_SOURCE is the URL form golang-migrate needs; derive it from the individual parts when unset.
	if strings.TrimSpace(cfg.DBSource) == "" {
		cfg.DBSource = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected %q or %q)", c.DBDriver, DBDriverPostgres, DBDriverSQLite)
	}
	if math.IsNaN(c.WWSEurPerPoint) || c.WWSEurPerPoint <= 0 {
		return fmt.Errorf("WWS_EUR_PER_POINT must be a positive number, got %v", c.WWSEurPerPoint)
	}
	if c.MaxUploadFiles <= 0 {
		return fmt.Errorf("MAX_UPLOAD_FILES must be positive, got %d", c.MaxUploadFiles)
	}
	if c.MaxUploadFileSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_FILE_SIZE_MB must be positive, got %d", c.MaxUploadFileSizeMB)
	}
	if c.MaxMultipartMemoryMB <= 0 {
		return fmt.Errorf("MAX_MULTIPART_MEMORY_MB must be positive, got %d", c.MaxMultipartMemoryMB)
	}
	if !strings.HasPrefix(c.UploadsRoute, "/") {
		c.UploadsRoute = "/" + c.UploadsRoute
	}
	return nil
}
