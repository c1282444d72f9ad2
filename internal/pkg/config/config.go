package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":9091"`

	// Upstream catalog API.
	CatalogBaseURL  string `env:"CATALOG_BASE_URL,required"`
	CatalogPageSize int    `env:"CATALOG_PAGE_SIZE" envDefault:"50"`
	CatalogFilter   string `env:"CATALOG_FILTER"`
	CatalogSort     string `env:"CATALOG_SORT"`

	// Shared cache backend: memory, redis, postgres, or file.
	CacheBackend     string        `env:"CACHE_BACKEND" envDefault:"memory"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	PostgresURL      string        `env:"POSTGRES_URL"`
	CacheDir         string        `env:"CACHE_DIR" envDefault:"data/cache"`
	FilePollInterval time.Duration `env:"FILE_POLL_INTERVAL" envDefault:"2s"`

	// Refresh and aggregation tuning.
	CatalogTTL         time.Duration `env:"CATALOG_TTL" envDefault:"5m"`
	RefreshOnMount     bool          `env:"REFRESH_ON_MOUNT" envDefault:"true"`
	FetchIfEmpty       bool          `env:"FETCH_IF_EMPTY" envDefault:"false"`
	OffloadThreshold   int           `env:"OFFLOAD_THRESHOLD" envDefault:"300"`
	AggregateChunkSize int           `env:"AGGREGATE_CHUNK_SIZE" envDefault:"200"`
	BucketVehicleIDCap int           `env:"BUCKET_VEHICLE_ID_CAP" envDefault:"30"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
