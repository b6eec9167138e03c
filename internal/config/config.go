// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"proceres/internal/blob"
	s3store "proceres/internal/infra/blob/s3"
)

// Config holds all application configuration.
type Config struct {
	LogMode       string `env:"LOG_MODE" envDefault:"dev"`
	AssetsBaseURL string `env:"ASSETS_BASE_URL" envDefault:"http://localhost:3000"`

	Storage StorageConfig
	Blob    BlobConfig
	Ingest  IngestConfig
	Setup   SetupConfig
}

// StorageConfig selects the persistent store.
type StorageConfig struct {
	Driver      string `env:"PROCERES_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"PROCERES_SQLITE_PATH" envDefault:"proceres.db"`
	PostgresDSN string `env:"PROCERES_POSTGRES_DSN"`
}

// BlobConfig selects the blob backend used for generated marker images.
type BlobConfig struct {
	Driver string `env:"PROCERES_BLOB_DRIVER" envDefault:"fs"`
	FSRoot string `env:"PROCERES_BLOB_FS_ROOT" envDefault:"./blobdata"`
	S3     S3Config
}

// S3Config carries PROCERES_BLOB_S3_* settings. Credentials fall back to the
// default AWS chain when the key pair is empty.
type S3Config struct {
	Bucket          string `env:"PROCERES_BLOB_S3_BUCKET"`
	Region          string `env:"PROCERES_BLOB_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"PROCERES_BLOB_S3_ENDPOINT"`
	PathStyle       bool   `env:"PROCERES_BLOB_S3_PATH_STYLE" envDefault:"false"`
	AccessKeyID     string `env:"PROCERES_BLOB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"PROCERES_BLOB_S3_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"PROCERES_BLOB_S3_SESSION_TOKEN"`
	PublicBaseURL   string `env:"PROCERES_BLOB_S3_PUBLIC_BASE_URL"`
}

// IngestConfig tunes the bulk ingestion engine.
type IngestConfig struct {
	BatchSize   int           `env:"PROCERES_INGEST_BATCH_SIZE" envDefault:"5"`
	Parallelism int           `env:"PROCERES_INGEST_PARALLELISM" envDefault:"1"`
	Timeout     time.Duration `env:"PROCERES_INGEST_TIMEOUT" envDefault:"0s"`
	Retries     int           `env:"PROCERES_INGEST_RETRIES" envDefault:"2"`
	DatasetPath string        `env:"PROCERES_DATASET_PATH" envDefault:"data/proceres.json"`
}

// SetupConfig configures the bootstrap admin account.
type SetupConfig struct {
	AdminEmail    string `env:"PROCERES_ADMIN_EMAIL" envDefault:"admin@proceres.local"`
	AdminPassword string `env:"PROCERES_ADMIN_PASSWORD"`
}

// Load reads an optional .env file from the working directory and then parses
// the environment. Variables already set in the process win over the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are skipped.
func LoadFiles(paths ...string) (*Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("PROCERES_INGEST_BATCH_SIZE must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.Parallelism < 1 {
		return fmt.Errorf("PROCERES_INGEST_PARALLELISM must be positive, got %d", c.Ingest.Parallelism)
	}
	if c.Ingest.Retries < 0 {
		return fmt.Errorf("PROCERES_INGEST_RETRIES must not be negative, got %d", c.Ingest.Retries)
	}
	return nil
}

// BlobOptions maps the blob settings onto the backend selector.
func (c *Config) BlobOptions() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: s3store.Config{
			Region:          c.Blob.S3.Region,
			Bucket:          c.Blob.S3.Bucket,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			SessionToken:    c.Blob.S3.SessionToken,
			PathStyle:       c.Blob.S3.PathStyle,
			PublicBaseURL:   c.Blob.S3.PublicBaseURL,
		},
	}
}
