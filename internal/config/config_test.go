package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"proceres/internal/blob"
)

func mustLoad(t *testing.T, files ...string) *Config {
	t.Helper()
	cfg, err := LoadFiles(files...)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := mustLoad(t, filepath.Join(t.TempDir(), "missing.env"))
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "proceres.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" || cfg.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.Ingest.BatchSize != 5 || cfg.Ingest.Parallelism != 1 || cfg.Ingest.Retries != 2 || cfg.Ingest.Timeout != 0 {
		t.Fatalf("unexpected ingest defaults %+v", cfg.Ingest)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROCERES_STORAGE_DRIVER", "memory")
	t.Setenv("PROCERES_INGEST_BATCH_SIZE", "10")
	t.Setenv("PROCERES_INGEST_TIMEOUT", "30s")
	t.Setenv("PROCERES_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("ASSETS_BASE_URL", "https://cdn.example.org")

	cfg := mustLoad(t)
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Ingest.BatchSize != 10 || cfg.Ingest.Timeout != 30*time.Second {
		t.Fatalf("unexpected ingest config %+v", cfg.Ingest)
	}
	if !cfg.Blob.S3.PathStyle {
		t.Fatalf("expected path style addressing")
	}
	if cfg.AssetsBaseURL != "https://cdn.example.org" {
		t.Fatalf("unexpected assets base url %s", cfg.AssetsBaseURL)
	}
}

func TestLoadDotenvDoesNotOverrideProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PROCERES_DATASET_PATH=/srv/data.json\nPROCERES_INGEST_PARALLELISM=4\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("PROCERES_INGEST_PARALLELISM", "2")
	t.Cleanup(func() { _ = os.Unsetenv("PROCERES_DATASET_PATH") })

	cfg := mustLoad(t, path)
	if cfg.Ingest.DatasetPath != "/srv/data.json" {
		t.Fatalf("dotenv value not applied: %s", cfg.Ingest.DatasetPath)
	}
	if cfg.Ingest.Parallelism != 2 {
		t.Fatalf("process env must win over dotenv, got %d", cfg.Ingest.Parallelism)
	}
}

func TestBlobOptions(t *testing.T) {
	t.Setenv("PROCERES_BLOB_DRIVER", "s3")
	t.Setenv("PROCERES_BLOB_S3_BUCKET", "markers")
	t.Setenv("PROCERES_BLOB_S3_ENDPOINT", "http://minio:9000")

	opts := mustLoad(t).BlobOptions()
	if opts.Driver != blob.DriverS3 {
		t.Fatalf("expected s3 driver, got %s", opts.Driver)
	}
	if opts.S3.Bucket != "markers" || opts.S3.Endpoint != "http://minio:9000" || opts.S3.Region != "us-east-1" {
		t.Fatalf("unexpected s3 options %+v", opts.S3)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PROCERES_STORAGE_DRIVER":     "mongo",
		"PROCERES_INGEST_BATCH_SIZE":  "0",
		"PROCERES_INGEST_PARALLELISM": "-1",
		"PROCERES_INGEST_RETRIES":     "-2",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadFiles(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, val)
			}
		})
	}
}
