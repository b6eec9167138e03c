package core

import (
	"fmt"

	"proceres/internal/infra/persistence/memory"
	"proceres/internal/infra/persistence/postgres"
	"proceres/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and parameterises the persistent store.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	// Memory options are forwarded to the in-memory engine behind every driver.
	Memory []memory.Option
}

// OpenPersistentStore selects a backend. An empty driver defaults to sqlite.
func OpenPersistentStore(opts StorageOptions, engine *RulesEngine) (PersistentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, opts.Memory...), nil
	case StorageSQLite:
		return sqlite.NewStore(opts.SQLitePath, engine, opts.Memory...)
	case StoragePostgres:
		return postgres.NewStore(opts.PostgresDSN, engine, opts.Memory...)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
