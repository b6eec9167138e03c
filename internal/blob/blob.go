// Package blob re-exports the blob abstractions and selects a backend.
package blob

import (
	"context"
	"fmt"

	"proceres/internal/blob/core"
	fsstore "proceres/internal/infra/blob/fs"
	memstore "proceres/internal/infra/blob/memory"
	s3store "proceres/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes a stored blob.
	Info = core.Info
	// Store is the blob storage contract.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrExists is returned by Put when the key is already taken.
var ErrExists = core.ErrExists

// Config selects and parameterises a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     s3store.Config
}

// Open constructs the configured backend. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memstore.New() }
