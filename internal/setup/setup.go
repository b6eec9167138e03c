// Package setup bootstraps a fresh deployment: it ensures the admin account
// exists and seeds subjects from the canonical dataset.
package setup

import (
	"context"
	"errors"
	"fmt"

	"proceres/internal/auth"
	"proceres/internal/ingest"
	"proceres/internal/platform/logger"
	"proceres/pkg/domain"
)

// Options configures a bootstrap run.
type Options struct {
	AdminEmail    string
	AdminPassword string
	DatasetPath   string
}

// Result reports what a bootstrap run did.
type Result struct {
	Admin        domain.User
	AdminCreated bool
	Report       ingest.Report
}

// Bootstrapper runs the bootstrap steps against a store.
type Bootstrapper struct {
	store  domain.PersistentStore
	hasher auth.PasswordHasher
	engine *ingest.Engine
	log    *logger.Logger
}

// New returns a bootstrapper. A nil log discards output.
func New(store domain.PersistentStore, hasher auth.PasswordHasher, engine *ingest.Engine, log *logger.Logger) *Bootstrapper {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bootstrapper{store: store, hasher: hasher, engine: engine, log: log.With("component", "setup")}
}

// ErrAdminPasswordRequired is returned when the admin must be created but no password was supplied.
var ErrAdminPasswordRequired = errors.New("admin password is required to create the admin account")

// EnsureAdmin returns the admin account with email, creating it when absent.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context, email, password string) (domain.User, bool, error) {
	var existing domain.User
	var found bool
	if err := b.store.View(ctx, func(v domain.TransactionView) error {
		existing, found = v.FindUserByEmail(email)
		return nil
	}); err != nil {
		return domain.User{}, false, err
	}
	if found {
		if existing.Role != domain.RoleAdmin {
			return domain.User{}, false, fmt.Errorf("user %s exists without the admin role", email)
		}
		b.log.Info("admin user already present", "email", email)
		return existing, false, nil
	}
	if password == "" {
		return domain.User{}, false, ErrAdminPasswordRequired
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("hash admin password: %w", err)
	}
	var created domain.User
	if _, err := b.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateUser(domain.User{Email: email, PasswordHash: hash, Role: domain.RoleAdmin})
		return err
	}); err != nil {
		return domain.User{}, false, err
	}
	b.log.Info("admin user created", "email", email, "user_id", created.ID)
	return created, true, nil
}

// Run ensures the admin account and loads the dataset on its behalf.
func (b *Bootstrapper) Run(ctx context.Context, opts Options) (Result, error) {
	admin, created, err := b.EnsureAdmin(ctx, opts.AdminEmail, opts.AdminPassword)
	if err != nil {
		return Result{}, err
	}
	res := Result{Admin: admin, AdminCreated: created}

	records, err := ingest.LoadSource(opts.DatasetPath)
	if err != nil {
		return res, err
	}
	b.log.Info("dataset loaded", "path", opts.DatasetPath, "records", len(records))

	report, err := b.engine.Ingest(ctx, records, admin.Ref())
	if err != nil {
		return res, err
	}
	res.Report = report
	for _, f := range report.Failures {
		b.log.Warn("record not loaded", "id", f.ID, "index", f.Index, "reason", f.Reason)
	}
	b.log.Info("setup complete", "admin", admin.Email, "loaded", report.Loaded, "total", report.Total)
	return res, nil
}
