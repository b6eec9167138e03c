package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"proceres/internal/core"
	"proceres/internal/infra/persistence/memory"
	"proceres/pkg/domain"
)

func newStore(t *testing.T) (*memory.Store, domain.UserRef) {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	var admin domain.User
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		admin, err = tx.CreateUser(domain.User{Email: "admin@proceres.local", PasswordHash: "h", Role: domain.RoleAdmin})
		return err
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return store, admin.Ref()
}

func strPtr(s string) *string { return &s }

func record(id, name, birth string) SubjectRecord {
	r := SubjectRecord{ID: id, Name: name}
	if birth != "" {
		r.BirthDate = strPtr(birth)
	}
	return r
}

// flakyStore fails the RunInTransaction calls whose 1-based number is in
// failOn, and can delay every call.
type flakyStore struct {
	domain.PersistentStore
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	delay  time.Duration
}

var errDatastore = errors.New("connection reset")

func (f *flakyStore) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}
	}
	if f.failOn[call] {
		return domain.Result{}, &domain.PersistenceError{Op: "sqlite snapshot", Err: errDatastore}
	}
	return f.PersistentStore.RunInTransaction(ctx, fn)
}
