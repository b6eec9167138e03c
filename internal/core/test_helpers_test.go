package core_test

import (
	"context"
	"testing"
	"time"

	"proceres/internal/core"
	"proceres/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...core.Option) *core.Service {
	t.Helper()
	opts = append([]core.Option{core.WithClock(func() time.Time { return fixedNow })}, opts...)
	return core.NewInMemoryService(core.NewDefaultRulesEngine(), opts...)
}

func mustUser(t *testing.T, svc *core.Service) domain.User {
	t.Helper()
	u, _, err := svc.CreateUser(context.Background(), domain.User{
		Email:        "curator@example.org",
		PasswordHash: "hash",
		Role:         domain.RoleContentCreator,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustAsset(t *testing.T, svc *core.Service, owner string, kind domain.AssetKind, name string) domain.Asset {
	t.Helper()
	a, _, err := svc.CreateAsset(context.Background(), domain.Asset{
		Name:     name,
		Kind:     kind,
		Location: "/uploads/" + name,
		OwnerID:  owner,
	})
	if err != nil {
		t.Fatalf("create asset %s: %v", name, err)
	}
	return a
}

func ptr[T any](v T) *T { return &v }
