package core

import (
	"context"
	"errors"
	"time"

	"proceres/pkg/domain"
)

// AssetLookup resolves assets by identifier. Transactions, views and stores
// all satisfy it.
type AssetLookup interface {
	FindAsset(id string) (Asset, bool)
}

// storeLookup adapts a PersistentStore's committed read path to AssetLookup.
type storeLookup struct{ store PersistentStore }

func (l storeLookup) FindAsset(id string) (Asset, bool) { return l.store.GetAsset(id) }

// AssetRoleValidator checks that role-typed asset slots point at assets of the expected kind.
type AssetRoleValidator struct {
	lookup AssetLookup
}

// NewAssetRoleValidator binds a validator to lookup.
func NewAssetRoleValidator(lookup AssetLookup) AssetRoleValidator {
	return AssetRoleValidator{lookup: lookup}
}

// ValidateAssetRole returns nil when assetID is unset or resolves to an asset
// of kind expected, and a *domain.ReferenceError otherwise.
func (v AssetRoleValidator) ValidateAssetRole(ctx context.Context, assetID *string, expected AssetKind) error {
	return v.check(ctx, slotField(expected), assetID, expected)
}

func slotField(kind AssetKind) string {
	switch kind {
	case domain.AssetKind3DModel:
		return domain.FieldModel3D
	case domain.AssetKindARMarker:
		return domain.FieldARMarker
	}
	return "asset_id"
}

func (v AssetRoleValidator) check(ctx context.Context, field string, assetID *string, expected AssetKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if assetID == nil || *assetID == "" {
		return nil
	}
	asset, ok := v.lookup.FindAsset(*assetID)
	if !ok {
		return &domain.ReferenceError{Field: field, AssetID: *assetID, Expected: expected, Reason: domain.ReasonAssetNotFound}
	}
	if asset.Kind != expected {
		return &domain.ReferenceError{Field: field, AssetID: *assetID, Expected: expected, Actual: asset.Kind, Reason: domain.ReasonKindMismatch}
	}
	return nil
}

// ValidateSubjectSlots checks the model and marker slots of s. Failures of
// both slots are joined.
func (v AssetRoleValidator) ValidateSubjectSlots(ctx context.Context, s Subject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(
		v.check(ctx, domain.FieldModel3D, s.Model3DID, domain.AssetKind3DModel),
		v.check(ctx, domain.FieldARMarker, s.ARMarkerID, domain.AssetKindARMarker),
	)
}

// ValidateChangedSlots checks only the slots that differ between prev and next.
func (v AssetRoleValidator) ValidateChangedSlots(ctx context.Context, prev, next Subject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	if !sameRef(prev.Model3DID, next.Model3DID) {
		errs = append(errs, v.check(ctx, domain.FieldModel3D, next.Model3DID, domain.AssetKind3DModel))
	}
	if !sameRef(prev.ARMarkerID, next.ARMarkerID) {
		errs = append(errs, v.check(ctx, domain.FieldARMarker, next.ARMarkerID, domain.AssetKindARMarker))
	}
	return errors.Join(errs...)
}

// ValidateNewSubject checks the fields and the asset slots of a subject about
// to be inserted and returns every failure joined, field violations first. An
// empty status is checked as active, the value the store assigns.
func (v AssetRoleValidator) ValidateNewSubject(ctx context.Context, s Subject, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	candidate := s
	if candidate.Status == "" {
		candidate.Status = domain.StatusActive
	}
	return errors.Join(domain.ValidateSubject(candidate, now), v.ValidateSubjectSlots(ctx, s))
}

// ValidateSubjectUpdate checks next, the proposed replacement of prev. Field
// violations are reported together with reference errors on changed slots.
func (v AssetRoleValidator) ValidateSubjectUpdate(ctx context.Context, prev, next Subject, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(domain.ValidateSubject(next, now), v.ValidateChangedSlots(ctx, prev, next))
}

func sameRef(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
