package core

import (
	"context"
	"errors"

	"proceres/pkg/domain"
)

// NewAssetRoleRule returns the in-transaction rule re-checking subject asset
// slots against the transactional view.
func NewAssetRoleRule() domain.Rule {
	return assetRoleRule{}
}

type assetRoleRule struct{}

func (assetRoleRule) Name() string { return "asset_role" }

func (r assetRoleRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	validator := NewAssetRoleValidator(view)
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySubject || change.Action == domain.ActionDelete {
			continue
		}
		next, ok := change.After.(domain.Subject)
		if !ok {
			continue
		}
		var err error
		if prev, ok := change.Before.(domain.Subject); ok && change.Action == domain.ActionUpdate {
			err = validator.ValidateChangedSlots(ctx, prev, next)
		} else {
			err = validator.ValidateSubjectSlots(ctx, next)
		}
		if err == nil {
			continue
		}
		refs, ok := referenceErrors(err)
		if !ok {
			return domain.Result{}, err
		}
		for _, refErr := range refs {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  refErr.Error(),
				Entity:   domain.EntitySubject,
				EntityID: next.ID,
				Cause:    refErr,
			})
		}
	}
	return res, nil
}

// referenceErrors flattens joined slot errors. ok is false when any of them
// is not a reference error.
func referenceErrors(err error) (refs []*domain.ReferenceError, ok bool) {
	if joined, isJoin := err.(interface{ Unwrap() []error }); isJoin {
		for _, e := range joined.Unwrap() {
			more, ok := referenceErrors(e)
			if !ok {
				return nil, false
			}
			refs = append(refs, more...)
		}
		return refs, true
	}
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) {
		return nil, false
	}
	return []*domain.ReferenceError{refErr}, true
}
