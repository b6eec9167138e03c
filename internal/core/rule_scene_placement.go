package core

import (
	"context"
	"fmt"
	"slices"

	"proceres/pkg/domain"
)

// NewScenePlacementRule returns the rule requiring every placed asset to exist
// and to list the scene among its usages. On updates, assets no longer placed
// must not keep the scene in their usage list.
func NewScenePlacementRule() domain.Rule {
	return scenePlacementRule{}
}

type scenePlacementRule struct{}

func (scenePlacementRule) Name() string { return "scene_placement" }

func (r scenePlacementRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityScene || change.Action == domain.ActionDelete {
			continue
		}
		scene, ok := change.After.(domain.Scene)
		if !ok {
			continue
		}
		for _, assetID := range scene.AssetIDs() {
			asset, found := view.FindAsset(assetID)
			switch {
			case !found:
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("scene %s places missing asset %s", scene.ID, assetID),
					Entity:   domain.EntityScene,
					EntityID: scene.ID,
					Cause: &domain.ReferenceError{
						Field: domain.FieldPlacements, AssetID: assetID, Reason: domain.ReasonAssetNotFound,
					},
				})
			case !asset.UsedBy(scene.ID):
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("asset %s does not list scene %s in its usage", assetID, scene.ID),
					Entity:   domain.EntityScene,
					EntityID: scene.ID,
				})
			}
		}
		prev, ok := change.Before.(domain.Scene)
		if !ok || change.Action != domain.ActionUpdate {
			continue
		}
		placed := scene.AssetIDs()
		for _, assetID := range prev.AssetIDs() {
			if slices.Contains(placed, assetID) {
				continue
			}
			if asset, found := view.FindAsset(assetID); found && asset.UsedBy(scene.ID) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("asset %s still lists scene %s after removal", assetID, scene.ID),
					Entity:   domain.EntityScene,
					EntityID: scene.ID,
				})
			}
		}
	}
	return res, nil
}
