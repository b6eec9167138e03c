package domain

import "slices"

// WriteIntent is a side effect that must be applied in the same transaction
// as the record that produced it.
type WriteIntent interface {
	Apply(tx Transaction) error
}

// RegisterAssetUsage records that SceneID places AssetID.
type RegisterAssetUsage struct {
	AssetID string
	SceneID string
}

// Apply appends the scene to the asset's usage list.
func (i RegisterAssetUsage) Apply(tx Transaction) error {
	_, err := tx.RegisterAssetUsage(i.AssetID, i.SceneID)
	return err
}

// ReleaseAssetUsage removes SceneID from the usage list of AssetID.
type ReleaseAssetUsage struct {
	AssetID string
	SceneID string
}

// Apply drops the scene from the asset's usage list. A missing asset or an
// asset that does not list the scene is left alone.
func (i ReleaseAssetUsage) Apply(tx Transaction) error {
	asset, ok := tx.FindAsset(i.AssetID)
	if !ok || !asset.UsedBy(i.SceneID) {
		return nil
	}
	_, err := tx.UpdateAsset(i.AssetID, func(a *Asset) error {
		a.SceneUsage = slices.DeleteFunc(a.SceneUsage, func(id string) bool { return id == i.SceneID })
		return nil
	})
	return err
}

// UsageIntents returns the intents that bring asset back-references from the
// placements of prev to those of next: every asset placed in next registers
// the scene and every asset only placed in prev releases it. Use a zero prev
// for a new scene.
func UsageIntents(prev, next Scene) []WriteIntent {
	placed := next.AssetIDs()
	out := make([]WriteIntent, 0, len(placed))
	for _, id := range placed {
		out = append(out, RegisterAssetUsage{AssetID: id, SceneID: next.ID})
	}
	for _, id := range prev.AssetIDs() {
		if !slices.Contains(placed, id) {
			out = append(out, ReleaseAssetUsage{AssetID: id, SceneID: next.ID})
		}
	}
	return out
}

// PlacementDefaults fills zero-valued scale and animation speed.
func PlacementDefaults(p Placement) Placement {
	if p.Scale == (Vector3{}) {
		p.Scale = UnitScale
	}
	if p.Animation != nil {
		anim := *p.Animation
		if anim.Speed == 0 {
			anim.Speed = 1
		}
		p.Animation = &anim
	}
	return p
}

// PlanAddPlacement returns a copy of scene with p appended and the write
// intents needed to keep asset back-references in sync. scene is not modified.
func PlanAddPlacement(scene Scene, p Placement) (Scene, []WriteIntent) {
	next := scene
	next.Placements = make([]Placement, 0, len(scene.Placements)+1)
	next.Placements = append(next.Placements, scene.Placements...)
	next.Placements = append(next.Placements, PlacementDefaults(p))
	return next, []WriteIntent{RegisterAssetUsage{AssetID: p.AssetID, SceneID: scene.ID}}
}
