package domain

import "testing"

func ptr(s string) *string { return &s }

func TestSubjectVersionQuoteOnlyKeepsVersion(t *testing.T) {
	prev := Subject{Version: 3, Quote: "old", Model3DID: ptr("m1")}
	next := prev
	next.Quote = "new"
	d := SubjectVersion(prev, next)
	if d.NewVersion != 3 || d.Bumped() {
		t.Fatalf("expected unchanged version, got %+v", d)
	}
}

func TestSubjectVersionModelBumpsOnce(t *testing.T) {
	prev := Subject{Version: 3, Model3DID: ptr("m1")}
	next := prev
	next.Model3DID = ptr("m2")
	next.ARMarkerID = ptr("k1")
	d := SubjectVersion(prev, next)
	if d.NewVersion != 4 {
		t.Fatalf("expected version 4, got %d", d.NewVersion)
	}
	fields := d.TouchedFields()
	if len(fields) != 2 || fields[0] != FieldARMarker || fields[1] != FieldModel3D {
		t.Fatalf("unexpected touched fields %v", fields)
	}
}

func TestSubjectVersionTreatsNilAndEmptyAlike(t *testing.T) {
	prev := Subject{Version: 1}
	next := Subject{Version: 1, Model3DID: ptr("")}
	if SubjectVersion(prev, next).Bumped() {
		t.Fatalf("nil and empty reference should compare equal")
	}
	if got := SubjectVersion(Subject{}, Subject{Model3DID: ptr("m")}).NewVersion; got != 2 {
		t.Fatalf("unset previous version counts as 1, got %d", got)
	}
}

func TestSceneVersion(t *testing.T) {
	prev := Scene{Version: 1, Name: "a", Settings: SceneSettings{Lighting: LightingDefault, Shadows: true}}
	renamed := prev
	renamed.Name = "b"
	renamed.Placements = []Placement{}
	if d := SceneVersion(prev, renamed); d.Bumped() {
		t.Fatalf("rename must not bump, got %+v", d)
	}
	lit := prev
	lit.Settings.Lighting = LightingDark
	if d := SceneVersion(prev, lit); d.NewVersion != 2 {
		t.Fatalf("settings change must bump, got %+v", d)
	}
	placed, intents := PlanAddPlacement(prev, Placement{AssetID: "a1"})
	if d := SceneVersion(prev, placed); d.NewVersion != 2 {
		t.Fatalf("placement change must bump, got %+v", d)
	}
	if len(intents) != 1 {
		t.Fatalf("expected one write intent, got %d", len(intents))
	}
}

func TestPlanAddPlacementIsPure(t *testing.T) {
	scene := Scene{Base: Base{ID: "s1"}, Placements: []Placement{{AssetID: "a0", Scale: UnitScale}}}
	next, intents := PlanAddPlacement(scene, Placement{AssetID: "a1", Animation: &Animation{Name: "wave", Loop: true}})
	if len(scene.Placements) != 1 {
		t.Fatalf("input scene mutated")
	}
	if len(next.Placements) != 2 {
		t.Fatalf("expected two placements, got %d", len(next.Placements))
	}
	added := next.Placements[1]
	if added.Scale != UnitScale || added.Animation.Speed != 1 {
		t.Fatalf("defaults not applied: %+v", added)
	}
	usage, ok := intents[0].(RegisterAssetUsage)
	if !ok || usage.AssetID != "a1" || usage.SceneID != "s1" {
		t.Fatalf("unexpected intent %+v", intents[0])
	}
}
