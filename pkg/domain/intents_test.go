package domain

import "testing"

func TestUsageIntentsRegistersPlacedAndReleasesDropped(t *testing.T) {
	prev := Scene{Base: Base{ID: "s1"}, Placements: []Placement{{AssetID: "a"}, {AssetID: "b"}}}
	next := Scene{Base: Base{ID: "s1"}, Placements: []Placement{{AssetID: "b"}, {AssetID: "c"}, {AssetID: "b"}}}

	intents := UsageIntents(prev, next)
	want := []WriteIntent{
		RegisterAssetUsage{AssetID: "b", SceneID: "s1"},
		RegisterAssetUsage{AssetID: "c", SceneID: "s1"},
		ReleaseAssetUsage{AssetID: "a", SceneID: "s1"},
	}
	if len(intents) != len(want) {
		t.Fatalf("expected %d intents, got %v", len(want), intents)
	}
	for i := range want {
		if intents[i] != want[i] {
			t.Fatalf("intent %d: expected %#v, got %#v", i, want[i], intents[i])
		}
	}
}

func TestUsageIntentsForNewScene(t *testing.T) {
	next := Scene{Base: Base{ID: "s1"}, Placements: []Placement{{AssetID: "a"}}}
	intents := UsageIntents(Scene{}, next)
	if len(intents) != 1 || intents[0] != (RegisterAssetUsage{AssetID: "a", SceneID: "s1"}) {
		t.Fatalf("unexpected intents %v", intents)
	}
}
