package domain

import (
	"reflect"
	"slices"
)

// Structural field names. A change to any of them invalidates AR client caches.
const (
	FieldModel3D    = "model_3d_id"
	FieldARMarker   = "ar_marker_id"
	FieldPlacements = "placements"
	FieldSettings   = "settings"
)

// VersionDecision is the outcome of comparing a stored record with its proposed replacement.
type VersionDecision struct {
	NewVersion int
	Touched    map[string]struct{}
}

// Bumped reports whether any structural field changed.
func (d VersionDecision) Bumped() bool { return len(d.Touched) > 0 }

// TouchedFields returns the touched structural fields in sorted order.
func (d VersionDecision) TouchedFields() []string {
	out := make([]string, 0, len(d.Touched))
	for f := range d.Touched {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// SubjectVersion decides the version of next given the stored prev. Only the
// 3D model and AR marker references are structural.
func SubjectVersion(prev, next Subject) VersionDecision {
	touched := map[string]struct{}{}
	if !sameRef(prev.Model3DID, next.Model3DID) {
		touched[FieldModel3D] = struct{}{}
	}
	if !sameRef(prev.ARMarkerID, next.ARMarkerID) {
		touched[FieldARMarker] = struct{}{}
	}
	return decide(prev.Version, touched)
}

// SceneVersion decides the version of next given the stored prev. The
// placement list and the settings block are structural.
func SceneVersion(prev, next Scene) VersionDecision {
	touched := map[string]struct{}{}
	if !reflect.DeepEqual(normalizePlacements(prev.Placements), normalizePlacements(next.Placements)) {
		touched[FieldPlacements] = struct{}{}
	}
	if prev.Settings != next.Settings {
		touched[FieldSettings] = struct{}{}
	}
	return decide(prev.Version, touched)
}

func decide(prev int, touched map[string]struct{}) VersionDecision {
	if prev < 1 {
		prev = 1
	}
	if len(touched) > 0 {
		return VersionDecision{NewVersion: prev + 1, Touched: touched}
	}
	return VersionDecision{NewVersion: prev, Touched: touched}
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

// normalizePlacements treats nil and empty lists as equal.
func normalizePlacements(p []Placement) []Placement {
	if len(p) == 0 {
		return nil
	}
	return p
}
