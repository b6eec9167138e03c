package core

import "proceres/pkg/domain"

// DefaultModelScale is the uniform scale AR clients apply to a subject model.
const DefaultModelScale = 0.5

// ARModel describes the model an AR client loads for a subject.
type ARModel struct {
	AssetID   string         `json:"asset_id"`
	URL       string         `json:"url"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Scale     float64        `json:"scale"`
	Position  domain.Vector3 `json:"position"`
}

// ARMarker describes the tracking marker for a subject.
type ARMarker struct {
	AssetID string            `json:"asset_id"`
	URL     string            `json:"url"`
	Type    domain.MarkerType `json:"type"`
}

// SceneSummary is the short scene form listed in AR content.
type SceneSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MarkerImage string `json:"marker_image"`
}

// ARContent is everything an AR client needs to render one subject.
type ARContent struct {
	SubjectID string         `json:"subject_id"`
	Name      string         `json:"name"`
	Alias     string         `json:"alias,omitempty"`
	Age       *int           `json:"age,omitempty"`
	Model     ARModel        `json:"model"`
	Marker    ARMarker       `json:"marker"`
	Scenes    []SceneSummary `json:"scenes"`
}

// SubjectARContent assembles the AR content for a subject. Subjects without
// both a model and a marker are rejected with a validation error.
func (s *Service) SubjectARContent(id string) (ARContent, error) {
	sub, err := s.GetSubject(id)
	if err != nil {
		return ARContent{}, err
	}
	verr := domain.NewValidationError(EntitySubject)
	model, hasModel := s.slotAsset(sub.Model3DID)
	marker, hasMarker := s.slotAsset(sub.ARMarkerID)
	if !hasModel {
		verr.Add(domain.FieldModel3D, "is required for AR content")
	}
	if !hasMarker {
		verr.Add(domain.FieldARMarker, "is required for AR content")
	}
	if err := verr.OrNil(); err != nil {
		return ARContent{}, err
	}

	out := ARContent{
		SubjectID: sub.ID,
		Name:      sub.Name,
		Alias:     sub.Alias,
		Model: ARModel{
			AssetID:   model.ID,
			URL:       model.FullURL(s.assetsBaseURL),
			Thumbnail: model.Thumbnail,
			Scale:     DefaultModelScale,
		},
		Marker: ARMarker{
			AssetID: marker.ID,
			URL:     marker.FullURL(s.assetsBaseURL),
			Type:    domain.MarkerPattern,
		},
		Scenes: make([]SceneSummary, 0, len(sub.SceneIDs)),
	}
	if age, ok := sub.Age(s.now()); ok {
		out.Age = &age
	}
	for _, sceneID := range sub.SceneIDs {
		sc, ok := s.store.GetScene(sceneID)
		if !ok {
			continue
		}
		out.Scenes = append(out.Scenes, SceneSummary{ID: sc.ID, Name: sc.Name, MarkerImage: sc.MarkerImage})
	}
	return out, nil
}

func (s *Service) slotAsset(id *string) (Asset, bool) {
	if id == nil || *id == "" {
		return Asset{}, false
	}
	return s.store.GetAsset(*id)
}

// PlacedAsset pairs a placement with its resolved asset.
type PlacedAsset struct {
	Placement Placement        `json:"placement"`
	Kind      domain.AssetKind `json:"kind"`
	URL       string           `json:"url"`
	Format    string           `json:"format,omitempty"`
}

// SceneConfig is the renderer configuration of a scene.
type SceneConfig struct {
	SceneID     string               `json:"scene_id"`
	Name        string               `json:"name"`
	MarkerImage string               `json:"marker_image"`
	MarkerType  domain.MarkerType    `json:"marker_type"`
	Settings    domain.SceneSettings `json:"settings"`
	Assets      []PlacedAsset        `json:"assets"`
}

// SceneARConfig resolves every placement of a scene to its asset kind and URL.
func (s *Service) SceneARConfig(id string) (SceneConfig, error) {
	sc, err := s.GetScene(id)
	if err != nil {
		return SceneConfig{}, err
	}
	out := SceneConfig{
		SceneID:     sc.ID,
		Name:        sc.Name,
		MarkerImage: sc.MarkerImage,
		MarkerType:  sc.MarkerType,
		Settings:    sc.Settings,
		Assets:      make([]PlacedAsset, 0, len(sc.Placements)),
	}
	for _, p := range sc.Placements {
		asset, ok := s.store.GetAsset(p.AssetID)
		if !ok {
			return SceneConfig{}, &domain.ReferenceError{Field: domain.FieldPlacements, AssetID: p.AssetID, Reason: domain.ReasonAssetNotFound}
		}
		out.Assets = append(out.Assets, PlacedAsset{
			Placement: p,
			Kind:      asset.Kind,
			URL:       asset.FullURL(s.assetsBaseURL),
			Format:    asset.Format,
		})
	}
	return out, nil
}
