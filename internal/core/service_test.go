package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"proceres/internal/core"
	"proceres/pkg/domain"
)

func TestCreateSubjectValidatesAssetSlots(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	model := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "bolivar.glb")
	image := mustAsset(t, svc, user.ID, domain.AssetKindImage, "bolivar.png")

	created, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Simón Bolívar", CreatedBy: user.ID, Model3DID: &model.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if created.Version != 1 || created.Status != domain.StatusActive {
		t.Fatalf("unexpected defaults: version=%d status=%s", created.Version, created.Status)
	}

	_, _, err = svc.CreateSubject(ctx, domain.Subject{Name: "Sucre", CreatedBy: user.ID, Model3DID: &image.ID})
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) || refErr.Reason != domain.ReasonKindMismatch {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
	if refErr.Expected != domain.AssetKind3DModel || refErr.Actual != domain.AssetKindImage {
		t.Fatalf("unexpected kinds: %+v", refErr)
	}

	_, _, err = svc.CreateSubject(ctx, domain.Subject{Name: "Sucre", CreatedBy: user.ID, ARMarkerID: ptr("missing")})
	if !errors.As(err, &refErr) || refErr.Reason != domain.ReasonAssetNotFound {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if got := len(svc.ListSubjects()); got != 1 {
		t.Fatalf("expected 1 subject, got %d", got)
	}
}

func TestCreateSubjectRejectsDeathBeforeBirth(t *testing.T) {
	svc := newService(t)
	user := mustUser(t, svc)
	birth := time.Date(1850, 3, 15, 0, 0, 0, 0, time.UTC)
	death := birth.AddDate(-1, 0, 0)
	_, _, err := svc.CreateSubject(context.Background(), domain.Subject{Name: "X", CreatedBy: user.ID, BirthDate: &birth, DeathDate: &death})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("death_date") {
		t.Fatalf("expected death_date validation error, got %v", err)
	}
}

func TestUpdateSubjectVersioning(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	modelA := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "a.glb")
	modelB := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "b.glb")
	marker := mustAsset(t, svc, user.ID, domain.AssetKindARMarker, "m.patt")

	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Miranda", CreatedBy: user.ID, Model3DID: &modelA.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{Quote: ptr("Gente del pueblo")})
	if err != nil {
		t.Fatalf("quote update: %v", err)
	}
	if sub.Version != 1 {
		t.Fatalf("quote-only edit must not bump version, got %d", sub.Version)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{Model3DID: &modelB.ID})
	if err != nil {
		t.Fatalf("model update: %v", err)
	}
	if sub.Version != 2 {
		t.Fatalf("model edit must bump version to 2, got %d", sub.Version)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{Model3DID: &modelB.ID, Name: ptr("Francisco de Miranda")})
	if err != nil {
		t.Fatalf("same model update: %v", err)
	}
	if sub.Version != 2 {
		t.Fatalf("unchanged model must not bump, got %d", sub.Version)
	}

	_, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{Model3DID: &marker.ID})
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected reference error, got %v", err)
	}
	got, err := svc.GetSubject(sub.ID)
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	if got.Model3DID == nil || *got.Model3DID != modelB.ID || got.Version != 2 {
		t.Fatalf("failed update must not change subject: %+v", got)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{Model3DID: ptr("")})
	if err != nil {
		t.Fatalf("clear model: %v", err)
	}
	if sub.Model3DID != nil || sub.Version != 3 {
		t.Fatalf("clearing model must bump version: %+v", sub)
	}
}

func TestUpdateAssetKindIsImmutable(t *testing.T) {
	svc := newService(t)
	user := mustUser(t, svc)
	asset := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "a.glb")

	kind := domain.AssetKindImage
	_, _, err := svc.UpdateAsset(context.Background(), asset.ID, core.AssetPatch{Kind: &kind})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("kind") {
		t.Fatalf("expected kind validation error, got %v", err)
	}

	updated, _, err := svc.UpdateAsset(context.Background(), asset.ID, core.AssetPatch{Format: ptr("glb"), Tags: &[]string{"hero"}})
	if err != nil {
		t.Fatalf("update asset: %v", err)
	}
	if updated.Format != "GLB" || len(updated.Tags) != 1 {
		t.Fatalf("unexpected asset: %+v", updated)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	svc := newService(t)
	var nf *domain.NotFoundError
	if _, err := svc.GetSubject("nope"); !errors.As(err, &nf) || nf.Entity != domain.EntitySubject {
		t.Fatalf("expected subject not found, got %v", err)
	}
	if _, err := svc.GetAsset("nope"); !errors.As(err, &nf) {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if _, err := svc.GetScene("nope"); !errors.As(err, &nf) {
		t.Fatalf("expected scene not found, got %v", err)
	}
	if _, err := svc.GetUser("nope"); !errors.As(err, &nf) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestCreateAssetRequiresKnownOwner(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.CreateAsset(context.Background(), domain.Asset{Name: "x", Kind: domain.AssetKindImage, Location: "/x.png", OwnerID: "ghost"})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntityUser {
		t.Fatalf("expected owner not found, got %v", err)
	}
}

func TestScenePlacementProtocol(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	statue := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "statue.glb")
	flag := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "flag.glb")
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Bolívar", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	scene, _, err := svc.CreateScene(ctx, domain.Scene{
		Name:        "Plaza",
		MarkerImage: "plaza.png",
		CreatedBy:   user.ID,
		SubjectID:   &sub.ID,
		Placements:  []domain.Placement{{AssetID: statue.ID}},
	})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}
	if scene.Version != 1 || scene.MarkerType != domain.MarkerImage {
		t.Fatalf("unexpected scene defaults: %+v", scene)
	}
	if scene.Placements[0].Scale != domain.UnitScale {
		t.Fatalf("expected unit scale, got %+v", scene.Placements[0].Scale)
	}
	if a, _ := svc.GetAsset(statue.ID); !a.UsedBy(scene.ID) {
		t.Fatalf("statue should list scene usage")
	}
	if s, _ := svc.GetSubject(sub.ID); !s.HasScene(scene.ID) || s.Version != 1 {
		t.Fatalf("subject should link scene without a version bump: %+v", s)
	}

	scene, _, err = svc.AddPlacement(ctx, scene.ID, domain.Placement{AssetID: flag.ID, Position: domain.Vector3{X: 1}})
	if err != nil {
		t.Fatalf("add placement: %v", err)
	}
	if len(scene.Placements) != 2 || scene.Version != 2 {
		t.Fatalf("expected 2 placements at version 2, got %d at %d", len(scene.Placements), scene.Version)
	}
	if a, _ := svc.GetAsset(flag.ID); !a.UsedBy(scene.ID) {
		t.Fatalf("flag should list scene usage")
	}

	_, _, err = svc.AddPlacement(ctx, scene.ID, domain.Placement{AssetID: "missing"})
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) || refErr.Reason != domain.ReasonAssetNotFound {
		t.Fatalf("expected missing asset error, got %v", err)
	}
	if got, _ := svc.GetScene(scene.ID); len(got.Placements) != 2 {
		t.Fatalf("failed placement must not persist")
	}

	scene, _, err = svc.UpdateScene(ctx, scene.ID, core.ScenePatch{Description: ptr("Caracas")})
	if err != nil {
		t.Fatalf("update scene: %v", err)
	}
	if scene.Version != 2 {
		t.Fatalf("description edit must not bump version, got %d", scene.Version)
	}
	scene, _, err = svc.UpdateScene(ctx, scene.ID, core.ScenePatch{Settings: &domain.SceneSettings{Lighting: domain.LightingDark}})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if scene.Version != 3 {
		t.Fatalf("settings edit must bump version, got %d", scene.Version)
	}
}

func TestAttachSceneIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Páez", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	scene, _, err := svc.CreateScene(ctx, domain.Scene{Name: "Llanos", MarkerImage: "llanos.jpg", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}
	for i := 0; i < 2; i++ {
		sub, _, err = svc.AttachScene(ctx, sub.ID, scene.ID)
		if err != nil {
			t.Fatalf("attach scene: %v", err)
		}
	}
	if len(sub.SceneIDs) != 1 || sub.SceneIDs[0] != scene.ID {
		t.Fatalf("expected single scene link, got %v", sub.SceneIDs)
	}
	if got, _ := svc.GetScene(scene.ID); got.SubjectID == nil || *got.SubjectID != sub.ID {
		t.Fatalf("scene should reference subject")
	}
}

func TestSubjectARContent(t *testing.T) {
	svc := newService(t, core.WithAssetsBaseURL("https://cdn.example.org/"))
	ctx := context.Background()
	user := mustUser(t, svc)
	model := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "bolivar.glb")
	marker := mustAsset(t, svc, user.ID, domain.AssetKindARMarker, "bolivar.patt")
	birth := time.Date(1783, 7, 24, 0, 0, 0, 0, time.UTC)
	death := time.Date(1830, 12, 17, 0, 0, 0, 0, time.UTC)

	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Bolívar", CreatedBy: user.ID, Model3DID: &model.ID, BirthDate: &birth, DeathDate: &death})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	_, err = svc.SubjectARContent(sub.ID)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has(domain.FieldARMarker) || verr.Has(domain.FieldModel3D) {
		t.Fatalf("expected missing marker error, got %v", err)
	}

	if _, _, err := svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{ARMarkerID: &marker.ID}); err != nil {
		t.Fatalf("set marker: %v", err)
	}
	content, err := svc.SubjectARContent(sub.ID)
	if err != nil {
		t.Fatalf("ar content: %v", err)
	}
	if content.Model.Scale != core.DefaultModelScale {
		t.Fatalf("expected default scale, got %v", content.Model.Scale)
	}
	if content.Model.URL != "https://cdn.example.org/uploads/bolivar.glb" {
		t.Fatalf("unexpected model url %s", content.Model.URL)
	}
	if content.Age == nil || *content.Age != 47 {
		t.Fatalf("expected age at death 47, got %v", content.Age)
	}
}

func TestSceneARConfig(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	model := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "horse.glb")
	scene, _, err := svc.CreateScene(ctx, domain.Scene{
		Name: "Carabobo", MarkerImage: "carabobo.patt", MarkerType: domain.MarkerPattern, CreatedBy: user.ID,
		Placements: []domain.Placement{{AssetID: model.ID}},
	})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}
	cfg, err := svc.SceneARConfig(scene.ID)
	if err != nil {
		t.Fatalf("scene config: %v", err)
	}
	if len(cfg.Assets) != 1 || cfg.Assets[0].Kind != domain.AssetKind3DModel {
		t.Fatalf("unexpected assets: %+v", cfg.Assets)
	}
	if !strings.HasSuffix(cfg.Assets[0].URL, "/uploads/horse.glb") {
		t.Fatalf("unexpected url %s", cfg.Assets[0].URL)
	}
}

type fakeMarkers struct {
	generated []domain.Asset
	discarded []domain.Asset
}

func (f *fakeMarkers) Generate(_ context.Context, name, owner string) (domain.Asset, error) {
	a := domain.Asset{Name: name + " marker", Kind: domain.AssetKindARMarker, Location: "/markers/" + name + ".png", OwnerID: owner, Format: "PNG"}
	f.generated = append(f.generated, a)
	return a, nil
}

func (f *fakeMarkers) Discard(_ context.Context, a domain.Asset) error {
	f.discarded = append(f.discarded, a)
	return nil
}

func TestCreateSubjectGeneratesMarker(t *testing.T) {
	markers := &fakeMarkers{}
	svc := newService(t, core.WithMarkerGenerator(markers))
	ctx := context.Background()
	user := mustUser(t, svc)

	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Urdaneta", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if sub.ARMarkerID == nil {
		t.Fatalf("expected generated marker")
	}
	marker, err := svc.GetAsset(*sub.ARMarkerID)
	if err != nil || marker.Kind != domain.AssetKindARMarker {
		t.Fatalf("expected ar-marker asset, got %+v (%v)", marker, err)
	}

	_, _, err = svc.CreateSubject(ctx, domain.Subject{Name: "", CreatedBy: user.ID})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if len(markers.discarded) != 1 {
		t.Fatalf("expected generated marker to be discarded, got %d", len(markers.discarded))
	}
}

func TestDeleteSubjectKeepsScenes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Ribas", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	scene, _, err := svc.CreateScene(ctx, domain.Scene{Name: "Victoria", MarkerImage: "v.png", CreatedBy: user.ID, SubjectID: &sub.ID})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}
	if _, err := svc.DeleteSubject(ctx, sub.ID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}
	if _, err := svc.GetScene(scene.ID); err != nil {
		t.Fatalf("scene should survive subject deletion: %v", err)
	}
}

func TestGenerateMarkerForExistingSubject(t *testing.T) {
	markers := &fakeMarkers{}
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Anzoátegui", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if _, _, err := svc.GenerateMarker(ctx, sub.ID); err == nil {
		t.Fatalf("expected error without generator")
	}

	svc = newService(t, core.WithMarkerGenerator(markers))
	user = mustUser(t, svc)
	sub, _, err = svc.CreateSubject(ctx, domain.Subject{Name: "Anzoátegui", CreatedBy: user.ID, ARMarkerID: nil})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	first := *sub.ARMarkerID
	sub, _, err = svc.GenerateMarker(ctx, sub.ID)
	if err != nil {
		t.Fatalf("generate marker: %v", err)
	}
	if sub.ARMarkerID == nil || *sub.ARMarkerID == first || sub.Version != 2 {
		t.Fatalf("expected a new marker with a version bump: %+v", sub)
	}
	if len(markers.generated) != 2 {
		t.Fatalf("expected two generated markers, got %d", len(markers.generated))
	}
}

func TestSceneMovesBetweenSubjects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	var subs []domain.Subject
	for _, name := range []string{"Sucre", "Bolívar", "Urdaneta"} {
		sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: name, CreatedBy: user.ID})
		if err != nil {
			t.Fatalf("create subject %s: %v", name, err)
		}
		subs = append(subs, sub)
	}
	a, b, c := subs[0], subs[1], subs[2]
	scene, _, err := svc.CreateScene(ctx, domain.Scene{Name: "Ayacucho", MarkerImage: "ayacucho.png", CreatedBy: user.ID, SubjectID: &a.ID})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}

	scene, _, err = svc.UpdateScene(ctx, scene.ID, core.ScenePatch{SubjectID: &b.ID})
	if err != nil {
		t.Fatalf("move scene: %v", err)
	}
	if scene.SubjectID == nil || *scene.SubjectID != b.ID {
		t.Fatalf("scene should reference %s, got %v", b.ID, scene.SubjectID)
	}
	if got, _ := svc.GetSubject(a.ID); len(got.SceneIDs) != 0 {
		t.Fatalf("previous subject still lists the scene: %v", got.SceneIDs)
	}
	if got, _ := svc.GetSubject(b.ID); len(got.SceneIDs) != 1 || got.SceneIDs[0] != scene.ID {
		t.Fatalf("new subject should list the scene once, got %v", got.SceneIDs)
	}

	attached, _, err := svc.AttachScene(ctx, c.ID, scene.ID)
	if err != nil {
		t.Fatalf("attach scene: %v", err)
	}
	if !attached.HasScene(scene.ID) {
		t.Fatalf("attached subject should list the scene")
	}
	if got, _ := svc.GetSubject(b.ID); got.HasScene(scene.ID) {
		t.Fatalf("detached subject still lists the scene: %v", got.SceneIDs)
	}
	if got, _ := svc.GetScene(scene.ID); got.SubjectID == nil || *got.SubjectID != c.ID {
		t.Fatalf("scene should reference %s after attach", c.ID)
	}

	if _, _, err := svc.UpdateScene(ctx, scene.ID, core.ScenePatch{SubjectID: ptr("")}); err != nil {
		t.Fatalf("detach scene: %v", err)
	}
	if got, _ := svc.GetSubject(c.ID); got.HasScene(scene.ID) {
		t.Fatalf("detaching should unlink the scene: %v", got.SceneIDs)
	}
	if got, _ := svc.GetScene(scene.ID); got.SubjectID != nil {
		t.Fatalf("scene should have no subject, got %v", *got.SubjectID)
	}
}

func TestAttachSceneToMissingSubjectKeepsLinks(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Ribas", CreatedBy: user.ID})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	scene, _, err := svc.CreateScene(ctx, domain.Scene{Name: "La Victoria", MarkerImage: "victoria.png", CreatedBy: user.ID, SubjectID: &sub.ID})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}

	_, _, err = svc.AttachScene(ctx, "ghost", scene.ID)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntitySubject {
		t.Fatalf("expected subject not found, got %v", err)
	}
	if got, _ := svc.GetSubject(sub.ID); !got.HasScene(scene.ID) {
		t.Fatalf("failed attach must not unlink the current subject")
	}
}

func TestUpdateSceneReleasesRemovedAssets(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	x := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "x.glb")
	y := mustAsset(t, svc, user.ID, domain.AssetKind3DModel, "y.glb")
	scene, _, err := svc.CreateScene(ctx, domain.Scene{
		Name:        "Carabobo",
		MarkerImage: "carabobo.png",
		CreatedBy:   user.ID,
		Placements:  []domain.Placement{{AssetID: x.ID}, {AssetID: y.ID}},
	})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}

	_, res, err := svc.UpdateScene(ctx, scene.ID, core.ScenePatch{Placements: &[]domain.Placement{{AssetID: y.ID}}})
	if err != nil {
		t.Fatalf("update placements: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
	if got, _ := svc.GetAsset(x.ID); got.UsedBy(scene.ID) {
		t.Fatalf("removed asset still lists the scene: %v", got.SceneUsage)
	}
	if got, _ := svc.GetAsset(y.ID); !got.UsedBy(scene.ID) {
		t.Fatalf("kept asset should still list the scene")
	}
}

func TestUpdateSubjectClearsDates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	user := mustUser(t, svc)
	birth := time.Date(1790, 6, 13, 0, 0, 0, 0, time.UTC)
	death := time.Date(1873, 5, 6, 0, 0, 0, 0, time.UTC)
	sub, _, err := svc.CreateSubject(ctx, domain.Subject{Name: "Páez", CreatedBy: user.ID, BirthDate: &birth, DeathDate: &death})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{ClearDeathDate: true})
	if err != nil {
		t.Fatalf("clear death date: %v", err)
	}
	if sub.DeathDate != nil || sub.BirthDate == nil || !sub.BirthDate.Equal(birth) {
		t.Fatalf("expected only the death date cleared, got birth=%v death=%v", sub.BirthDate, sub.DeathDate)
	}

	sub, _, err = svc.UpdateSubject(ctx, sub.ID, core.SubjectPatch{BirthDate: &death, ClearBirthDate: true})
	if err != nil {
		t.Fatalf("clear birth date: %v", err)
	}
	if sub.BirthDate != nil {
		t.Fatalf("clear must win over a set birth date, got %v", sub.BirthDate)
	}
	if got, _ := svc.GetSubject(sub.ID); got.BirthDate != nil || got.DeathDate != nil {
		t.Fatalf("stored subject should have no dates: %+v", got)
	}
}

func TestCreateSubjectReportsFieldAndSlotErrors(t *testing.T) {
	svc := newService(t)
	user := mustUser(t, svc)
	image := mustAsset(t, svc, user.ID, domain.AssetKindImage, "retrato.png")

	_, _, err := svc.CreateSubject(context.Background(), domain.Subject{CreatedBy: user.ID, Model3DID: &image.ID})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("name") {
		t.Fatalf("expected name validation error, got %v", err)
	}
	var refErr *domain.ReferenceError
	if !errors.As(err, &refErr) || refErr.Reason != domain.ReasonKindMismatch {
		t.Fatalf("expected kind mismatch alongside field errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected 3d-model") {
		t.Fatalf("message should carry the reference error: %v", err)
	}
	if got := len(svc.ListSubjects()); got != 0 {
		t.Fatalf("nothing should be stored, got %d", got)
	}
}
