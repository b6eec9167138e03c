package core

import (
	"time"

	"proceres/pkg/domain"
)

// AssetPatch lists optional asset field updates. Nil fields are left untouched.
type AssetPatch struct {
	Name      *string
	Kind      *AssetKind
	Location  *string
	Thumbnail *string
	SizeBytes *int64
	Format    *string
	Tags      *[]string
	Public    *bool
	Metadata  *domain.AssetMetadata
}

// Apply copies the set fields onto a.
func (p AssetPatch) Apply(a *Asset) {
	setIf(&a.Name, p.Name)
	setIf(&a.Kind, p.Kind)
	setIf(&a.Location, p.Location)
	setIf(&a.Thumbnail, p.Thumbnail)
	setIf(&a.Format, p.Format)
	setIf(&a.Public, p.Public)
	setIf(&a.Metadata, p.Metadata)
	if p.SizeBytes != nil {
		size := *p.SizeBytes
		a.SizeBytes = &size
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), (*p.Tags)...)
	}
}

// SubjectPatch lists optional subject field updates. An empty string in
// Model3DID or ARMarkerID clears the slot. ClearBirthDate and ClearDeathDate
// remove a recorded date and take precedence over BirthDate and DeathDate.
type SubjectPatch struct {
	Name           *string
	FullName       *string
	Alias          *string
	BirthDate      *time.Time
	DeathDate      *time.Time
	ClearBirthDate bool
	ClearDeathDate bool
	BirthPlace     *string
	DeathPlace     *string
	Roles          *[]string
	NotableEvents  *[]string
	Achievements   *[]string
	Quote          *string
	ProfileImage   *string
	Model3DID      *string
	ARMarkerID     *string
	Status         *domain.SubjectStatus
}

// Apply copies the set fields onto s.
func (p SubjectPatch) Apply(s *Subject) {
	setIf(&s.Name, p.Name)
	setIf(&s.FullName, p.FullName)
	setIf(&s.Alias, p.Alias)
	setIf(&s.BirthPlace, p.BirthPlace)
	setIf(&s.DeathPlace, p.DeathPlace)
	setIf(&s.Quote, p.Quote)
	setIf(&s.ProfileImage, p.ProfileImage)
	setIf(&s.Status, p.Status)
	if p.BirthDate != nil {
		d := *p.BirthDate
		s.BirthDate = &d
	}
	if p.DeathDate != nil {
		d := *p.DeathDate
		s.DeathDate = &d
	}
	if p.ClearBirthDate {
		s.BirthDate = nil
	}
	if p.ClearDeathDate {
		s.DeathDate = nil
	}
	if p.Roles != nil {
		s.Roles = append([]string(nil), (*p.Roles)...)
	}
	if p.NotableEvents != nil {
		s.NotableEvents = append([]string(nil), (*p.NotableEvents)...)
	}
	if p.Achievements != nil {
		s.Achievements = append([]string(nil), (*p.Achievements)...)
	}
	if p.Model3DID != nil {
		s.Model3DID = optionalRef(*p.Model3DID)
	}
	if p.ARMarkerID != nil {
		s.ARMarkerID = optionalRef(*p.ARMarkerID)
	}
}

// ScenePatch lists optional scene field updates. An empty SubjectID detaches
// the scene from its subject.
type ScenePatch struct {
	Name        *string
	Description *string
	MarkerImage *string
	MarkerType  *domain.MarkerType
	Placements  *[]Placement
	SubjectID   *string
	Active      *bool
	Public      *bool
	Settings    *domain.SceneSettings
}

// Apply copies the set fields onto sc.
func (p ScenePatch) Apply(sc *Scene) {
	setIf(&sc.Name, p.Name)
	setIf(&sc.Description, p.Description)
	setIf(&sc.MarkerImage, p.MarkerImage)
	setIf(&sc.MarkerType, p.MarkerType)
	setIf(&sc.Active, p.Active)
	setIf(&sc.Public, p.Public)
	setIf(&sc.Settings, p.Settings)
	if p.Placements != nil {
		sc.Placements = append([]Placement(nil), (*p.Placements)...)
	}
	if p.SubjectID != nil {
		sc.SubjectID = optionalRef(*p.SubjectID)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func optionalRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
