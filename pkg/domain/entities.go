// Package domain defines the persistent entities, value types, validation,
// versioning policy and rule evaluation primitives used by proceres.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the content graph.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies an account record.
	EntityUser EntityType = "user"
	// EntityAsset identifies a stored media object.
	EntityAsset EntityType = "asset"
	// EntitySubject identifies a historical-figure record.
	EntitySubject EntityType = "subject"
	// EntityScene identifies an AR scene record.
	EntityScene EntityType = "scene"
)

// Role is the single role held by a user account.
type Role string

// Recognised account roles.
const (
	RoleUser           Role = "user"
	RoleContentCreator Role = "content-creator"
	RoleAdmin          Role = "admin"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContentCreator, RoleAdmin:
		return true
	}
	return false
}

// AssetKind is the business meaning of an asset. It never changes after creation.
type AssetKind string

// Canonical asset kinds.
const (
	AssetKind3DModel  AssetKind = "3d-model"
	AssetKindImage    AssetKind = "image"
	AssetKindVideo    AssetKind = "video"
	AssetKindAudio    AssetKind = "audio"
	AssetKindARMarker AssetKind = "ar-marker"
	AssetKindTexture  AssetKind = "texture"
	AssetKindOther    AssetKind = "other"
)

// Valid reports whether k is one of the canonical kinds.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetKind3DModel, AssetKindImage, AssetKindVideo, AssetKindAudio,
		AssetKindARMarker, AssetKindTexture, AssetKindOther:
		return true
	}
	return false
}

// SubjectStatus enumerates subject lifecycle states.
type SubjectStatus string

// Subject lifecycle states.
const (
	StatusActive   SubjectStatus = "active"
	StatusInactive SubjectStatus = "inactive"
	StatusDraft    SubjectStatus = "draft"
)

// MarkerType enumerates the tracking marker flavours a scene can use.
type MarkerType string

// Marker types understood by AR clients.
const (
	MarkerImage   MarkerType = "image"
	MarkerQR      MarkerType = "qr"
	MarkerNFT     MarkerType = "nft"
	MarkerPattern MarkerType = "pattern"
)

// Lighting enumerates scene lighting presets.
type Lighting string

// Lighting presets.
const (
	LightingDefault Lighting = "default"
	LightingBright  Lighting = "bright"
	LightingDark    Lighting = "dark"
	LightingCustom  Lighting = "custom"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRef is the identity handed to the core by the auth provider. The role
// value is trusted as given.
type UserRef struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// User is an account identity.
type User struct {
	Base
	Email        string `json:"email" validate:"required,email"`
	PasswordHash string `json:"password_hash" validate:"required"`
	Role         Role   `json:"role" validate:"required,oneof=user content-creator admin"`
}

// Ref returns the identity reference for the user.
func (u User) Ref() UserRef { return UserRef{ID: u.ID, Role: u.Role} }

// AssetDimensions holds pixel dimensions for images and markers.
type AssetDimensions struct {
	Width  int `json:"width" validate:"min=0"`
	Height int `json:"height" validate:"min=0"`
}

// AssetMetadata carries kind-dependent descriptive fields.
type AssetMetadata struct {
	Vertices        int              `json:"vertices,omitempty" validate:"min=0"`
	Triangles       int              `json:"triangles,omitempty" validate:"min=0"`
	Animations      []string         `json:"animations,omitempty"`
	Dimensions      *AssetDimensions `json:"dimensions,omitempty"`
	DurationSeconds float64          `json:"duration_seconds,omitempty" validate:"min=0"`
}

// Asset is a stored media object referenced by subjects and scenes.
type Asset struct {
	Base
	Name       string        `json:"name" validate:"required,max=100"`
	Kind       AssetKind     `json:"kind" validate:"required,oneof=3d-model image video audio ar-marker texture other"`
	Location   string        `json:"location" validate:"required,uri"`
	Thumbnail  string        `json:"thumbnail,omitempty"`
	SizeBytes  *int64        `json:"size_bytes,omitempty" validate:"omitempty,min=0"`
	Format     string        `json:"format,omitempty" validate:"omitempty,oneof=GLB GLTF FBX OBJ JPEG PNG MP4 WEBM MP3 WAV PAT OTHER"`
	Tags       []string      `json:"tags,omitempty" validate:"max=10"`
	OwnerID    string        `json:"owner_id" validate:"required"`
	Public     bool          `json:"public"`
	Metadata   AssetMetadata `json:"metadata"`
	SceneUsage []string      `json:"scene_usage,omitempty"`
}

// FullURL resolves a relative location against base. Absolute http(s)
// locations are returned unchanged.
func (a Asset) FullURL(base string) string {
	if strings.HasPrefix(a.Location, "http://") || strings.HasPrefix(a.Location, "https://") {
		return a.Location
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(a.Location, "/")
}

// UsedBy reports whether the asset lists sceneID among its scene usages.
func (a Asset) UsedBy(sceneID string) bool {
	for _, id := range a.SceneUsage {
		if id == sceneID {
			return true
		}
	}
	return false
}

// Subject is a historical figure ("prócer") enriched with AR content.
type Subject struct {
	Base
	// ExternalID is the natural key assigned by the canonical dataset.
	ExternalID    string        `json:"external_id,omitempty"`
	Name          string        `json:"name" validate:"required,max=100"`
	FullName      string        `json:"full_name,omitempty"`
	Alias         string        `json:"alias,omitempty"`
	BirthDate     *time.Time    `json:"birth_date,omitempty"`
	DeathDate     *time.Time    `json:"death_date,omitempty"`
	BirthPlace    string        `json:"birth_place,omitempty"`
	DeathPlace    string        `json:"death_place,omitempty"`
	Roles         []string      `json:"roles,omitempty"`
	NotableEvents []string      `json:"notable_events,omitempty"`
	Achievements  []string      `json:"achievements,omitempty"`
	Quote         string        `json:"quote,omitempty"`
	ProfileImage  string        `json:"profile_image,omitempty"`
	Model3DID     *string       `json:"model_3d_id,omitempty"`
	ARMarkerID    *string       `json:"ar_marker_id,omitempty"`
	SceneIDs      []string      `json:"scene_ids,omitempty"`
	CreatedBy     string        `json:"created_by" validate:"required"`
	Status        SubjectStatus `json:"status" validate:"required,oneof=active inactive draft"`
	Version       int           `json:"version"`
	Seq           int64         `json:"seq"`
}

// Age returns the subject's age in whole years at asOf, or at the death date
// when one is recorded. The boolean is false when no birth date is known.
func (s Subject) Age(asOf time.Time) (int, bool) {
	if s.BirthDate == nil {
		return 0, false
	}
	ref := asOf
	if s.DeathDate != nil {
		ref = *s.DeathDate
	}
	return YearsBetween(*s.BirthDate, ref), true
}

// YearsBetween counts whole years from birth to ref, rounding down unless the
// reference month/day has reached the birth month/day.
func YearsBetween(birth, ref time.Time) int {
	by, bm, bd := birth.UTC().Date()
	ry, rm, rd := ref.UTC().Date()
	years := ry - by
	if rm < bm || (rm == bm && rd < bd) {
		years--
	}
	return years
}

// HasScene reports whether sceneID is already linked to the subject.
func (s Subject) HasScene(sceneID string) bool {
	for _, id := range s.SceneIDs {
		if id == sceneID {
			return true
		}
	}
	return false
}

// Vector3 is a 3-axis value used for position, rotation and scale.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// UnitScale is the default placement scale.
var UnitScale = Vector3{X: 1, Y: 1, Z: 1}

// Animation describes an optional clip played on a placed asset.
type Animation struct {
	Name  string  `json:"name"`
	Loop  bool    `json:"loop"`
	Speed float64 `json:"speed" validate:"min=0"`
}

// Placement positions an asset inside a scene.
type Placement struct {
	AssetID     string         `json:"asset_id" validate:"required"`
	Position    Vector3        `json:"position"`
	Rotation    Vector3        `json:"rotation"`
	Scale       Vector3        `json:"scale"`
	Animation   *Animation     `json:"animation,omitempty"`
	Interactive bool           `json:"interactive"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SceneSettings groups renderer settings for a scene.
type SceneSettings struct {
	Lighting    Lighting `json:"lighting" validate:"omitempty,oneof=default bright dark custom"`
	Environment string   `json:"environment,omitempty"`
	Shadows     bool     `json:"shadows"`
}

// Scene places assets in an AR space, optionally tied to one subject.
type Scene struct {
	Base
	Name        string        `json:"name" validate:"required,max=100"`
	Description string        `json:"description,omitempty" validate:"max=500"`
	MarkerImage string        `json:"marker_image" validate:"required"`
	MarkerType  MarkerType    `json:"marker_type" validate:"required,oneof=image qr nft pattern"`
	Placements  []Placement   `json:"placements,omitempty" validate:"dive"`
	SubjectID   *string       `json:"subject_id,omitempty"`
	CreatedBy   string        `json:"created_by" validate:"required"`
	Active      bool          `json:"active"`
	Public      bool          `json:"public"`
	Settings    SceneSettings `json:"settings"`
	Version     int           `json:"version"`
}

// AssetIDs returns the distinct asset references used by the scene's placements in order.
func (s Scene) AssetIDs() []string {
	seen := make(map[string]struct{}, len(s.Placements))
	out := make([]string, 0, len(s.Placements))
	for _, p := range s.Placements {
		if _, ok := seen[p.AssetID]; ok {
			continue
		}
		seen[p.AssetID] = struct{}{}
		out = append(out, p.AssetID)
	}
	return out
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
