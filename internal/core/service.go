package core

import (
	"context"
	"errors"
	"slices"
	"time"

	"proceres/internal/infra/persistence/memory"
	"proceres/internal/platform/logger"
	"proceres/pkg/domain"
)

// MarkerGenerator renders and stores a marker image for a subject. The
// returned asset is not yet persisted; Discard removes the stored image when
// the surrounding transaction does not commit.
type MarkerGenerator interface {
	Generate(ctx context.Context, subjectName, ownerID string) (Asset, error)
	Discard(ctx context.Context, asset Asset) error
}

// Service exposes higher-level transactional CRUD operations over the content graph.
type Service struct {
	store         PersistentStore
	log           *logger.Logger
	now           func() time.Time
	markers       MarkerGenerator
	assetsBaseURL string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l.With("component", "core")
		}
	}
}

// WithClock overrides the clock used for derived values such as age.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMarkerGenerator enables marker generation for subjects created without one.
func WithMarkerGenerator(g MarkerGenerator) Option {
	return func(s *Service) { s.markers = g }
}

// WithAssetsBaseURL sets the base used to resolve relative asset locations.
func WithAssetsBaseURL(base string) Option {
	return func(s *Service) { s.assetsBaseURL = base }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:         store,
		log:           logger.NewNop(),
		now:           func() time.Time { return time.Now().UTC() },
		assetsBaseURL: "http://localhost:3000",
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// AssetRoles returns a validator reading committed assets.
func (s *Service) AssetRoles() AssetRoleValidator {
	return NewAssetRoleValidator(storeLookup{store: s.store})
}

// CreateUser persists a new account.
func (s *Service) CreateUser(ctx context.Context, user User) (User, Result, error) {
	var created User
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateUser(user)
		return err
	})
	if err == nil {
		s.log.Debug("user created", "user_id", created.ID, "role", created.Role)
	}
	return created, res, err
}

// GetUser returns the user with id.
func (s *Service) GetUser(id string) (User, error) {
	u, ok := s.store.GetUser(id)
	if !ok {
		return User{}, &domain.NotFoundError{Entity: EntityUser, ID: id}
	}
	return u, nil
}

// CreateAsset persists a new asset.
func (s *Service) CreateAsset(ctx context.Context, asset Asset) (Asset, Result, error) {
	var created Asset
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindUser(asset.OwnerID); !ok && asset.OwnerID != "" {
			return &domain.NotFoundError{Entity: EntityUser, ID: asset.OwnerID}
		}
		var err error
		created, err = tx.CreateAsset(asset)
		return err
	})
	if err == nil {
		s.log.Debug("asset created", "asset_id", created.ID, "kind", created.Kind)
	}
	return created, res, err
}

// UpdateAsset applies patch to the asset with id.
func (s *Service) UpdateAsset(ctx context.Context, id string, patch AssetPatch) (Asset, Result, error) {
	var updated Asset
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateAsset(id, func(a *Asset) error {
			patch.Apply(a)
			return nil
		})
		return err
	})
	return updated, res, err
}

// GetAsset returns the asset with id.
func (s *Service) GetAsset(id string) (Asset, error) {
	a, ok := s.store.GetAsset(id)
	if !ok {
		return Asset{}, &domain.NotFoundError{Entity: EntityAsset, ID: id}
	}
	return a, nil
}

// CreateSubject validates the subject's asset slots and persists it. When a
// marker generator is configured and no marker is given, one is generated and
// stored in the same transaction.
func (s *Service) CreateSubject(ctx context.Context, subject Subject) (Subject, Result, error) {
	var marker *Asset
	if s.markers != nil && (subject.ARMarkerID == nil || *subject.ARMarkerID == "") {
		generated, err := s.markers.Generate(ctx, subject.Name, subject.CreatedBy)
		if err != nil {
			return Subject{}, Result{}, err
		}
		marker = &generated
	}

	var created Subject
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if marker != nil {
			stored, err := tx.CreateAsset(*marker)
			if err != nil {
				return err
			}
			subject.ARMarkerID = &stored.ID
		}
		if err := NewAssetRoleValidator(tx).ValidateNewSubject(ctx, subject, s.now()); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateSubject(subject)
		return err
	})
	if err != nil {
		if marker != nil {
			if derr := s.markers.Discard(context.WithoutCancel(ctx), *marker); derr != nil {
				s.log.Warn("discard generated marker", "location", marker.Location, "error", derr)
			}
		}
		return Subject{}, res, err
	}
	s.log.Debug("subject created", "subject_id", created.ID, "external_id", created.ExternalID)
	return created, res, nil
}

// GenerateMarker renders a marker for an existing subject and points the
// subject's marker slot at it. It requires a configured marker generator.
func (s *Service) GenerateMarker(ctx context.Context, subjectID string) (Subject, Result, error) {
	if s.markers == nil {
		return Subject{}, Result{}, errors.New("no marker generator configured")
	}
	current, err := s.GetSubject(subjectID)
	if err != nil {
		return Subject{}, Result{}, err
	}
	marker, err := s.markers.Generate(ctx, current.Name, current.CreatedBy)
	if err != nil {
		return Subject{}, Result{}, err
	}
	var updated Subject
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		stored, err := tx.CreateAsset(marker)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateSubject(subjectID, func(sub *Subject) error {
			sub.ARMarkerID = &stored.ID
			return nil
		})
		return err
	})
	if err != nil {
		if derr := s.markers.Discard(context.WithoutCancel(ctx), marker); derr != nil {
			s.log.Warn("discard generated marker", "location", marker.Location, "error", derr)
		}
		return Subject{}, res, err
	}
	s.log.Info("marker generated", "subject_id", subjectID, "asset_id", *updated.ARMarkerID)
	return updated, res, nil
}

// UpdateSubject applies patch to the subject with id. Field violations and
// reference errors on changed asset slots are reported together, and the
// version follows the structural-field policy.
func (s *Service) UpdateSubject(ctx context.Context, id string, patch SubjectPatch) (Subject, Result, error) {
	var updated Subject
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindSubject(id)
		if !ok {
			return &domain.NotFoundError{Entity: EntitySubject, ID: id}
		}
		next := current
		patch.Apply(&next)
		if err := NewAssetRoleValidator(tx).ValidateSubjectUpdate(ctx, current, next, s.now()); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateSubject(id, func(sub *Subject) error {
			*sub = next
			return nil
		})
		return err
	})
	if err == nil {
		s.log.Debug("subject updated", "subject_id", id, "version", updated.Version)
	}
	return updated, res, err
}

// GetSubject returns the subject with id.
func (s *Service) GetSubject(id string) (Subject, error) {
	sub, ok := s.store.GetSubject(id)
	if !ok {
		return Subject{}, &domain.NotFoundError{Entity: EntitySubject, ID: id}
	}
	return sub, nil
}

// ListSubjects returns every subject in insertion order.
func (s *Service) ListSubjects() []Subject {
	return s.store.ListSubjects()
}

// DeleteSubject removes a subject. Scenes that reference it keep their link.
func (s *Service) DeleteSubject(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSubject(id)
	})
}

// CreateScene persists a scene and registers the scene on every placed asset.
// A scene tied to a subject is appended to that subject's scene list.
func (s *Service) CreateScene(ctx context.Context, scene Scene) (Scene, Result, error) {
	var created Scene
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if err := requirePlacedAssets(tx, scene.Placements); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateScene(scene)
		if err != nil {
			return err
		}
		if err := applyIntents(tx, domain.UsageIntents(Scene{}, created)); err != nil {
			return err
		}
		if created.SubjectID != nil && *created.SubjectID != "" {
			return linkSubject(tx, *created.SubjectID, created.ID)
		}
		return nil
	})
	return created, res, err
}

// UpdateScene applies patch to the scene with id. Assets dropped from the
// placement list release the scene, and a new SubjectID moves the scene from
// the old subject's list to the new one in the same transaction.
func (s *Service) UpdateScene(ctx context.Context, id string, patch ScenePatch) (Scene, Result, error) {
	var updated Scene
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindScene(id)
		if !ok {
			return &domain.NotFoundError{Entity: EntityScene, ID: id}
		}
		if patch.Placements != nil {
			if err := requirePlacedAssets(tx, *patch.Placements); err != nil {
				return err
			}
		}
		var err error
		updated, err = tx.UpdateScene(id, func(sc *Scene) error {
			patch.Apply(sc)
			return nil
		})
		if err != nil {
			return err
		}
		if err := applyIntents(tx, domain.UsageIntents(current, updated)); err != nil {
			return err
		}
		if sameRef(current.SubjectID, updated.SubjectID) {
			return nil
		}
		return relinkScene(tx, id, current.SubjectID, deref(updated.SubjectID))
	})
	if err == nil {
		s.log.Debug("scene updated", "scene_id", id, "version", updated.Version)
	}
	return updated, res, err
}

// GetScene returns the scene with id.
func (s *Service) GetScene(id string) (Scene, error) {
	sc, ok := s.store.GetScene(id)
	if !ok {
		return Scene{}, &domain.NotFoundError{Entity: EntityScene, ID: id}
	}
	return sc, nil
}

// AddPlacement appends a placement to a scene and records the asset's usage
// in the same transaction.
func (s *Service) AddPlacement(ctx context.Context, sceneID string, placement Placement) (Scene, Result, error) {
	var updated Scene
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindScene(sceneID)
		if !ok {
			return &domain.NotFoundError{Entity: EntityScene, ID: sceneID}
		}
		if err := requirePlacedAssets(tx, []Placement{placement}); err != nil {
			return err
		}
		next, intents := domain.PlanAddPlacement(current, placement)
		var err error
		updated, err = tx.UpdateScene(sceneID, func(sc *Scene) error {
			*sc = next
			return nil
		})
		if err != nil {
			return err
		}
		return applyIntents(tx, intents)
	})
	return updated, res, err
}

// AttachScene links a scene to a subject. The scene is appended to the
// subject's list once, removed from the list of the subject it belonged to
// before, and records the new subject.
func (s *Service) AttachScene(ctx context.Context, subjectID, sceneID string) (Subject, Result, error) {
	var updated Subject
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		scene, ok := tx.FindScene(sceneID)
		if !ok {
			return &domain.NotFoundError{Entity: EntityScene, ID: sceneID}
		}
		if err := relinkScene(tx, sceneID, scene.SubjectID, subjectID); err != nil {
			return err
		}
		if deref(scene.SubjectID) != subjectID {
			if _, err := tx.UpdateScene(sceneID, func(sc *Scene) error {
				sc.SubjectID = &subjectID
				return nil
			}); err != nil {
				return err
			}
		}
		updated, _ = tx.FindSubject(subjectID)
		return nil
	})
	return updated, res, err
}

// relinkScene keeps Subject.SceneIDs in step with a scene whose subject moves
// from `from` to `to`. An empty `to` only detaches. A `from` subject that no
// longer exists is skipped.
func relinkScene(tx Transaction, sceneID string, from *string, to string) error {
	if old := deref(from); old != "" && old != to {
		if err := unlinkSubject(tx, old, sceneID); err != nil {
			return err
		}
	}
	if to == "" {
		return nil
	}
	return linkSubject(tx, to, sceneID)
}

func unlinkSubject(tx Transaction, subjectID, sceneID string) error {
	sub, ok := tx.FindSubject(subjectID)
	if !ok || !sub.HasScene(sceneID) {
		return nil
	}
	_, err := tx.UpdateSubject(subjectID, func(s *Subject) error {
		s.SceneIDs = slices.DeleteFunc(s.SceneIDs, func(id string) bool { return id == sceneID })
		return nil
	})
	return err
}

func deref(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}

func linkSubject(tx Transaction, subjectID, sceneID string) error {
	sub, ok := tx.FindSubject(subjectID)
	if !ok {
		return &domain.NotFoundError{Entity: EntitySubject, ID: subjectID}
	}
	if sub.HasScene(sceneID) {
		return nil
	}
	_, err := tx.UpdateSubject(subjectID, func(s *Subject) error {
		s.SceneIDs = append(s.SceneIDs, sceneID)
		return nil
	})
	return err
}

func requirePlacedAssets(view TransactionView, placements []Placement) error {
	for _, p := range placements {
		if p.AssetID == "" {
			continue
		}
		if _, ok := view.FindAsset(p.AssetID); !ok {
			return &domain.ReferenceError{Field: domain.FieldPlacements, AssetID: p.AssetID, Reason: domain.ReasonAssetNotFound}
		}
	}
	return nil
}

func applyIntents(tx Transaction, intents []domain.WriteIntent) error {
	for _, intent := range intents {
		if err := intent.Apply(tx); err != nil {
			return err
		}
	}
	return nil
}
