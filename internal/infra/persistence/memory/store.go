// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments and as the transactional engine
// behind the snapshotting SQL stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"proceres/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Asset aliases domain.Asset.
	Asset = domain.Asset
	// Subject aliases domain.Subject.
	Subject = domain.Subject
	// Scene aliases domain.Scene.
	Scene = domain.Scene
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users    map[string]User
	assets   map[string]Asset
	subjects map[string]Subject
	scenes   map[string]Scene
	// secondary indexes
	byEmail    map[string]string
	byExternal map[string]string
	seq        int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Users    map[string]User    `json:"users"`
	Assets   map[string]Asset   `json:"assets"`
	Subjects map[string]Subject `json:"subjects"`
	Scenes   map[string]Scene   `json:"scenes"`
	Seq      int64              `json:"seq"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:      make(map[string]User),
		assets:     make(map[string]Asset),
		subjects:   make(map[string]Subject),
		scenes:     make(map[string]Scene),
		byEmail:    make(map[string]string),
		byExternal: make(map[string]string),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Users:    make(map[string]User, len(state.users)),
		Assets:   make(map[string]Asset, len(state.assets)),
		Subjects: make(map[string]Subject, len(state.subjects)),
		Scenes:   make(map[string]Scene, len(state.scenes)),
		Seq:      state.seq,
	}
	for k, v := range state.users {
		s.Users[k] = v
	}
	for k, v := range state.assets {
		s.Assets[k] = cloneAsset(v)
	}
	for k, v := range state.subjects {
		s.Subjects[k] = cloneSubject(v)
	}
	for k, v := range state.scenes {
		s.Scenes[k] = cloneScene(v)
	}
	return s
}

// memoryStateFromSnapshot rebuilds indexes and repairs a sequence counter
// that lags behind stored subjects.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.seq = s.Seq
	for k, v := range s.Users {
		state.users[k] = v
		state.byEmail[emailKey(v.Email)] = k
	}
	for k, v := range s.Assets {
		state.assets[k] = cloneAsset(v)
	}
	for k, v := range s.Subjects {
		state.subjects[k] = cloneSubject(v)
		if v.ExternalID != "" {
			state.byExternal[v.ExternalID] = k
		}
		if v.Seq > state.seq {
			state.seq = v.Seq
		}
	}
	for k, v := range s.Scenes {
		state.scenes[k] = cloneScene(v)
	}
	return state
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAsset(a Asset) Asset {
	cp := a
	cp.Tags = cloneStrings(a.Tags)
	cp.SceneUsage = cloneStrings(a.SceneUsage)
	cp.Metadata.Animations = cloneStrings(a.Metadata.Animations)
	if a.SizeBytes != nil {
		v := *a.SizeBytes
		cp.SizeBytes = &v
	}
	if a.Metadata.Dimensions != nil {
		d := *a.Metadata.Dimensions
		cp.Metadata.Dimensions = &d
	}
	return cp
}

func cloneSubject(s Subject) Subject {
	cp := s
	cp.BirthDate = cloneTimePtr(s.BirthDate)
	cp.DeathDate = cloneTimePtr(s.DeathDate)
	cp.Roles = cloneStrings(s.Roles)
	cp.NotableEvents = cloneStrings(s.NotableEvents)
	cp.Achievements = cloneStrings(s.Achievements)
	cp.Model3DID = cloneStringPtr(s.Model3DID)
	cp.ARMarkerID = cloneStringPtr(s.ARMarkerID)
	cp.SceneIDs = cloneStrings(s.SceneIDs)
	return cp
}

func cloneScene(s Scene) Scene {
	cp := s
	cp.SubjectID = cloneStringPtr(s.SubjectID)
	if s.Placements != nil {
		cp.Placements = make([]domain.Placement, len(s.Placements))
		for i, p := range s.Placements {
			pc := p
			if p.Animation != nil {
				anim := *p.Animation
				pc.Animation = &anim
			}
			if p.Metadata != nil {
				pc.Metadata = make(map[string]any, len(p.Metadata))
				for k, v := range p.Metadata {
					pc.Metadata[k] = v
				}
			}
			cp.Placements[i] = pc
		}
	}
	return cp
}

// Store provides an in-memory transactional store for the content graph.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to a private copy of the store state.
type transaction struct {
	transactionView
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn succeeds and no blocking rule
// violation is raised.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = newTransactionView(&tx.state)

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil && len(tx.changes) > 0 {
		res, err := s.engine.Evaluate(ctx, tx.transactionView, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return tx.transactionView
}

// FindUser returns the user with id.
func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

// FindUserByEmail performs a case-insensitive email lookup.
func (v transactionView) FindUserByEmail(email string) (User, bool) {
	id, ok := v.state.byEmail[emailKey(email)]
	if !ok {
		return User{}, false
	}
	return v.FindUser(id)
}

// FindAsset returns the asset with id.
func (v transactionView) FindAsset(id string) (Asset, bool) {
	a, ok := v.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

// FindSubject returns the subject with id.
func (v transactionView) FindSubject(id string) (Subject, bool) {
	s, ok := v.state.subjects[id]
	if !ok {
		return Subject{}, false
	}
	return cloneSubject(s), true
}

// FindSubjectByExternalID resolves a subject through its dataset natural key.
func (v transactionView) FindSubjectByExternalID(externalID string) (Subject, bool) {
	id, ok := v.state.byExternal[externalID]
	if !ok {
		return Subject{}, false
	}
	return v.FindSubject(id)
}

// FindScene returns the scene with id.
func (v transactionView) FindScene(id string) (Scene, bool) {
	s, ok := v.state.scenes[id]
	if !ok {
		return Scene{}, false
	}
	return cloneScene(s), true
}

// ListSubjects returns subjects ordered by insertion sequence.
func (v transactionView) ListSubjects() []Subject {
	return listSubjects(v.state)
}

// ListAssets returns assets ordered by creation time then ID.
func (v transactionView) ListAssets() []Asset {
	return listAssets(v.state)
}

// ListScenes returns scenes ordered by creation time then ID.
func (v transactionView) ListScenes() []Scene {
	return listScenes(v.state)
}

func listSubjects(state *memoryState) []Subject {
	out := make([]Subject, 0, len(state.subjects))
	for _, s := range state.subjects {
		out = append(out, cloneSubject(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func listAssets(state *memoryState) []Asset {
	out := make([]Asset, 0, len(state.assets))
	for _, a := range state.assets {
		out = append(out, cloneAsset(a))
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].Base, out[j].Base) })
	return out
}

func listScenes(state *memoryState) []Scene {
	out := make([]Scene, 0, len(state.scenes))
	for _, s := range state.scenes {
		out = append(out, cloneScene(s))
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i].Base, out[j].Base) })
	return out
}

func createdBefore(a, b domain.Base) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func newID() string { return uuid.NewString() }

// CreateUser stores a new account. Emails are unique case-insensitively.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u.Email = strings.TrimSpace(u.Email)
	if err := domain.ValidateUser(u); err != nil {
		return User{}, err
	}
	if _, taken := tx.state.byEmail[emailKey(u.Email)]; taken {
		verr := domain.NewValidationError(domain.EntityUser)
		verr.Add("email", "is already registered")
		return User{}, verr
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = u
	tx.state.byEmail[emailKey(u.Email)] = u.ID
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// CreateAsset stores a new asset after normalising its format.
func (tx *transaction) CreateAsset(a Asset) (Asset, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if _, exists := tx.state.assets[a.ID]; exists {
		return Asset{}, fmt.Errorf("asset %q already exists", a.ID)
	}
	a.Format = strings.ToUpper(strings.TrimSpace(a.Format))
	if err := domain.ValidateAsset(a); err != nil {
		return Asset{}, err
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.assets[a.ID] = cloneAsset(a)
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionCreate, After: cloneAsset(a)})
	return cloneAsset(a), nil
}

// UpdateAsset mutates an asset. Its kind is immutable.
func (tx *transaction) UpdateAsset(id string, mutator func(*Asset) error) (Asset, error) {
	current, ok := tx.state.assets[id]
	if !ok {
		return Asset{}, &domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
	}
	before := cloneAsset(current)
	next := cloneAsset(current)
	if err := mutator(&next); err != nil {
		return Asset{}, err
	}
	next.ID = id
	next.CreatedAt = before.CreatedAt
	next.Format = strings.ToUpper(strings.TrimSpace(next.Format))
	if next.Kind != before.Kind {
		verr := domain.NewValidationError(domain.EntityAsset)
		verr.Add("kind", "is immutable")
		return Asset{}, verr
	}
	if err := domain.ValidateAsset(next); err != nil {
		return Asset{}, err
	}
	next.UpdatedAt = tx.now
	tx.state.assets[id] = cloneAsset(next)
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionUpdate, Before: before, After: cloneAsset(next)})
	return cloneAsset(next), nil
}

// RegisterAssetUsage appends sceneID to the asset's usage list once.
func (tx *transaction) RegisterAssetUsage(assetID, sceneID string) (Asset, error) {
	current, ok := tx.state.assets[assetID]
	if !ok {
		return Asset{}, &domain.NotFoundError{Entity: domain.EntityAsset, ID: assetID}
	}
	if current.UsedBy(sceneID) {
		return cloneAsset(current), nil
	}
	before := cloneAsset(current)
	current = cloneAsset(current)
	current.SceneUsage = append(current.SceneUsage, sceneID)
	current.UpdatedAt = tx.now
	tx.state.assets[assetID] = current
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionUpdate, Before: before, After: cloneAsset(current)})
	return cloneAsset(current), nil
}

func (tx *transaction) prepareSubject(s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	if _, exists := tx.state.subjects[s.ID]; exists {
		return Subject{}, fmt.Errorf("subject %q already exists", s.ID)
	}
	if s.Status == "" {
		s.Status = domain.StatusActive
	}
	s.Version = 1
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	if err := domain.ValidateSubject(s, tx.now); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (tx *transaction) insertSubject(s Subject) Subject {
	tx.state.seq++
	s.Seq = tx.state.seq
	tx.state.subjects[s.ID] = cloneSubject(s)
	if s.ExternalID != "" {
		tx.state.byExternal[s.ExternalID] = s.ID
	}
	tx.recordChange(Change{Entity: domain.EntitySubject, Action: domain.ActionCreate, After: cloneSubject(s)})
	return cloneSubject(s)
}

// CreateSubject stores a new subject with version 1. A duplicate external ID is rejected.
func (tx *transaction) CreateSubject(s Subject) (Subject, error) {
	prepared, err := tx.prepareSubject(s)
	if err != nil {
		return Subject{}, err
	}
	if prepared.ExternalID != "" {
		if _, taken := tx.state.byExternal[prepared.ExternalID]; taken {
			verr := domain.NewValidationError(domain.EntitySubject)
			verr.Add("external_id", "is already in use")
			return Subject{}, verr
		}
	}
	return tx.insertSubject(prepared), nil
}

// InsertSubjectIfAbsent stores s unless its external ID is already present,
// in which case the stored subject is returned untouched.
func (tx *transaction) InsertSubjectIfAbsent(s Subject) (Subject, bool, error) {
	if s.ExternalID == "" {
		verr := domain.NewValidationError(domain.EntitySubject)
		verr.Add("external_id", "is required")
		return Subject{}, false, verr
	}
	if existing, ok := tx.FindSubjectByExternalID(s.ExternalID); ok {
		return existing, false, nil
	}
	prepared, err := tx.prepareSubject(s)
	if err != nil {
		return Subject{}, false, err
	}
	return tx.insertSubject(prepared), true, nil
}

// UpdateSubject mutates a subject. Identity, provenance and sequence fields are
// preserved and the version follows domain.SubjectVersion.
func (tx *transaction) UpdateSubject(id string, mutator func(*Subject) error) (Subject, error) {
	current, ok := tx.state.subjects[id]
	if !ok {
		return Subject{}, &domain.NotFoundError{Entity: domain.EntitySubject, ID: id}
	}
	before := cloneSubject(current)
	next := cloneSubject(current)
	if err := mutator(&next); err != nil {
		return Subject{}, err
	}
	next.ID = id
	next.ExternalID = before.ExternalID
	next.CreatedAt = before.CreatedAt
	next.CreatedBy = before.CreatedBy
	next.Seq = before.Seq
	next.Version = domain.SubjectVersion(before, next).NewVersion
	next.UpdatedAt = tx.now
	if err := domain.ValidateSubject(next, tx.now); err != nil {
		return Subject{}, err
	}
	tx.state.subjects[id] = cloneSubject(next)
	tx.recordChange(Change{Entity: domain.EntitySubject, Action: domain.ActionUpdate, Before: before, After: cloneSubject(next)})
	return cloneSubject(next), nil
}

// DeleteSubject removes a subject. Scenes pointing at it are left in place.
func (tx *transaction) DeleteSubject(id string) error {
	current, ok := tx.state.subjects[id]
	if !ok {
		return &domain.NotFoundError{Entity: domain.EntitySubject, ID: id}
	}
	delete(tx.state.subjects, id)
	if current.ExternalID != "" {
		delete(tx.state.byExternal, current.ExternalID)
	}
	tx.recordChange(Change{Entity: domain.EntitySubject, Action: domain.ActionDelete, Before: cloneSubject(current)})
	return nil
}

func sceneDefaults(s Scene) Scene {
	if s.MarkerType == "" {
		s.MarkerType = domain.MarkerImage
	}
	if s.Settings.Lighting == "" {
		s.Settings.Lighting = domain.LightingDefault
	}
	for i, p := range s.Placements {
		s.Placements[i] = domain.PlacementDefaults(p)
	}
	return s
}

// CreateScene stores a new scene with version 1.
func (tx *transaction) CreateScene(s Scene) (Scene, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	if _, exists := tx.state.scenes[s.ID]; exists {
		return Scene{}, fmt.Errorf("scene %q already exists", s.ID)
	}
	s = sceneDefaults(cloneScene(s))
	if err := domain.ValidateScene(s); err != nil {
		return Scene{}, err
	}
	s.Version = 1
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.scenes[s.ID] = cloneScene(s)
	tx.recordChange(Change{Entity: domain.EntityScene, Action: domain.ActionCreate, After: cloneScene(s)})
	return cloneScene(s), nil
}

// UpdateScene mutates a scene and applies domain.SceneVersion.
func (tx *transaction) UpdateScene(id string, mutator func(*Scene) error) (Scene, error) {
	current, ok := tx.state.scenes[id]
	if !ok {
		return Scene{}, &domain.NotFoundError{Entity: domain.EntityScene, ID: id}
	}
	before := cloneScene(current)
	next := cloneScene(current)
	if err := mutator(&next); err != nil {
		return Scene{}, err
	}
	next = sceneDefaults(next)
	next.ID = id
	next.CreatedAt = before.CreatedAt
	next.CreatedBy = before.CreatedBy
	next.Version = domain.SceneVersion(before, next).NewVersion
	next.UpdatedAt = tx.now
	if err := domain.ValidateScene(next); err != nil {
		return Scene{}, err
	}
	tx.state.scenes[id] = cloneScene(next)
	tx.recordChange(Change{Entity: domain.EntityScene, Action: domain.ActionUpdate, Before: before, After: cloneScene(next)})
	return cloneScene(next), nil
}

// Read helpers ---------------------------------------------------------------

// GetUser retrieves a user by ID from committed state.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindUser(id)
}

// GetAsset retrieves an asset by ID from committed state.
func (s *Store) GetAsset(id string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindAsset(id)
}

// GetSubject retrieves a subject by ID from committed state.
func (s *Store) GetSubject(id string) (Subject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindSubject(id)
}

// GetScene retrieves a scene by ID from committed state.
func (s *Store) GetScene(id string) (Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindScene(id)
}

// ListSubjects returns committed subjects in insertion order.
func (s *Store) ListSubjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSubjects(&s.state)
}

// ListAssets returns committed assets.
func (s *Store) ListAssets() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAssets(&s.state)
}

// ListScenes returns committed scenes.
func (s *Store) ListScenes() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listScenes(&s.state)
}
