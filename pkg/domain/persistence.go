package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	CreateAsset(Asset) (Asset, error)
	UpdateAsset(id string, mutator func(*Asset) error) (Asset, error)
	// RegisterAssetUsage appends sceneID to the asset's usage list once.
	RegisterAssetUsage(assetID, sceneID string) (Asset, error)
	CreateSubject(Subject) (Subject, error)
	UpdateSubject(id string, mutator func(*Subject) error) (Subject, error)
	// InsertSubjectIfAbsent stores s unless a subject with the same external
	// ID exists. The stored or existing record is returned together with a
	// flag reporting whether an insert happened.
	InsertSubjectIfAbsent(s Subject) (Subject, bool, error)
	DeleteSubject(id string) error
	CreateScene(Scene) (Scene, error)
	UpdateScene(id string, mutator func(*Scene) error) (Scene, error)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	FindUser(id string) (User, bool)
	FindUserByEmail(email string) (User, bool)
	FindAsset(id string) (Asset, bool)
	FindSubject(id string) (Subject, bool)
	FindSubjectByExternalID(externalID string) (Subject, bool)
	FindScene(id string) (Scene, bool)
	// ListSubjects returns subjects ordered by insertion sequence.
	ListSubjects() []Subject
	ListAssets() []Asset
	ListScenes() []Scene
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id string) (User, bool)
	GetAsset(id string) (Asset, bool)
	GetSubject(id string) (Subject, bool)
	GetScene(id string) (Scene, bool)
	ListSubjects() []Subject
	ListAssets() []Asset
	ListScenes() []Scene
}
