package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError enumerates every violated field constraint of a record.
type ValidationError struct {
	Entity EntityType
	Fields map[string][]string
}

// NewValidationError returns an empty error for entity that callers populate with Add.
func NewValidationError(entity EntityType) *ValidationError {
	return &ValidationError{Entity: entity, Fields: map[string][]string{}}
}

// Add records a message against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no violation has been recorded.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns e as an error when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Has reports whether field carries at least one violation.
func (e *ValidationError) Has(field string) bool {
	if e == nil {
		return false
	}
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// ReferenceReason classifies a failed asset-role check.
type ReferenceReason string

const (
	// ReasonAssetNotFound means the referenced asset does not exist.
	ReasonAssetNotFound ReferenceReason = "AssetNotFound"
	// ReasonKindMismatch means the asset exists with a different kind.
	ReasonKindMismatch ReferenceReason = "KindMismatch"
)

// ReferenceError reports a role-typed asset slot pointing at a missing or wrong-kind asset.
type ReferenceError struct {
	Field    string
	AssetID  string
	Expected AssetKind
	Actual   AssetKind
	Reason   ReferenceReason
}

func (e *ReferenceError) Error() string {
	if e.Reason == ReasonKindMismatch {
		return fmt.Sprintf("%s: asset %q has kind %s, expected %s", e.Field, e.AssetID, e.Actual, e.Expected)
	}
	return fmt.Sprintf("%s: asset %q not found", e.Field, e.AssetID)
}

// NotFoundError is returned when a lookup by identifier misses.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// SourceFormatError reports an unreadable or structurally malformed ingestion source.
type SourceFormatError struct {
	Source string
	Err    error
}

func (e *SourceFormatError) Error() string {
	return fmt.Sprintf("ingestion source %s: %v", e.Source, e.Err)
}

func (e *SourceFormatError) Unwrap() error { return e.Err }

// PersistenceError wraps a datastore round-trip failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
