package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the snapshot sections persisted by the SQL stores, one row each.
var Buckets = []string{"users", "assets", "subjects", "scenes", "sequence"}

func (s *Snapshot) bucketTarget(bucket string) (any, bool) {
	switch bucket {
	case "users":
		return &s.Users, true
	case "assets":
		return &s.Assets, true
	case "subjects":
		return &s.Subjects, true
	case "scenes":
		return &s.Scenes, true
	case "sequence":
		return &s.Seq, true
	}
	return nil, false
}

// EncodeBucket marshals one snapshot section.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.bucketTarget(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket unmarshals payload into the matching snapshot section.
// Unknown buckets are ignored so older databases keep loading.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	target, ok := s.bucketTarget(bucket)
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
