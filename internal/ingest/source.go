package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"proceres/pkg/domain"
)

// Dataset keys holding the record list. The second is the dataset's legacy name.
const (
	SubjectsKey       = "subjects"
	LegacySubjectsKey = "proceres"
)

// LoadSource reads the dataset file at path.
func LoadSource(path string) ([]SubjectRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.SourceFormatError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return ParseSource(path, f)
}

// ParseSource decodes a dataset document. The document must be an object
// whose subjects key holds a list. A record that cannot be decoded is kept
// and fails individually during ingestion.
func ParseSource(name string, r io.Reader) ([]SubjectRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.SourceFormatError{Source: name, Err: err}
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &domain.SourceFormatError{Source: name, Err: fmt.Errorf("document is not a JSON object: %w", err)}
	}
	raw, ok := doc[SubjectsKey]
	if !ok {
		raw, ok = doc[LegacySubjectsKey]
	}
	if !ok {
		return nil, &domain.SourceFormatError{Source: name, Err: fmt.Errorf("missing %q list", SubjectsKey)}
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &domain.SourceFormatError{Source: name, Err: errors.New(SubjectsKey + " is not a list")}
	}
	var records []SubjectRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &domain.SourceFormatError{Source: name, Err: err}
	}
	return records, nil
}
