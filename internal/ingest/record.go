package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"proceres/pkg/domain"
)

// SubjectRecord is one entry of the canonical dataset. Field names follow the
// dataset's JSON keys.
type SubjectRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"nombre"`
	FullName      string   `json:"nombre_completo,omitempty"`
	Alias         string   `json:"apodo,omitempty"`
	BirthDate     *string  `json:"fecha_nacimiento,omitempty"`
	DeathDate     *string  `json:"fecha_fallecimiento,omitempty"`
	BirthPlace    string   `json:"lugar_nacimiento,omitempty"`
	DeathPlace    string   `json:"lugar_fallecimiento,omitempty"`
	Roles         []string `json:"cargos,omitempty"`
	NotableEvents []string `json:"batallas_importantes,omitempty"`
	Achievements  []string `json:"logros,omitempty"`
	Quote         string   `json:"frase_celebre,omitempty"`
	ProfileImage  string   `json:"imagen_perfil,omitempty"`
	Model3DID     *string  `json:"modelo3D,omitempty"`
	ARMarkerID    *string  `json:"marcadorAR,omitempty"`
	Status        string   `json:"estado,omitempty"`

	decodeErr error
}

// UnmarshalJSON keeps a malformed record addressable by its id so the
// failure can be reported against it instead of rejecting the source.
func (r *SubjectRecord) UnmarshalJSON(data []byte) error {
	type plain SubjectRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		var idOnly struct {
			ID any `json:"id"`
		}
		_ = json.Unmarshal(data, &idOnly)
		if s, ok := idOnly.ID.(string); ok {
			r.ID = s
		}
		r.decodeErr = err
		return nil
	}
	*r = SubjectRecord(p)
	return nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

func parseDate(field string, raw *string, verr *domain.ValidationError) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	v := strings.TrimSpace(*raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	verr.Add(field, fmt.Sprintf("unparsable date %q", v))
	return nil
}

func parseStatus(raw string, verr *domain.ValidationError) domain.SubjectStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "activo", "active":
		return domain.StatusActive
	case "inactivo", "inactive":
		return domain.StatusInactive
	case "borrador", "draft":
		return domain.StatusDraft
	}
	verr.Add("status", fmt.Sprintf("unknown status %q", raw))
	return ""
}

// Normalize converts the record into a Subject attributed to actor. Bad
// dates, an unknown status or a missing id yield a *domain.ValidationError.
func (r SubjectRecord) Normalize(actor domain.UserRef) (domain.Subject, error) {
	if r.decodeErr != nil {
		return domain.Subject{}, fmt.Errorf("malformed record: %w", r.decodeErr)
	}
	verr := domain.NewValidationError(domain.EntitySubject)
	if strings.TrimSpace(r.ID) == "" {
		verr.Add("external_id", "is required")
	}
	s := domain.Subject{
		ExternalID:    strings.TrimSpace(r.ID),
		Name:          strings.TrimSpace(r.Name),
		FullName:      strings.TrimSpace(r.FullName),
		Alias:         strings.TrimSpace(r.Alias),
		BirthDate:     parseDate("birth_date", r.BirthDate, verr),
		DeathDate:     parseDate("death_date", r.DeathDate, verr),
		BirthPlace:    strings.TrimSpace(r.BirthPlace),
		DeathPlace:    strings.TrimSpace(r.DeathPlace),
		Roles:         trimAll(r.Roles),
		NotableEvents: trimAll(r.NotableEvents),
		Achievements:  trimAll(r.Achievements),
		Quote:         strings.TrimSpace(r.Quote),
		ProfileImage:  strings.TrimSpace(r.ProfileImage),
		Model3DID:     nonEmpty(r.Model3DID),
		ARMarkerID:    nonEmpty(r.ARMarkerID),
		Status:        parseStatus(r.Status, verr),
		CreatedBy:     actor.ID,
	}
	if err := verr.OrNil(); err != nil {
		return domain.Subject{}, err
	}
	return s, nil
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonEmpty(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
