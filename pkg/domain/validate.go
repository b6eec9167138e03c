package domain

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

var (
	profileImageExts = []string{".jpg", ".jpeg", ".png", ".webp"}
	markerImageExts  = []string{".jpg", ".jpeg", ".png", ".gif", ".patt"}
)

// ValidateUser checks account fields.
func ValidateUser(u User) error {
	verr := NewValidationError(EntityUser)
	collectTagErrors(verr, u)
	return verr.OrNil()
}

// ValidateAsset checks asset field bounds and enumerations.
func ValidateAsset(a Asset) error {
	verr := NewValidationError(EntityAsset)
	collectTagErrors(verr, a)
	return verr.OrNil()
}

// ValidateSubject checks subject field bounds and date ordering. now is the
// reference instant for the future-birth check.
func ValidateSubject(s Subject, now time.Time) error {
	verr := NewValidationError(EntitySubject)
	collectTagErrors(verr, s)
	if s.BirthDate != nil && s.BirthDate.After(now) {
		verr.Add("birth_date", "must not be in the future")
	}
	if s.BirthDate != nil && s.DeathDate != nil && !s.DeathDate.After(*s.BirthDate) {
		verr.Add("death_date", "must be after birth_date")
	}
	if s.ProfileImage != "" && !hasExt(s.ProfileImage, profileImageExts) {
		verr.Add("profile_image", "must be a jpg, jpeg, png or webp file")
	}
	if s.Version < 0 {
		verr.Add("version", "must not be negative")
	}
	return verr.OrNil()
}

// ValidateScene checks scene field bounds, marker image and placements.
func ValidateScene(s Scene) error {
	verr := NewValidationError(EntityScene)
	collectTagErrors(verr, s)
	if s.MarkerImage != "" && !hasExt(s.MarkerImage, markerImageExts) {
		verr.Add("marker_image", "must be a jpg, jpeg, png, gif or patt file")
	}
	return verr.OrNil()
}

func hasExt(name string, allowed []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func collectTagErrors(verr *ValidationError, record any) {
	err := fieldValidator().Struct(record)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), tagMessage(fe))
	}
}

// fieldPath strips the root struct name from the validator namespace, so
// "Scene.placements[0].asset_id" becomes "placements[0].asset_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uri":
		return "must be a valid URI"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
