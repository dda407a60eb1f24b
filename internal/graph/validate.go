package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

var validate = validator.New()

// ValidatePerson checks a person record on its own: required fields, a known
// status, and a confirmation time present exactly when the person is sick.
func ValidatePerson(p models.Person) error {
	if err := validateStruct(p); err != nil {
		return fmt.Errorf("person %q: %w", p.Name, err)
	}
	switch {
	case p.IsSick() && p.ConfirmedTime == nil:
		return apperr.InconsistentState("person %q is Sick but has no confirmed time", p.Name)
	case !p.IsSick() && p.ConfirmedTime != nil:
		return apperr.InconsistentState("person %q is %s but has a confirmed time", p.Name, p.HealthStatus)
	}
	return nil
}

// ValidatePlace checks a place record on its own.
func ValidatePlace(p models.Place) error {
	if err := validateStruct(p); err != nil {
		return fmt.Errorf("place %q: %w", p.Name, err)
	}
	return nil
}

// ValidateVisit checks a visit record on its own. Endpoint existence is
// checked by Build, which sees the whole graph.
func ValidateVisit(v models.Visit) error {
	if err := validateStruct(v); err != nil {
		return fmt.Errorf("visit %s->%s: %w", v.Person, v.Place, err)
	}
	if v.StartTime.IsZero() || v.EndTime.IsZero() {
		return apperr.Validation("visit %s->%s: start_time and end_time are required", v.Person, v.Place)
	}
	if v.StartTime.After(v.EndTime) {
		return apperr.InvalidInterval("visit %s->%s ends (%s) before it starts (%s)",
			v.Person, v.Place, v.EndTime.Format("2006-01-02T15:04:05Z07:00"), v.StartTime.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
