// Package forms is the shared declarative validation layer: every mutation
// is gated through a schema check here before any store call is issued.
package forms

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studysync/studysync/internal/models"
)

// ValidationError carries field-scoped messages. It never reaches the
// network layer as a write; handlers render it as a 400 with per-field text.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation returns the ValidationError when err is one.
func AsValidation(err error) (*ValidationError, bool) {
	ve, ok := err.(*ValidationError)
	return ve, ok
}

// NewValidator returns a validator with the domain's custom rules
// registered. Each domain package holds its own instance and may add
// struct-level rules on top.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report errors under the wire name, not the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return models.IsSubject(fl.Field().String())
	})
	return v
}

// Check runs the schema and converts validator errors into field-scoped
// messages keyed by the struct's json-ish field names.
func Check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe.Field())] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "subject":
		return "is not a recognized subject"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "resourceurl":
		return "does not match the selected resource type"
	default:
		return "is invalid"
	}
}
