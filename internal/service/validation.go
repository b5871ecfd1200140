package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/article-api/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire name ("phone_number"), not the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors collects every failing field before returning, so a client
// sees all its mistakes in one response.
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e fieldErrors) has(field string) bool {
	return len(e[field]) > 0
}

func (e fieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.ValidationFields(e)
}

// checkStruct runs the `validate:` tags on v.
func (e fieldErrors) checkStruct(v any) error {
	return e.collect("", validate.Struct(v))
}

// checkVar validates a single value against tag and files the result
// under field. Used for partial updates where only some fields are present.
func (e fieldErrors) checkVar(field string, value any, tag string) error {
	return e.collect(field, validate.Var(value, tag))
}

func (e fieldErrors) collect(field string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("service: validating input: %w", err)
	}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		e.add(name, fieldMessage(name, fe))
	}
	return nil
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
