// Package validation checks request fields against declarative rule tables.
//
// A rule table lists, in order, a field name and the go-playground/validator tag that field must satisfy.
// Check evaluates every rule and reports one message per failing field, so a single response can name all
// offending fields.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"librarian/internal/models"
)

// Rule binds a field to a validator tag, e.g. {Field: "title", Tag: "required,max=255"}.
type Rule struct {
	Field string
	Tag   string
}

// Rules is evaluated in order; the order is reflected in error messages.
type Rules []Rule

// FieldError names a field and what is wrong with it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error collects field errors. Its message is "field: message" pairs joined by ", ".
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, ", ")
}

// Add records a failure for field.
func (e *Error) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field already failed.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when nothing failed.
func (e *Error) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

var isbnChars = regexp.MustCompile(`^[0-9-]+$`)

// Validator evaluates rule tables. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom tags used by the rule tables:
// isbn_chars (digits and hyphens), ymd (real YYYY-MM-DD date) and integer (base-10 int).
func New() *Validator {
	v := validator.New()
	mustRegister(v, "isbn_chars", func(fl validator.FieldLevel) bool {
		return isbnChars.MatchString(fl.Field().String())
	})
	mustRegister(v, "ymd", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "integer", func(fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Check evaluates rules against values and appends failures to into.
// A field that already failed is skipped so each field is reported once.
func (v *Validator) Check(into *Error, rules Rules, values map[string]any) {
	for _, rule := range rules {
		if into.Has(rule.Field) {
			continue
		}
		value, ok := values[rule.Field]
		if !ok {
			continue
		}
		err := v.validate.Var(value, rule.Tag)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			into.Add(rule.Field, message(fieldErrs[0]))
			continue
		}
		into.Add(rule.Field, "is invalid")
	}
}

func message(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if isText {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if isText {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "isbn_chars":
		return "must contain only digits and hyphens"
	case "ymd":
		return "must be a valid date in YYYY-MM-DD format"
	case "integer":
		return "must be an integer"
	default:
		return "is invalid"
	}
}
