package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Schema validates aggregate payloads and update patches against their
// declarative `validate` struct tags. Field names in violations are the json names.
type Schema struct {
	aggregateType string
	validate      *validator.Validate
}

// NewSchema creates a schema validator for the given aggregate type
func NewSchema(aggregateType string) *Schema {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// decimal amounts validate as numbers so gte/lte/gt apply
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// uuids validate as strings; the nil uuid counts as empty
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok {
			if id == uuid.Nil {
				return ""
			}
			return id.String()
		}
		return nil
	}, uuid.UUID{})

	return &Schema{aggregateType: aggregateType, validate: v}
}

// Validate checks every constraint on v (full mode for payloads, or a patch of
// pointer fields tagged omitempty for update mode) and aggregates all violations.
func (s *Schema) Validate(v interface{}) error {
	return s.translate(s.validate.Struct(v))
}

// ValidateFields checks only the named top-level fields of v (partial mode).
// Field names are Go struct field names.
func (s *Schema) ValidateFields(v interface{}, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.translate(s.validate.StructPartial(v, fields...))
}

// Violation builds a single-violation ValidationError for checks done outside struct tags
func (s *Schema) Violation(field, rule, message string) *ValidationError {
	return &ValidationError{
		AggregateType: s.aggregateType,
		Violations:    []FieldViolation{{Field: field, Rule: rule, Message: message}},
	}
}

func (s *Schema) translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{AggregateType: s.aggregateType}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, FieldViolation{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: violationMessage(fe),
		})
	}
	return out
}

// fieldPath strips the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func violationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	case "url", "http_url":
		return "Invalid URL format"
	case "iso4217":
		return "Must be a 3-letter ISO 4217 currency code"
	case "iso3166_1_alpha2":
		return "Must be a 2-letter ISO 3166 country code"
	case "datetime":
		return "Must be a date in format " + e.Param()
	case "alphanum":
		return "Must be alphanumeric"
	case "unique":
		return "Must not contain duplicates"
	default:
		return "Invalid value"
	}
}
