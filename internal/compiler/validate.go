package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/queryir"
	"github.com/roach88/ranked/internal/rank"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ListSpec errors (E101-E109)
	ErrInvalidIdentifier = "E101" // name/table/scope field is not a plain SQL identifier
	ErrReservedName      = "E102" // scope field or table collides with a reserved name
	ErrInvalidFieldType  = "E103" // scope field type is not string/int/bool
	ErrDuplicateName     = "E104" // duplicate scope field, list name or table
	ErrInvalidMode       = "E105" // mode is not sparse/dense
	ErrInvalidBounds     = "E106" // min/max violate the rank config rules
	ErrMissingField      = "E107" // required field is empty
)

// reservedTables cannot hold list records.
var reservedTables = map[string]bool{
	"ranked_lists": true,
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// specValidate checks ListSpec struct tags. Field names in errors use the
// json tags so they match the CUE source.
var specValidate = newSpecValidator()

func newSpecValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return queryir.IsIdentifier(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports ListSpec and []ListSpec.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ListSpec:
		return validateListSpec(spec, "")
	case ir.ListSpec:
		return validateListSpec(&spec, "")
	case []ir.ListSpec:
		return validateListSet(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateListSet validates each list and checks names and tables are
// unique across the set.
func validateListSet(specs []ir.ListSpec) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)
	tables := make(map[string]bool)

	for i := range specs {
		spec := &specs[i]
		prefix := fmt.Sprintf("list.%s.", spec.Name)
		errs = append(errs, validateListSpec(spec, prefix)...)

		if names[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + "name",
				Message: fmt.Sprintf("duplicate list name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[spec.Name] = true

		if tables[spec.Table] {
			errs = append(errs, ValidationError{
				Field:   prefix + "table",
				Message: fmt.Sprintf("table %q is used by more than one list", spec.Table),
				Code:    ErrDuplicateName,
			})
		}
		tables[spec.Table] = true
	}
	return errs
}

// validateListSpec validates one list definition.
func validateListSpec(spec *ir.ListSpec, prefix string) []ValidationError {
	var errs []ValidationError

	if err := specValidate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []ValidationError{{Field: prefix + "list", Message: err.Error(), Code: ErrUnsupportedIRType}}
		}
		for _, fe := range verrs {
			errs = append(errs, describeFieldError(fe, prefix))
		}
	}

	if reservedTables[strings.ToLower(spec.Table)] || strings.HasPrefix(strings.ToLower(spec.Table), "sqlite_") {
		errs = append(errs, ValidationError{
			Field:   prefix + "table",
			Message: fmt.Sprintf("table name %q is reserved", spec.Table),
			Code:    ErrReservedName,
		})
	}

	// Bounds are only meaningful once the mode is known.
	if spec.Mode == ir.ModeSparse || spec.Mode == ir.ModeDense {
		if err := rank.ConfigFromSpec(*spec).Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   prefix + "bounds",
				Message: strings.TrimPrefix(err.Error(), "invalid rank config: "),
				Code:    ErrInvalidBounds,
			})
		}
	}

	return errs
}

// describeFieldError maps a validator failure to a coded ValidationError.
func describeFieldError(fe validator.FieldError, prefix string) ValidationError {
	field := prefix + strings.TrimPrefix(fe.Namespace(), "ListSpec.")

	switch fe.Tag() {
	case "required":
		return ValidationError{Field: field, Message: "is required", Code: ErrMissingField}
	case "sqlident":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is not a valid identifier (letters, digits, underscore; max 63)", fe.Value()),
			Code:    ErrInvalidIdentifier,
		}
	case "ne":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is a reserved column name", fe.Value()),
			Code:    ErrReservedName,
		}
	case "unique":
		return ValidationError{Field: field, Message: "scope field names must be unique", Code: ErrDuplicateName}
	case "oneof":
		if fe.Field() == "mode" {
			return ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid mode %q, must be %q or %q", fe.Value(), ir.ModeSparse, ir.ModeDense),
				Code:    ErrInvalidMode,
			}
		}
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid type %q, must be one of %s", fe.Value(), fe.Param()),
			Code:    ErrInvalidFieldType,
		}
	default:
		return ValidationError{Field: field, Message: fmt.Sprintf("failed %s", fe.Tag()), Code: ErrUnsupportedIRType}
	}
}
