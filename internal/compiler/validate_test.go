package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ranked/internal/ir"
)

func validSpec() ir.ListSpec {
	return ir.ListSpec{
		Name:  "todos",
		Table: "todo_items",
		Scope: []ir.ScopeField{
			{Name: "board", Type: ir.FieldString},
			{Name: "done", Type: ir.FieldBool},
		},
		Mode: ir.ModeSparse,
		Min:  DefaultMin,
		Max:  DefaultMax,
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateListSpec(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ir.ListSpec)
		wantCode  string
		wantField string
	}{
		{
			name:      "invalid table identifier",
			mutate:    func(s *ir.ListSpec) { s.Table = "todo-items" },
			wantCode:  ErrInvalidIdentifier,
			wantField: "table",
		},
		{
			name:      "missing name",
			mutate:    func(s *ir.ListSpec) { s.Name = "" },
			wantCode:  ErrMissingField,
			wantField: "name",
		},
		{
			name:      "reserved scope column",
			mutate:    func(s *ir.ListSpec) { s.Scope[0].Name = "rank" },
			wantCode:  ErrReservedName,
			wantField: "scope[0].name",
		},
		{
			name:      "reserved table",
			mutate:    func(s *ir.ListSpec) { s.Table = "ranked_lists" },
			wantCode:  ErrReservedName,
			wantField: "table",
		},
		{
			name:      "float scope type",
			mutate:    func(s *ir.ListSpec) { s.Scope[1].Type = "float" },
			wantCode:  ErrInvalidFieldType,
			wantField: "scope[1].type",
		},
		{
			name:      "duplicate scope field",
			mutate:    func(s *ir.ListSpec) { s.Scope[1].Name = "board" },
			wantCode:  ErrDuplicateName,
			wantField: "scope",
		},
		{
			name:      "unknown mode",
			mutate:    func(s *ir.ListSpec) { s.Mode = "linked" },
			wantCode:  ErrInvalidMode,
			wantField: "mode",
		},
		{
			name:      "bounds too tight",
			mutate:    func(s *ir.ListSpec) { s.Min, s.Max = 0, 1 },
			wantCode:  ErrInvalidBounds,
			wantField: "bounds",
		},
		{
			name:      "dense without zero",
			mutate:    func(s *ir.ListSpec) { s.Mode, s.Min, s.Max = ir.ModeDense, 10, 100 },
			wantCode:  ErrInvalidBounds,
			wantField: "bounds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)

			errs := Validate(&spec)
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.wantCode, errs[0].Code)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestValidateValidSpec(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))

	unscoped := ir.ListSpec{Name: "queue", Table: "queue", Mode: ir.ModeDense, Min: 0, Max: 100}
	assert.Empty(t, Validate(&unscoped))
}

func TestValidateBoundsMessage(t *testing.T) {
	spec := validSpec()
	spec.Min, spec.Max = 5, 6

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, "[E106] bounds: max - min must be at least 2", errs[0].Error())
}

func TestValidateCollectsAll(t *testing.T) {
	spec := validSpec()
	spec.Table = "bad table"
	spec.Mode = "linked"
	spec.Scope[0].Name = "id"

	errs := Validate(spec)
	assert.ElementsMatch(t, []string{ErrInvalidIdentifier, ErrInvalidMode, ErrReservedName}, codes(errs))
}

func TestValidateListSet(t *testing.T) {
	a := validSpec()
	b := validSpec()
	b.Name = "archive"

	errs := Validate([]ir.ListSpec{a, b})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateName, errs[0].Code)
	assert.Equal(t, "list.archive.table", errs[0].Field)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "table", Message: "bad", Code: ErrInvalidIdentifier, Line: 3}
	assert.Equal(t, "[E101] line 3: table: bad", err.Error())
}
