package compiler

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ranked/internal/ir"
)

// Defaults applied to fields a list definition leaves out.
const (
	DefaultMode = ir.ModeSparse
	DefaultMin  = int64(math.MinInt32)
	DefaultMax  = int64(math.MaxInt32)
)

// CompileList parses a CUE value into a ListSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the list struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`list: todos: { table: "todo_items" }`)
//	spec, err := CompileList(v.LookupPath(cue.ParsePath("list.todos")))
//
// The struct label is the list name. table defaults to the name, mode to
// sparse and the bounds to the 32-bit signed range.
func CompileList(v cue.Value) (*ir.ListSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ListSpec{
		Mode: DefaultMode,
		Min:  DefaultMin,
		Max:  DefaultMax,
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}
	spec.Table = spec.Name

	if table, ok, err := lookupString(v, "table"); err != nil {
		return nil, err
	} else if ok {
		spec.Table = table
	}

	if mode, ok, err := lookupString(v, "mode"); err != nil {
		return nil, err
	} else if ok {
		spec.Mode = mode
	}

	if lo, ok, err := lookupInt(v, "min"); err != nil {
		return nil, err
	} else if ok {
		spec.Min = lo
	}

	if hi, ok, err := lookupInt(v, "max"); err != nil {
		return nil, err
	} else if ok {
		spec.Max = hi
	}

	fields, err := parseScope(v)
	if err != nil {
		return nil, err
	}
	spec.Scope = fields

	return spec, nil
}

// CompileLists compiles every list.<name> definition in declaration order.
func CompileLists(root cue.Value) ([]ir.ListSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	listsVal := root.LookupPath(cue.ParsePath("list"))
	if !listsVal.Exists() {
		return nil, &CompileError{
			Field:   "list",
			Message: "no list definitions found",
			Pos:     root.Pos(),
		}
	}

	iter, err := listsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.ListSpec
	for iter.Next() {
		spec, err := CompileList(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// parseScope reads the optional scope field list.
func parseScope(v cue.Value) ([]ir.ScopeField, error) {
	scopeVal := v.LookupPath(cue.ParsePath("scope"))
	if !scopeVal.Exists() {
		return nil, nil
	}

	iter, err := scopeVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []ir.ScopeField
	for iter.Next() {
		elem := iter.Value()

		name, ok, err := lookupString(elem, "name")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{
				Field:   "scope.name",
				Message: "scope field name is required",
				Pos:     elem.Pos(),
			}
		}

		typ, ok, err := lookupString(elem, "type")
		if err != nil {
			return nil, err
		}
		if !ok {
			typ = string(ir.FieldString)
		}

		fields = append(fields, ir.ScopeField{Name: name, Type: ir.FieldType(typ)})
	}
	return fields, nil
}

// lookupString returns the concrete string at field, resolving defaults.
func lookupString(v cue.Value, field string) (string, bool, error) {
	val, ok := lookup(v, field)
	if !ok {
		return "", false, nil
	}
	s, err := val.String()
	if err != nil {
		return "", false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a string: %v", err),
			Pos:     val.Pos(),
		}
	}
	return s, true, nil
}

// lookupInt returns the concrete integer at field. Floats are rejected
// outright so a bound never silently truncates.
func lookupInt(v cue.Value, field string) (int64, bool, error) {
	val, ok := lookup(v, field)
	if !ok {
		return 0, false, nil
	}
	switch val.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, false, &CompileError{
			Field:   field,
			Message: "float types are forbidden - use int instead",
			Pos:     val.Pos(),
		}
	default:
		return 0, false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an int, got %v", val.IncompleteKind()),
			Pos:     val.Pos(),
		}
	}
	n, err := val.Int64()
	if err != nil {
		return 0, false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("not a concrete int64: %v", err),
			Pos:     val.Pos(),
		}
	}
	return n, true, nil
}

func lookup(v cue.Value, field string) (cue.Value, bool) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return val, false
	}
	if d, ok := val.Default(); ok {
		val = d
	}
	return val, true
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
