package queryir

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/ranked/internal/ir"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be used as a table or column name.
// Identifiers are quoted when compiled, but are still restricted to plain
// ASCII words so that generated DDL and statements stay readable.
func IsIdentifier(s string) bool {
	return len(s) <= 63 && identPattern.MatchString(s)
}

// Validate checks a statement before compilation.
//
// Rules:
//  1. Table and column names are identifiers
//  2. Update and Delete carry a filter
//  3. Update has at least one assignment; Insert has parallel columns/values
//  4. Only Equals may compare against NULL
//  5. Arrays and objects are never bound as values
//
// Validate is a pure function; all problems are joined into one error.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !IsIdentifier(name) {
		v.addError("invalid %s name %q", kind, name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Update:
		v.validateUpdate(query)
	case *Update:
		v.validateUpdate(*query)
	case Insert:
		v.validateInsert(query)
	case *Insert:
		v.validateInsert(*query)
	case Delete:
		v.validateDelete(query)
	case *Delete:
		v.validateDelete(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.ident("table", sel.From)
	if sel.Aggregate != nil {
		if len(sel.Columns) > 0 {
			v.addError("select on %s mixes columns and an aggregate", sel.From)
		}
		switch sel.Aggregate.Func {
		case AggCount:
		case AggMin, AggMax:
			v.ident("column", sel.Aggregate.Column)
		default:
			v.addError("unknown aggregate %q", sel.Aggregate.Func)
		}
	} else if len(sel.Columns) == 0 {
		v.addError("select on %s names no columns", sel.From)
	}
	for _, c := range sel.Columns {
		v.ident("column", c)
	}
	for _, o := range sel.OrderBy {
		v.ident("column", o.Column)
	}
	if sel.Limit < 0 || sel.Offset < 0 {
		v.addError("negative limit or offset")
	}
	if sel.Offset > 0 && sel.Limit == 0 {
		v.addError("offset without limit")
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validateUpdate(up Update) {
	v.ident("table", up.Table)
	if len(up.Set) == 0 {
		v.addError("update of %s assigns nothing", up.Table)
	}
	for _, a := range up.Set {
		switch asg := a.(type) {
		case SetValue:
			v.ident("column", asg.Column)
			v.value(asg.Column, asg.Value, true)
		case *SetValue:
			v.ident("column", asg.Column)
			v.value(asg.Column, asg.Value, true)
		case AddDelta:
			v.ident("column", asg.Column)
		case *AddDelta:
			v.ident("column", asg.Column)
		default:
			v.addError("unknown assignment type: %T", a)
		}
	}
	if up.Filter == nil {
		v.addError("update of %s has no filter", up.Table)
	}
	v.validatePredicate(up.Filter)
}

func (v *validator) validateInsert(ins Insert) {
	v.ident("table", ins.Table)
	if len(ins.Columns) == 0 || len(ins.Columns) != len(ins.Values) {
		v.addError("insert into %s has %d columns and %d values", ins.Table, len(ins.Columns), len(ins.Values))
	}
	for i, c := range ins.Columns {
		v.ident("column", c)
		if i < len(ins.Values) {
			v.value(c, ins.Values[i], true)
		}
	}
}

func (v *validator) validateDelete(del Delete) {
	v.ident("table", del.Table)
	if del.Filter == nil {
		v.addError("delete from %s has no filter", del.Table)
	}
	v.validatePredicate(del.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.ident("column", pred.Field)
		v.value(pred.Field, pred.Value, true)
	case *Equals:
		v.validatePredicate(*pred)
	case NotEquals:
		v.ident("column", pred.Field)
		v.value(pred.Field, pred.Value, false)
	case *NotEquals:
		v.validatePredicate(*pred)
	case Compare:
		v.ident("column", pred.Field)
		switch pred.Op {
		case Lt, Le, Gt, Ge:
		default:
			v.addError("unknown comparison %q on %s", pred.Op, pred.Field)
		}
		v.value(pred.Field, pred.Value, false)
	case *Compare:
		v.validatePredicate(*pred)
	case Between:
		v.ident("column", pred.Field)
		v.value(pred.Field, pred.From, false)
		v.value(pred.Field, pred.To, false)
	case *Between:
		v.validatePredicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		v.validatePredicate(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) value(field string, val ir.IRValue, allowNull bool) {
	switch val.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool:
	case nil, ir.IRNull:
		if !allowNull {
			v.addError("field %s compared to NULL", field)
		}
	default:
		v.addError("field %s bound to unsupported value %T", field, val)
	}
}
