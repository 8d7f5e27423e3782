package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/queryir"
)

// TiebreakColumn is appended to every row select's ORDER BY.
const TiebreakColumn = "id"

// SQLCompiler compiles queryir statements to parameterized SQL for SQLite.
//
// CRITICAL: row selects always end with ORDER BY ..., id for deterministic
// results. All values are parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile validates and converts a statement to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Update:
		return c.compileUpdate(*query)
	case queryir.Insert:
		return c.compileInsert(query)
	case *queryir.Insert:
		return c.compileInsert(*query)
	case queryir.Delete:
		return c.compileDelete(query)
	case *queryir.Delete:
		return c.compileDelete(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// MustCompile is Compile for statements built from validated list specs.
// It panics on error.
func (c *SQLCompiler) MustCompile(q queryir.Query) (string, []any) {
	sql, params, err := c.Compile(q)
	if err != nil {
		panic(fmt.Sprintf("querysql: %v", err))
	}
	return sql, params
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}

	if q.Aggregate != nil {
		switch q.Aggregate.Func {
		case queryir.AggCount:
			b.WriteString("COUNT(*)")
		default:
			fmt.Fprintf(&b, "%s(%s)", q.Aggregate.Func, quote(q.Aggregate.Column))
		}
	} else {
		b.WriteString(quoteAll(q.Columns))
	}
	b.WriteString(" FROM ")
	b.WriteString(quote(q.From))

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	if q.Aggregate == nil {
		b.WriteString(" ORDER BY ")
		b.WriteString(c.stableOrderKey(q))
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
		if q.Offset > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, q.Offset)
		}
	}
	return b.String(), params, nil
}

// stableOrderKey returns the ORDER BY list for a row select: the requested
// keys followed by the id tiebreaker. A DISTINCT select without the id
// column cannot order by it and uses its own columns instead.
// Uses COLLATE BINARY for deterministic text ordering.
func (c *SQLCompiler) stableOrderKey(q queryir.Select) string {
	parts := make([]string, 0, len(q.OrderBy)+1)
	seen := make(map[string]bool)
	for _, o := range q.OrderBy {
		parts = append(parts, orderTerm(o.Column, o.Desc))
		seen[o.Column] = true
	}

	if q.Distinct && !contains(q.Columns, TiebreakColumn) {
		for _, col := range q.Columns {
			if !seen[col] {
				parts = append(parts, orderTerm(col, false))
			}
		}
		return strings.Join(parts, ", ")
	}

	if !seen[TiebreakColumn] {
		parts = append(parts, orderTerm(TiebreakColumn, false))
	}
	return strings.Join(parts, ", ")
}

func orderTerm(col string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", quote(col), dir)
}

func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	sets := make([]string, 0, len(q.Set))
	var params []any
	for _, a := range q.Set {
		switch asg := a.(type) {
		case queryir.SetValue:
			sets = append(sets, quote(asg.Column)+" = ?")
			params = append(params, irValueToParam(asg.Value))
		case *queryir.SetValue:
			sets = append(sets, quote(asg.Column)+" = ?")
			params = append(params, irValueToParam(asg.Value))
		case queryir.AddDelta:
			sets = append(sets, fmt.Sprintf("%s = %s + ?", quote(asg.Column), quote(asg.Column)))
			params = append(params, asg.Delta)
		case *queryir.AddDelta:
			sets = append(sets, fmt.Sprintf("%s = %s + ?", quote(asg.Column), quote(asg.Column)))
			params = append(params, asg.Delta)
		default:
			return "", nil, fmt.Errorf("unsupported assignment type: %T", a)
		}
	}

	where, whereParams, err := c.compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	params = append(params, whereParams...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(q.Table), strings.Join(sets, ", "), where)
	return sql, params, nil
}

func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	marks := make([]string, len(q.Columns))
	params := make([]any, len(q.Values))
	for i := range q.Columns {
		marks[i] = "?"
		params[i] = irValueToParam(q.Values[i])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(q.Table),
		quoteAll(q.Columns),
		strings.Join(marks, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	where, params, err := c.compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", quote(q.Table), where), params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		if isNull(pred.Value) {
			return quote(pred.Field) + " IS NULL", nil, nil
		}
		return quote(pred.Field) + " = ?", []any{irValueToParam(pred.Value)}, nil
	case *queryir.Equals:
		return c.compilePredicate(*pred)
	case queryir.NotEquals:
		return quote(pred.Field) + " <> ?", []any{irValueToParam(pred.Value)}, nil
	case *queryir.NotEquals:
		return c.compilePredicate(*pred)
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", quote(pred.Field), pred.Op), []any{irValueToParam(pred.Value)}, nil
	case *queryir.Compare:
		return c.compilePredicate(*pred)
	case queryir.Between:
		return quote(pred.Field) + " BETWEEN ? AND ?",
			[]any{irValueToParam(pred.From), irValueToParam(pred.To)}, nil
	case *queryir.Between:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested && len(and.Predicates) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// quote renders an identifier as a double-quoted SQL name. Names are
// validated identifiers, so no escaping is needed.
func quote(name string) string {
	return `"` + name + `"`
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}

// irValueToParam converts a validated scalar ir.IRValue to a driver value.
// Booleans are stored as 0/1 integers.
func irValueToParam(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return nil
	}
}
