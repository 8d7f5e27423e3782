package queryir

import "github.com/roach88/ranked/internal/ir"

// Query represents one statement.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Assignment represents one column write in an Update.
type Assignment interface {
	assignmentNode()
}

// AggFunc is an aggregate function usable in a Select.
type AggFunc string

const (
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
	AggCount AggFunc = "COUNT"
)

// Aggregate selects a single aggregated value instead of rows.
// COUNT ignores Column and counts rows.
type Aggregate struct {
	Func   AggFunc
	Column string
}

// Order is one ORDER BY key.
type Order struct {
	Column string
	Desc   bool
}

// Select reads rows (or one aggregate) from a table.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns | agg> FROM <from> WHERE <filter>
//	ORDER BY <order_by>, id LIMIT <limit> OFFSET <offset>
//
// Row selects always end with the id tiebreaker so results are
// deterministic even when ranks collide. Aggregates are not ordered.
// Limit 0 means no limit.
type Select struct {
	From      string
	Columns   []string
	Aggregate *Aggregate
	Distinct  bool
	Filter    Predicate // nil = no filter
	OrderBy   []Order
	Limit     int
	Offset    int
}

func (Select) queryNode() {}

// Update writes assignments to every row matching Filter.
//
// Filter is required: the store never rewrites a whole table.
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) queryNode() {}

// Insert writes one row. Columns and Values are parallel.
type Insert struct {
	Table   string
	Columns []string
	Values  []ir.IRValue
}

func (Insert) queryNode() {}

// Delete removes every row matching Filter. Filter is required.
type Delete struct {
	Table  string
	Filter Predicate
}

func (Delete) queryNode() {}

// SetValue assigns a literal: <column> = ?
type SetValue struct {
	Column string
	Value  ir.IRValue
}

func (SetValue) assignmentNode() {}

// AddDelta assigns relative to the current value: <column> = <column> + ?
// A zero delta rewrites each row with its own value, which is how the
// store takes row locks on engines without SELECT ... FOR UPDATE.
type AddDelta struct {
	Column string
	Delta  int64
}

func (AddDelta) assignmentNode() {}

// Equals matches field = value. An ir.IRNull value matches NULL.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals matches field <> value. NULL values are not allowed.
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// CompareOp is an ordering operator.
type CompareOp string

const (
	Lt CompareOp = "<"
	Le CompareOp = "<="
	Gt CompareOp = ">"
	Ge CompareOp = ">="
)

// Compare matches field <op> value.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// Between matches From <= field <= To.
type Between struct {
	Field string
	From  ir.IRValue
	To    ir.IRValue
}

func (Between) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All builds an And from the non-nil predicates given.
func All(preds ...Predicate) Predicate {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return And{Predicates: out}
}
