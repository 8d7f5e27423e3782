// Package queryir provides the statement intermediate representation (IR)
// used by the SQL rank adapter.
//
// Every statement the store issues against a list table is built as a
// queryir value and compiled by querysql. Keeping the shape of the
// statements in one small algebra means the adapter never concatenates SQL
// by hand and every literal ends up as a bound parameter.
//
// STATEMENTS:
//
//	Select   columns or one aggregate, filtered, ordered, paginated
//	Update   assignments (absolute or relative) under a filter
//	Insert   one row
//	Delete   rows under a filter
//
// PREDICATES:
//
//	Equals     field = value, or field IS NULL for ir.IRNull
//	NotEquals  field <> value
//	Compare    field <, <=, >, >= value
//	Between    field BETWEEN from AND to (inclusive)
//	And        conjunction; empty means true
//
// SEALED INTERFACES:
//
// Query, Predicate and Assignment are sealed with marker methods so the
// compiler can switch over them exhaustively.
//
// NULL SCOPES:
//
// A scope component may be NULL. Equals against ir.IRNull compiles to
// IS NULL, so NULL scope values match each other and nothing else. This is
// deliberately different from SQL's three-valued "= NULL".
package queryir
