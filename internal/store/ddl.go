package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ranked/internal/ir"
)

// Fixed columns of every record table. Scope columns sit between id and rank.
const (
	colID      = "id"
	colRank    = "rank"
	colPayload = "payload"
)

// columnType maps a scope field type to its SQLite storage class.
func columnType(t ir.FieldType) string {
	switch t {
	case ir.FieldString:
		return "TEXT"
	default:
		return "INTEGER"
	}
}

// tableDDL returns the statements that create a list's record table and its
// (scope..., rank) index. Identifiers come from a validated ListSpec.
// Ranks are deliberately not UNIQUE: shifts move a range one row at a time
// and would trip a per-row uniqueness check halfway through.
func tableDDL(spec ir.ListSpec) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (\n", spec.Table)
	fmt.Fprintf(&b, "    %q TEXT PRIMARY KEY,\n", colID)
	for _, f := range spec.Scope {
		fmt.Fprintf(&b, "    %q %s,\n", f.Name, columnType(f.Type))
	}
	fmt.Fprintf(&b, "    %q INTEGER NOT NULL,\n", colRank)
	fmt.Fprintf(&b, "    %q TEXT NOT NULL DEFAULT ''\n", colPayload)
	b.WriteString(")")

	indexCols := make([]string, 0, len(spec.Scope)+1)
	for _, name := range spec.ScopeFieldNames() {
		indexCols = append(indexCols, fmt.Sprintf("%q", name))
	}
	indexCols = append(indexCols, fmt.Sprintf("%q", colRank))
	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %q ON %q (%s)",
		spec.Table+"_scope_rank", spec.Table, strings.Join(indexCols, ", "))

	return []string{b.String(), index}
}

// scopeSignature is the canonical JSON of the scope field declarations,
// stored in the registry to detect incompatible redefinitions.
func scopeSignature(spec ir.ListSpec) (string, error) {
	fields := make(ir.IRArray, len(spec.Scope))
	for i, f := range spec.Scope {
		fields[i] = ir.IRObject{"name": ir.IRString(f.Name), "type": ir.IRString(string(f.Type))}
	}
	b, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("scope signature: %w", err)
	}
	return string(b), nil
}

// registerList records spec in ranked_lists and creates its table. Opening
// an already registered list checks that nothing changed.
func registerList(ctx context.Context, tx *sql.Tx, spec ir.ListSpec) (created bool, err error) {
	signature, err := scopeSignature(spec)
	if err != nil {
		return false, err
	}

	var (
		table, mode, scope string
		minRank, maxRank   int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT table_name, mode, min_rank, max_rank, scope
		FROM ranked_lists
		WHERE name = ?
	`, spec.Name).Scan(&table, &mode, &minRank, &maxRank, &scope)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ranked_lists (name, table_name, mode, min_rank, max_rank, scope)
			VALUES (?, ?, ?, ?, ?, ?)
		`, spec.Name, spec.Table, spec.Mode, spec.Min, spec.Max, signature)
		if err != nil {
			return false, fmt.Errorf("register list %s: %w", spec.Name, err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("read list %s: %w", spec.Name, err)
	default:
		if diffs := definitionDiffs(spec, table, mode, minRank, maxRank, signature, scope); len(diffs) > 0 {
			return false, fmt.Errorf("list %s: %w: %s", spec.Name, ErrListMismatch, strings.Join(diffs, "; "))
		}
	}

	for _, stmt := range tableDDL(spec) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("create table %s: %w", spec.Table, err)
		}
	}
	return created, nil
}

// definitionDiffs describes each way spec differs from a registered
// definition, in "new != old" form.
func definitionDiffs(spec ir.ListSpec, table, mode string, minRank, maxRank int64, signature, scope string) []string {
	var diffs []string
	if table != spec.Table {
		diffs = append(diffs, fmt.Sprintf("table %s != %s", spec.Table, table))
	}
	if mode != spec.Mode {
		diffs = append(diffs, fmt.Sprintf("mode %s != %s", spec.Mode, mode))
	}
	if minRank != spec.Min || maxRank != spec.Max {
		diffs = append(diffs, fmt.Sprintf("bounds [%d, %d] != [%d, %d]", spec.Min, spec.Max, minRank, maxRank))
	}
	if scope != signature {
		diffs = append(diffs, fmt.Sprintf("scope %s != %s", signature, scope))
	}
	return diffs
}

// sameDefinition checks spec against the definition a cached handle was
// opened with.
func sameDefinition(spec, cached ir.ListSpec) error {
	signature, err := scopeSignature(spec)
	if err != nil {
		return err
	}
	scope, err := scopeSignature(cached)
	if err != nil {
		return err
	}
	diffs := definitionDiffs(spec, cached.Table, cached.Mode, cached.Min, cached.Max, signature, scope)
	if len(diffs) > 0 {
		return fmt.Errorf("list %s: %w: %s", spec.Name, ErrListMismatch, strings.Join(diffs, "; "))
	}
	return nil
}
