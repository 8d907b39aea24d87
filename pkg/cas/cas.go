// Package cas implements a generic compare-and-set primitive over a bun
// table: conditionally update a row's attributes only if a predicate holds
// on the row as currently stored, reporting whether the write applied.
//
// It is the single abstraction progress.Coordinator and schedulertick.Tick
// use in place of DynamoDB's ConditionExpression/ConditionalCheckFailedException
// pairing: one SQL UPDATE ... WHERE <predicate>, and a bool taken from its
// affected-row count.
package cas

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

// Update describes a single conditional write. Column and table names are
// never attacker-controlled (they come from Go call sites, not request
// bodies), so they are interpolated directly rather than bound as
// parameters, matching the raw-SQL maintenance queries used elsewhere in
// this codebase.
type Update struct {
	// Table is the fully qualified table name, e.g. "rag.progress".
	Table string
	// PKColumn and PKValue identify the row. For a composite key, put the
	// remaining columns in AndEquals instead of widening this struct's
	// single-column shape.
	PKColumn string
	PKValue  any
	// AndEquals holds additional column = value equality conditions
	// ANDed into the WHERE clause, e.g. a second key column for a table
	// with a composite primary key.
	AndEquals map[string]any
	// Set holds column -> new value pairs applied when the predicate holds.
	Set map[string]any
	// Predicate is a SQL boolean expression evaluated against the row's
	// current values, using bun placeholders ("?") bound to PredicateArgs.
	// An empty predicate means "always apply" (unconditional write).
	Predicate     string
	PredicateArgs []any
}

// Apply executes the conditional update and reports whether it took effect.
// A predicate that matches zero rows (because another writer already won
// the race, or the row doesn't exist) is not an error: applied is false.
func Apply(ctx context.Context, db bun.IDB, u Update) (applied bool, err error) {
	if len(u.Set) == 0 {
		return false, fmt.Errorf("cas: empty Set for table %s", u.Table)
	}

	cols := make([]string, 0, len(u.Set))
	for col := range u.Set {
		cols = append(cols, col)
	}
	sort.Strings(cols) // deterministic query text, easier to read in logs

	args := make([]any, 0, len(u.Set)+1+len(u.PredicateArgs))
	setClauses := make([]string, 0, len(cols))
	for _, col := range cols {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", col))
		args = append(args, u.Set[col])
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", u.Table, strings.Join(setClauses, ", "), u.PKColumn)
	args = append(args, u.PKValue)

	if len(u.AndEquals) > 0 {
		eqCols := make([]string, 0, len(u.AndEquals))
		for col := range u.AndEquals {
			eqCols = append(eqCols, col)
		}
		sort.Strings(eqCols)
		for _, col := range eqCols {
			query += fmt.Sprintf(" AND %s = ?", col)
			args = append(args, u.AndEquals[col])
		}
	}

	if u.Predicate != "" {
		query += " AND (" + u.Predicate + ")"
		args = append(args, u.PredicateArgs...)
	}

	res, err := db.NewRaw(query, args...).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("cas: apply %s: %w", u.Table, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cas: rows affected %s: %w", u.Table, err)
	}

	return rows > 0, nil
}

// ErrNoRow aliases sql.ErrNoRows. cas.Apply does not return it, since "row
// missing" and "predicate failed on an existing row" are indistinguishable
// from an UPDATE alone.
var ErrNoRow = sql.ErrNoRows
