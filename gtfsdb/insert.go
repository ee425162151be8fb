package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// insertBatch prepares query once inside tx and executes it for every row.
func insertBatch[T any](ctx context.Context, tx *sql.Tx, entity, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("error preparing %s statement: %w", entity, err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return fmt.Errorf("error inserting %s: %w", entity, err)
		}
	}
	return nil
}
