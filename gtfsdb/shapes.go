package gtfsdb

import (
	"context"
	"database/sql"
)

// insertShapes inserts every shape point in one prepared statement
func insertShapes(ctx context.Context, tx *sql.Tx, shapes []Shape) error {
	return insertBatch(ctx, tx, "shape point", `
		INSERT OR REPLACE INTO shapes (
			shape_id, lat, lon, shape_pt_sequence
		) VALUES (?, ?, ?, ?);
	`, shapes, func(point Shape) []any {
		return []any{point.ID, point.Lat, point.Lon, point.Sequence}
	})
}

func createShapesTable(tx *sql.Tx) error {
	return createTable(tx, "shapes", `
		CREATE TABLE IF NOT EXISTS shapes (
			shape_id TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			shape_pt_sequence INTEGER NOT NULL,
			PRIMARY KEY (shape_id, shape_pt_sequence)
		);
	`)
}
