package gtfsdb

import (
	"context"
	"database/sql"
)

// InsertStops add new stops to the database
func insertStops(ctx context.Context, tx *sql.Tx, stops []Stop) error {
	return insertBatch(ctx, tx, "stop", `
		INSERT OR REPLACE INTO stops (
			stop_id, stop_name, stop_lat, stop_lon
		) VALUES (?, ?, ?, ?);
	`, stops, func(stop Stop) []any {
		return []any{stop.ID, stop.Name, stop.Lat, stop.Lon}
	})
}

// QueryStopsInBounds returns the stops inside a lat/lon bounding box ordered by id.
func (c *Client) QueryStopsInBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]Stop, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE stop_lat BETWEEN ? AND ? AND stop_lon BETWEEN ? AND ?
		ORDER BY stop_id`,
		minLat, maxLat, minLon, maxLon,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var stops []Stop
	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Lat, &stop.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

func createStopsTable(tx *sql.Tx) error {
	if err := createTable(tx, "stops", `
		CREATE TABLE IF NOT EXISTS stops (
			stop_id TEXT PRIMARY KEY,
			stop_name TEXT NOT NULL,
			stop_lat REAL NOT NULL,
			stop_lon REAL NOT NULL
		);`,
	); err != nil {
		return err
	}

	return createTable(tx, "idx_stops_lat_lon", `
		CREATE INDEX IF NOT EXISTS idx_stops_lat_lon ON stops(stop_lat, stop_lon);`,
	)
}
