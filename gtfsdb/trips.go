package gtfsdb

import (
	"context"
	"database/sql"
)

func insertTrips(ctx context.Context, tx *sql.Tx, trips []Trip) error {
	return insertBatch(ctx, tx, "trip", `
		INSERT OR REPLACE INTO trips (
			trip_id, route_id, service_id, shape_id
		) VALUES (?, ?, ?, ?);
	`, trips, func(trip Trip) []any {
		return []any{trip.ID, trip.RouteID, trip.ServiceID, toNullString(trip.ShapeID)}
	})
}

func createTripsTable(tx *sql.Tx) error {
	return createTable(tx, "trips", `
		CREATE TABLE IF NOT EXISTS trips (
			trip_id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			shape_id TEXT,
			FOREIGN KEY (route_id) REFERENCES routes(route_id),
			FOREIGN KEY (service_id) REFERENCES calendar(service_id)
		);
	`)
}
