package gtfsdb

import (
	"context"
	"database/sql"
)

func insertRoutes(ctx context.Context, tx *sql.Tx, routes []Route) error {
	return insertBatch(ctx, tx, "route", `
		INSERT OR REPLACE INTO routes (
			route_id, agency_id, route_short_name, route_long_name, route_type
		) VALUES (?, ?, ?, ?, ?);
	`, routes, func(route Route) []any {
		return []any{route.ID, route.AgencyID, route.ShortName, route.LongName, route.Type}
	})
}

func createRoutesTable(tx *sql.Tx) error {
	return createTable(tx, "routes", `
		CREATE TABLE IF NOT EXISTS routes (
			route_id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			route_short_name TEXT,
			route_long_name TEXT,
			route_type INTEGER NOT NULL,
			FOREIGN KEY (agency_id) REFERENCES agencies(agency_id)
		);
	`)
}
