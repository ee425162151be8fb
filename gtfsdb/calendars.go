package gtfsdb

import (
	"context"
	"database/sql"
)

func insertCalendars(ctx context.Context, tx *sql.Tx, calendars []Calendar) error {
	return insertBatch(ctx, tx, "calendar", `
		INSERT OR REPLACE INTO calendar (
			service_id, monday, tuesday, wednesday, thursday, friday,
			saturday, sunday, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, calendars, func(c Calendar) []any {
		return []any{
			c.ServiceID, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday,
			c.Saturday, c.Sunday, c.StartDate, c.EndDate,
		}
	})
}

func createCalendarTable(tx *sql.Tx) error {
	return createTable(tx, "calendar", `
		CREATE TABLE IF NOT EXISTS calendar (
			service_id TEXT PRIMARY KEY,
			monday INTEGER NOT NULL,
			tuesday INTEGER NOT NULL,
			wednesday INTEGER NOT NULL,
			thursday INTEGER NOT NULL,
			friday INTEGER NOT NULL,
			saturday INTEGER NOT NULL,
			sunday INTEGER NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL
		);
	`)
}
