package gtfsdb

import (
	"context"
	"database/sql"
)

// insertStopTimes inserts multiple stop times using one prepared statement
func insertStopTimes(ctx context.Context, tx *sql.Tx, stopTimes []StopTime) error {
	return insertBatch(ctx, tx, "stop_time", `
		INSERT OR REPLACE INTO stop_times (
			trip_id, arrival_time, departure_time, stop_id, stop_sequence, timepoint
		) VALUES (?, ?, ?, ?, ?, ?);
	`, stopTimes, func(st StopTime) []any {
		return []any{st.TripID, st.ArrivalTime, st.DepartureTime, st.StopID, st.StopSequence, st.Timepoint}
	})
}

// QueryStopTimesForTrip returns the stop times of a trip in sequence order.
func (c *Client) QueryStopTimesForTrip(ctx context.Context, tripID string) ([]StopTime, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT trip_id, arrival_time, departure_time, stop_id, stop_sequence, timepoint
		FROM stop_times
		WHERE trip_id = ?
		ORDER BY stop_sequence`,
		tripID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		err := rows.Scan(&st.TripID, &st.ArrivalTime, &st.DepartureTime, &st.StopID, &st.StopSequence, &st.Timepoint)
		if err != nil {
			return nil, err
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

func createStopTimesTable(tx *sql.Tx) error {
	return createTable(tx, "stop_times", `
		CREATE TABLE IF NOT EXISTS stop_times (
			trip_id TEXT NOT NULL,
			arrival_time TEXT NOT NULL,
			departure_time TEXT NOT NULL,
			stop_id TEXT NOT NULL,
			stop_sequence INTEGER NOT NULL,
			timepoint INTEGER DEFAULT 1,
			PRIMARY KEY (trip_id, stop_sequence),
			FOREIGN KEY (trip_id) REFERENCES trips(trip_id)
		);
	`)
}
