package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryAgencies retrieves a list of transit agencies from the database and returns them as a slice of Agency objects.
func (c *Client) QueryAgencies(ctx context.Context) ([]Agency, error) {
	rows, err := c.DB.QueryContext(
		ctx,
		`SELECT agency_id, agency_name, agency_url, agency_timezone, agency_lang
				FROM agencies ORDER BY agency_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var agencies []Agency
	for rows.Next() {
		var agency Agency
		err := rows.Scan(&agency.ID, &agency.Name, &agency.URL, &agency.Timezone, &agency.Language)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, agency)
	}

	return agencies, rows.Err()
}

// insertAgency adds a new agency to the database
func insertAgency(ctx context.Context, tx *sql.Tx, agency Agency) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO agencies (
			agency_id, agency_name, agency_url, agency_timezone, agency_lang
		) VALUES (?, ?, ?, ?, ?);
	`,
		agency.ID, agency.Name, agency.URL, agency.Timezone, agency.Language,
	)
	if err != nil {
		return fmt.Errorf("error inserting agency: %w", err)
	}
	return nil
}

func createAgenciesTable(tx *sql.Tx) error {
	return createTable(tx, "agencies", `
		CREATE TABLE IF NOT EXISTS agencies (
			agency_id TEXT PRIMARY KEY,
			agency_name TEXT NOT NULL,
			agency_url TEXT NOT NULL,
			agency_timezone TEXT NOT NULL,
			agency_lang TEXT
		);
	`)
}
