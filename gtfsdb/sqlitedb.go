package gtfsdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starsep/gtfs-tczew/internal/appconf"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const memoryPath = ":memory:"

// ErrTestDatabaseOnDisk is returned when tests try to open a file database.
var ErrTestDatabaseOnDisk = errors.New("test database must use in-memory storage")

// InitDB creates a new SQLite database with the GTFS tables and the issues table
func InitDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != memoryPath {
		return nil, fmt.Errorf("%w: %s", ErrTestDatabaseOnDisk, config.DBPath)
	}

	// Open database connection
	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if config.DBPath == memoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	// Create tables within a transaction
	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	if err := createTables(tx); err != nil {
		tx.Rollback() // nolint:errcheck
		_ = db.Close()
		return nil, err
	}

	// Create indexes for better performance
	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_routes_agency_id ON routes(agency_id);
		CREATE INDEX IF NOT EXISTS idx_trips_route_id ON trips(route_id);
		CREATE INDEX IF NOT EXISTS idx_trips_service_id ON trips(service_id);
		CREATE INDEX IF NOT EXISTS idx_stop_times_trip_id ON stop_times(trip_id);
		CREATE INDEX IF NOT EXISTS idx_stop_times_stop_id ON stop_times(stop_id);
		CREATE INDEX IF NOT EXISTS idx_issues_kind ON issues(kind);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		_ = db.Close()
		return nil, fmt.Errorf("error creating indexes: %w", err)
	}

	// Commit transaction
	if err = tx.Commit(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return db, nil
}

func createTables(tx *sql.Tx) error {
	for _, create := range []func(*sql.Tx) error{
		createAgenciesTable,
		createRoutesTable,
		createStopsTable,
		createCalendarTable,
		createTripsTable,
		createShapesTable,
		createStopTimesTable,
		createIssuesTable,
	} {
		if err := create(tx); err != nil {
			return err
		}
	}
	return nil
}

// createTable creates a table in the database
func createTable(tx *sql.Tx, tableName string, createStmt string) error {
	_, err := tx.Exec(createStmt)
	if err != nil {
		return fmt.Errorf("error creating table %s: %w", tableName, err)
	}
	return nil
}
