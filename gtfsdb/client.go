package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/logging"
	"github.com/starsep/gtfs-tczew/internal/report"
)

// Client is the main entry point for the library
type Client struct {
	config        Config
	DB            *sql.DB
	logger        *slog.Logger
	importRuntime time.Duration
}

// NewClient creates a new Client with the provided configuration
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	db, err := InitDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.verbose {
		logging.LogOperation(logger, "database_tables_created", slog.String("path", config.DBPath))
	}

	return &Client{
		config: config,
		DB:     db,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ImportRuntime is how long the last ImportFeed took.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// ImportFeed replaces the stored feed with data in a single transaction.
func (c *Client) ImportFeed(ctx context.Context, data *feed.Data, agency Agency) error {
	startTime := time.Now()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "import_feed")

	for _, table := range []string{"stop_times", "trips", "shapes", "calendar", "routes", "stops", "agencies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	if err := insertAgency(ctx, tx, agency); err != nil {
		return err
	}
	if err := insertRoutes(ctx, tx, routeRows(data, agency.ID)); err != nil {
		return err
	}
	if err := insertStops(ctx, tx, stopRows(data)); err != nil {
		return err
	}
	if err := insertCalendars(ctx, tx, calendarRows(data)); err != nil {
		return err
	}
	if err := insertTrips(ctx, tx, tripRows(data)); err != nil {
		return err
	}
	if err := insertShapes(ctx, tx, shapeRows(data)); err != nil {
		return err
	}
	if err := insertStopTimes(ctx, tx, stopTimeRows(data)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	c.importRuntime = time.Since(startTime)
	if c.config.verbose {
		logging.LogOperation(c.logger, "feed_imported",
			slog.String("path", c.config.DBPath),
			slog.Duration("duration", c.importRuntime))
	}
	return nil
}

// ImportIssues appends the diagnostics of a run.
func (c *Client) ImportIssues(ctx context.Context, issues []report.Issue) error {
	rows, err := issueRows(issues)
	if err != nil {
		return err
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "import_issues")

	if err := insertIssues(ctx, tx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
