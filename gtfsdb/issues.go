package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starsep/gtfs-tczew/internal/logging"
)

func insertIssues(ctx context.Context, tx *sql.Tx, issues []Issue) error {
	return insertBatch(ctx, tx, "issue", `
		INSERT INTO issues (kind, level, message, attrs) VALUES (?, ?, ?, ?);
	`, issues, func(issue Issue) []any {
		return []any{issue.Kind, issue.Level, issue.Message, issue.Attrs}
	})
}

// QueryIssueCounts returns the number of stored issues per kind.
func (c *Client) QueryIssueCounts(ctx context.Context) (counts map[string]int, err error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT kind, COUNT(*) FROM issues GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("error counting issues: %w", err)
	}
	defer logging.HandleDeferredError(&err, rows.Close, c.logger, "close_issue_counts")

	counts = make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func createIssuesTable(tx *sql.Tx) error {
	return createTable(tx, "issues", `
		CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			attrs TEXT
		);
	`)
}
