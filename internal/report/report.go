// Package report collects the diagnostics produced while extracting and
// merging the two sources. Diagnostics never change control flow; they are
// fanned out to sinks and logged.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Kind classifies an issue.
type Kind string

const (
	MissingRequiredTag        Kind = "missing_required_tag"
	MissingOptionalTag        Kind = "missing_optional_tag"
	UnresolvedReference       Kind = "unresolved_reference"
	ExtraReference            Kind = "extra_reference"
	MissingReference          Kind = "missing_reference"
	DistanceThresholdExceeded Kind = "distance_threshold_exceeded"
	AmbiguousMatch            Kind = "ambiguous_match"
	NoMatch                   Kind = "no_match"
	StopSequenceMismatch      Kind = "stop_sequence_mismatch"
	RouteMismatch             Kind = "route_mismatch"
	DayTypeLookupFailure      Kind = "day_type_lookup_failure"
	LastLegDurationMissing    Kind = "last_leg_duration_missing"
	MissingLeg                Kind = "missing_leg"
	FeedValidation            Kind = "feed_validation"
)

// Issue is a single diagnostic.
type Issue struct {
	Kind    Kind              `json:"kind"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func (i Issue) String() string {
	s := fmt.Sprintf("%s [%s] %s", i.Level, i.Kind, i.Message)
	for _, key := range slices.Sorted(maps.Keys(i.Attrs)) {
		s += fmt.Sprintf(" %s=%s", key, i.Attrs[key])
	}
	return s
}

// Row is one table row. Highlighted rows mark a difference between sources.
type Row struct {
	Cells     []string `json:"cells"`
	Highlight bool     `json:"highlight,omitempty"`
}

// Table is a side-by-side comparison of the two sources.
type Table struct {
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ZipLongest pairs up columns of unequal length, padding short ones with "".
func ZipLongest(columns ...[]string) [][]string {
	longest := 0
	for _, column := range columns {
		longest = max(longest, len(column))
	}
	rows := make([][]string, longest)
	for i := range rows {
		row := make([]string, len(columns))
		for j, column := range columns {
			if i < len(column) {
				row[j] = column[i]
			}
		}
		rows[i] = row
	}
	return rows
}

// Sink receives diagnostics.
type Sink interface {
	Issue(issue Issue)
	Table(table Table)
}

// Reporter fans diagnostics out to sinks and logs every issue at its level.
// It is safe for concurrent use; a nil Reporter discards everything.
type Reporter struct {
	mu     sync.Mutex
	logger *slog.Logger
	sinks  []Sink
}

func New(logger *slog.Logger, sinks ...Sink) *Reporter {
	return &Reporter{logger: logger, sinks: sinks}
}

// Report records an issue. kv holds alternating attribute keys and values.
func (r *Reporter) Report(level slog.Level, kind Kind, message string, kv ...string) {
	if r == nil {
		return
	}
	issue := Issue{Kind: kind, Level: level, Message: message}
	if len(kv) > 0 {
		issue.Attrs = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			issue.Attrs[kv[i]] = kv[i+1]
		}
	}
	r.Issue(issue)
}

func (r *Reporter) Info(kind Kind, message string, kv ...string) {
	r.Report(slog.LevelInfo, kind, message, kv...)
}

func (r *Reporter) Warn(kind Kind, message string, kv ...string) {
	r.Report(slog.LevelWarn, kind, message, kv...)
}

func (r *Reporter) Error(kind Kind, message string, kv ...string) {
	r.Report(slog.LevelError, kind, message, kv...)
}

// Issue forwards a prepared issue.
func (r *Reporter) Issue(issue Issue) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logger != nil {
		args := make([]any, 0, len(issue.Attrs)+1)
		args = append(args, slog.String("kind", string(issue.Kind)))
		for _, key := range slices.Sorted(maps.Keys(issue.Attrs)) {
			args = append(args, slog.String(key, issue.Attrs[key]))
		}
		r.logger.Log(context.Background(), issue.Level, issue.Message, args...)
	}
	for _, sink := range r.sinks {
		sink.Issue(issue)
	}
}

// Table forwards a comparison table. Empty tables are dropped.
func (r *Reporter) Table(table Table) {
	if r == nil || len(table.Rows) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("comparison table", slog.String("title", table.Title), slog.Int("rows", len(table.Rows)))
	}
	for _, sink := range r.sinks {
		sink.Table(table)
	}
}
