package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"
)

// TextSink renders issues as lines and tables as aligned columns.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Issue(issue Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, issue.String())
}

func (s *TextSink) Table(table Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "\n%s\n", table.Title)
	tw := tabwriter.NewWriter(s.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(table.Columns, "\t"))
	for _, row := range table.Rows {
		marker := ""
		if row.Highlight {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\n", marker, strings.Join(row.Cells, "\t"))
	}
	_ = tw.Flush()
}

// Recorder keeps every diagnostic in memory.
type Recorder struct {
	mu     sync.Mutex
	issues []Issue
	tables []Table
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Issue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues = append(r.issues, issue)
}

func (r *Recorder) Table(table Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, table)
}

// Issues returns a copy of the recorded issues in arrival order.
func (r *Recorder) Issues() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Issue(nil), r.issues...)
}

// Tables returns a copy of the recorded tables in arrival order.
func (r *Recorder) Tables() []Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Table(nil), r.tables...)
}

// IssuesOfKind filters the recorded issues.
func (r *Recorder) IssuesOfKind(kind Kind) []Issue {
	var result []Issue
	for _, issue := range r.Issues() {
		if issue.Kind == kind {
			result = append(result, issue)
		}
	}
	return result
}

// Summary is the JSON document served by the web UI.
type Summary struct {
	Counts map[Kind]int   `json:"counts"`
	Levels map[string]int `json:"levels"`
	Issues []Issue        `json:"issues"`
	Tables []Table        `json:"tables"`
}

func (r *Recorder) Summary() Summary {
	summary := Summary{
		Counts: make(map[Kind]int),
		Levels: make(map[string]int),
		Issues: r.Issues(),
		Tables: r.Tables(),
	}
	for _, issue := range summary.Issues {
		summary.Counts[issue.Kind]++
		summary.Levels[issue.Level.String()]++
	}
	return summary
}

// ErrorCount reports how many recorded issues are at error level or above.
func (r *Recorder) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues() {
		if issue.Level >= slog.LevelError {
			count++
		}
	}
	return count
}
