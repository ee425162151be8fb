package gtfs

import (
	"time"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

// MockSetResult installs a result as if a run had produced it.
func (manager *Manager) MockSetResult(result *Result) {
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now()
	}
	manager.setResult(result)
}

// MockResult wraps data in a result with empty diagnostics.
func MockResult(data *feed.Data, archive []byte) *Result {
	return &Result{
		Feed:         data,
		Mapping:      &feed.Data{},
		Operator:     &feed.Data{},
		Associations: map[string]string{},
		Summary:      report.NewRecorder().Summary(),
		Archive:      archive,
	}
}
