package merge

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

// requiredStopIDs returns the stops referenced by any operator variant.
func (m *Merger) requiredStopIDs() map[string]bool {
	required := make(map[string]bool)
	for _, variant := range m.operator.RouteVariants {
		for _, stopID := range variant.StopIDs {
			required[stopID] = true
		}
	}
	return required
}

// MissingRefsQuery renders refs as a search expression that selects them in
// an OSM editor.
func MissingRefsQuery(refs []string) string {
	terms := make([]string, len(refs))
	for i, ref := range refs {
		terms[i] = "ref=" + ref
	}
	return strings.Join(terms, " or ")
}

func (m *Merger) Stops(context.Context) (map[string]feed.Stop, error) {
	required := m.requiredStopIDs()

	var extra []string
	for _, id := range feed.SortedStopIDs(m.mapping.Stops) {
		if !required[id] {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		m.reporter.Info(report.ExtraReference,
			fmt.Sprintf("extra OSM bus stop refs: %s", strings.Join(extra, ", ")),
			"refs", strings.Join(extra, ","))
	}

	var missing []string
	stops := make(map[string]feed.Stop, len(required))
	for _, id := range sortedSet(required) {
		mappingStop, inMapping := m.mapping.Stops[id]
		operatorStop, inOperator := m.operator.Stops[id]
		switch {
		case inMapping && inOperator:
			m.checkDistance(mappingStop, operatorStop)
			stop := mappingStop
			if stop.Name == "" {
				stop.Name = operatorStop.Name
			}
			stops[id] = stop
		case inOperator:
			missing = append(missing, id)
			stops[id] = operatorStop
		case inMapping:
			stops[id] = mappingStop
		default:
			m.reporter.Error(report.UnresolvedReference,
				fmt.Sprintf("bus stop %s is used by a route variant but missing in both sources", id),
				"stop", id)
		}
	}
	if len(missing) > 0 {
		query := MissingRefsQuery(missing)
		m.reporter.Warn(report.MissingReference,
			fmt.Sprintf("missing OSM bus stop refs: %s", query),
			"refs", strings.Join(missing, ","), "query", query)
	}
	return stops, nil
}

func (m *Merger) checkDistance(mappingStop, operatorStop feed.Stop) {
	// whole meters, so 200.4m against a 200m limit is not an error
	distance := int(utils.DistanceMeters(operatorStop.Position(), mappingStop.Position()))
	var level slog.Level
	switch {
	case float64(distance) > m.opts.ErrorDistanceMeters:
		level = slog.LevelError
	case float64(distance) > m.opts.WarnDistanceMeters:
		level = slog.LevelWarn
	default:
		return
	}
	direction := utils.CompassDirection(operatorStop.Position(), mappingStop.Position())
	meters := strconv.Itoa(distance)
	m.reporter.Report(level, report.DistanceThresholdExceeded,
		fmt.Sprintf("distance between stops=%sm, OSM stop %s %q is %s of operator stop %q",
			meters, mappingStop.ID, mappingStop.Name, direction, operatorStop.Name),
		"stop", mappingStop.ID, "distance_m", meters, "direction", direction)
}

func sortedSet(set map[string]bool) []string {
	return slices.Sorted(maps.Keys(set))
}
