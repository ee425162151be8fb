package merge

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

func sequenceKey(stopIDs []string) string {
	return strings.Join(stopIDs, "\x1f")
}

// adopt returns the operator variant with the mapping variant's stops,
// geometry and shape id.
func adopt(operatorVariant, mappingVariant feed.RouteVariant) feed.RouteVariant {
	name := mappingVariant.Name
	if name == "" {
		name = operatorVariant.Name
	}
	return feed.RouteVariant{
		RouteID: operatorVariant.RouteID,
		ID:      operatorVariant.ID,
		ShapeID: mappingVariant.ShapeID,
		Shape:   slices.Clone(mappingVariant.Shape),
		StopIDs: slices.Clone(mappingVariant.StopIDs),
		Name:    name,
	}
}

func unchanged(variant feed.RouteVariant) feed.RouteVariant {
	variant.Shape = slices.Clone(variant.Shape)
	variant.StopIDs = slices.Clone(variant.StopIDs)
	return variant
}

// RouteVariants reconciles every operator variant with the mapping source:
// first by id, then by an identical stop sequence among the mapping variants
// no id match has claimed. Ambiguous and missing matches keep the operator
// variant.
func (m *Merger) RouteVariants(_ context.Context, stops map[string]feed.Stop, _ map[string]feed.Route) (map[string]feed.RouteVariant, error) {
	m.associations = make(map[string]string)

	claimed := make(map[string]bool)
	for id := range m.operator.RouteVariants {
		if _, ok := m.mapping.RouteVariants[id]; ok {
			claimed[id] = true
		}
	}
	candidates := make(map[string][]string)
	for _, id := range feed.SortedVariantIDs(m.mapping.RouteVariants) {
		if claimed[id] {
			continue
		}
		key := sequenceKey(m.mapping.RouteVariants[id].StopIDs)
		candidates[key] = append(candidates[key], id)
	}

	matchedMapping := make(map[string]bool)
	var unmatchedOperator []string
	result := make(map[string]feed.RouteVariant, len(m.operator.RouteVariants))
	for _, id := range feed.SortedVariantIDs(m.operator.RouteVariants) {
		operatorVariant := m.operator.RouteVariants[id]

		if mappingVariant, ok := m.mapping.RouteVariants[id]; ok {
			matchedMapping[id] = true
			if !slices.Equal(mappingVariant.StopIDs, operatorVariant.StopIDs) {
				m.reportSequenceMismatch(mappingVariant, operatorVariant, stops)
			}
			result[id] = adopt(operatorVariant, mappingVariant)
			continue
		}

		matches := candidates[sequenceKey(operatorVariant.StopIDs)]
		switch len(matches) {
		case 1:
			mappingVariant := m.mapping.RouteVariants[matches[0]]
			matchedMapping[mappingVariant.ID] = true
			m.associations[id] = mappingVariant.ID
			result[id] = adopt(operatorVariant, mappingVariant)
		case 0:
			unmatchedOperator = append(unmatchedOperator, id)
			m.reporter.Error(report.NoMatch,
				fmt.Sprintf("no OSM route matches operator variant %s of route %s", id, operatorVariant.RouteID),
				"variant", id, "route", operatorVariant.RouteID)
			result[id] = unchanged(operatorVariant)
		default:
			unmatchedOperator = append(unmatchedOperator, id)
			m.reporter.Error(report.AmbiguousMatch,
				fmt.Sprintf("operator variant %s matches %d OSM routes with identical stops: %s",
					id, len(matches), strings.Join(matches, ", ")),
				"variant", id, "route", operatorVariant.RouteID, "candidates", strings.Join(matches, ","))
			result[id] = unchanged(operatorVariant)
		}
	}

	var unmatchedMapping []string
	for _, id := range feed.SortedVariantIDs(m.mapping.RouteVariants) {
		if !matchedMapping[id] {
			unmatchedMapping = append(unmatchedMapping, id)
		}
	}
	if len(unmatchedMapping) > 0 {
		m.reporter.Info(report.ExtraReference,
			fmt.Sprintf("%d OSM routes not matched to operator variants", len(unmatchedMapping)),
			"variants", strings.Join(unmatchedMapping, ","))
	}
	m.reportUnmatched(unmatchedMapping, unmatchedOperator)

	return result, nil
}

func (m *Merger) reportSequenceMismatch(mappingVariant, operatorVariant feed.RouteVariant, stops map[string]feed.Stop) {
	m.reporter.Warn(report.StopSequenceMismatch,
		fmt.Sprintf("stops of OSM route %s differ from operator variant", mappingVariant.ID),
		"variant", mappingVariant.ID, "route", operatorVariant.RouteID)

	rows := report.ZipLongest(
		mappingVariant.StopIDs,
		mappingVariant.StopNames(m.mapping.Stops),
		operatorVariant.StopIDs,
		operatorVariant.StopNames(stops),
	)
	table := report.Table{
		Title:   fmt.Sprintf("Issues in relation %s %s", mappingVariant.Name, mappingVariant.ID),
		Columns: []string{"ref OSM", "name OSM", "ref Operator", "name Operator"},
	}
	for _, cells := range rows {
		table.Rows = append(table.Rows, report.Row{Cells: cells, Highlight: cells[0] != cells[2]})
	}
	m.reporter.Table(table)
}

// reportUnmatched lists the leftovers of both sources side by side so they
// can be paired up by hand.
func (m *Merger) reportUnmatched(mappingIDs, operatorIDs []string) {
	if len(mappingIDs) == 0 && len(operatorIDs) == 0 {
		return
	}
	var mappingRefs, mappingNames, mappingCounts []string
	for _, id := range mappingIDs {
		variant := m.mapping.RouteVariants[id]
		mappingRefs = append(mappingRefs, id)
		mappingNames = append(mappingNames, variant.Name)
		mappingCounts = append(mappingCounts, strconv.Itoa(len(variant.StopIDs)))
	}
	var operatorRefs, operatorCounts, starts, ends []string
	for _, id := range operatorIDs {
		variant := m.operator.RouteVariants[id]
		operatorRefs = append(operatorRefs, id)
		operatorCounts = append(operatorCounts, strconv.Itoa(len(variant.StopIDs)))
		starts = append(starts, m.operator.Stops[variant.FirstStopID()].Name)
		ends = append(ends, m.operator.Stops[variant.LastStopID()].Name)
	}

	table := report.Table{
		Title:   "OSM route vs Operator Trip",
		Columns: []string{"ref OSM", "name OSM", "#OSM", "ref Op", "#Op", "start Operator", "end Operator"},
	}
	for _, cells := range report.ZipLongest(mappingRefs, mappingNames, mappingCounts, operatorRefs, operatorCounts, starts, ends) {
		table.Rows = append(table.Rows, report.Row{Cells: cells, Highlight: true})
	}
	m.reporter.Table(table)
}
