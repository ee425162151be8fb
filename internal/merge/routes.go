package merge

import (
	"context"
	"fmt"
	"maps"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

func routesByName(routes map[string]feed.Route) map[string]feed.Route {
	result := make(map[string]feed.Route, len(routes))
	for _, id := range feed.SortedRouteIDs(routes) {
		route := routes[id]
		if _, ok := result[route.Name]; !ok {
			result[route.Name] = route
		}
	}
	return result
}

// Routes returns the operator routes. Mapping routes are matched by name
// only to report disagreements.
func (m *Merger) Routes(context.Context) (map[string]feed.Route, error) {
	mappingByName := routesByName(m.mapping.Routes)
	operatorByName := routesByName(m.operator.Routes)

	names := make(map[string]bool, len(mappingByName)+len(operatorByName))
	mismatch := false
	for name := range mappingByName {
		names[name] = true
		if _, ok := operatorByName[name]; !ok {
			mismatch = true
		}
	}
	for name, operatorRoute := range operatorByName {
		names[name] = true
		mappingRoute, ok := mappingByName[name]
		if !ok || mappingRoute.ID != operatorRoute.ID {
			mismatch = true
		}
	}

	if mismatch {
		table := report.Table{
			Title:   "OSM route_master vs Operator Route",
			Columns: []string{"ref OSM", "name Operator", "gtfs:route_id OSM", "id Operator"},
		}
		for _, name := range sortedSet(names) {
			mappingRoute, inMapping := mappingByName[name]
			operatorRoute, inOperator := operatorByName[name]
			table.Rows = append(table.Rows, report.Row{
				Cells:     []string{mappingRoute.Name, operatorRoute.Name, mappingRoute.ID, operatorRoute.ID},
				Highlight: !inMapping || !inOperator || mappingRoute.ID != operatorRoute.ID,
			})
			switch {
			case !inMapping:
				m.reporter.Error(report.RouteMismatch,
					fmt.Sprintf("missing OSM route with ref=%s", name),
					"route", operatorRoute.ID, "ref", name)
			case inOperator && mappingRoute.ID != operatorRoute.ID:
				m.reporter.Warn(report.RouteMismatch,
					fmt.Sprintf("route %s has gtfs:route_id=%q in OSM but id %s in operator data", name, mappingRoute.ID, operatorRoute.ID),
					"route", operatorRoute.ID, "ref", name, "osm_route_id", mappingRoute.ID)
			}
		}
		m.reporter.Table(table)
	}

	return maps.Clone(m.operator.Routes), nil
}
