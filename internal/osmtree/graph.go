package osmtree

import (
	"fmt"

	"github.com/paulmach/osm"

	"github.com/starsep/gtfs-tczew/internal/report"
)

// Walk visits the root and every element reachable through relation members
// in depth-first member order. Each element is visited once, so cyclic
// relation graphs terminate. Unresolved members are skipped.
func (t *Tree) Walk(visit func(osm.Element)) {
	visited := make(map[osm.FeatureID]bool)
	var walk func(osm.Element)
	walk = func(e osm.Element) {
		if e == nil {
			return
		}
		id := e.FeatureID()
		if visited[id] {
			return
		}
		visited[id] = true
		visit(e)
		if relation, ok := e.(*osm.Relation); ok {
			for _, member := range relation.Members {
				walk(t.Element(member))
			}
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
}

// Routes returns the bus route masters that are direct members of the root.
func (t *Tree) Routes() []*osm.Relation {
	var routes []*osm.Relation
	for _, member := range t.Root.Members {
		relation, ok := t.Element(member).(*osm.Relation)
		if !ok {
			continue
		}
		if relation.Tags.Find(TagRouteMaster) == "bus" {
			routes = append(routes, relation)
		}
	}
	return routes
}

// Stops collects every bus stop reachable from the root keyed by ref. A ";"
// separated ref registers the stop under each value and the first stop seen
// for a ref wins.
func (t *Tree) Stops(reporter *report.Reporter) map[string]*osm.Node {
	stops := make(map[string]*osm.Node)
	t.Walk(func(e osm.Element) {
		tags := TagsOf(e)
		if tags.Find(TagHighway) != "bus_stop" {
			return
		}
		element := e.FeatureID().String()
		node, ok := e.(*osm.Node)
		if !ok {
			reporter.Warn(report.MissingRequiredTag, fmt.Sprintf("bus stop %s is not a node", element), "element", element)
			return
		}
		refs := Refs(tags, TagRef)
		if len(refs) == 0 {
			reporter.Warn(report.MissingRequiredTag, fmt.Sprintf("missing ref for %s", element), "element", element, "tag", TagRef)
			return
		}
		for _, ref := range refs {
			if _, exists := stops[ref]; !exists {
				stops[ref] = node
			}
		}
	})
	return stops
}
