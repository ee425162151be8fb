// Package osmfeed turns an OpenStreetMap public transport relation into the
// geographic half of a feed: stops, routes, variants and shapes. The mapping
// source has no timetables, so trips, services and stop times stay empty.
package osmfeed

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/paulmach/osm"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/osmtree"
	"github.com/starsep/gtfs-tczew/internal/report"
)

// Producer implements feed.Producer over a resolved relation tree.
type Producer struct {
	tree     *osmtree.Tree
	reporter *report.Reporter
}

var _ feed.Producer = (*Producer)(nil)

func New(tree *osmtree.Tree, reporter *report.Reporter) *Producer {
	return &Producer{tree: tree, reporter: reporter}
}

// Extract fetches the relation tree rooted at relationID and builds its feed.
func Extract(ctx context.Context, source osmtree.Source, relationID int64, reporter *report.Reporter) (*feed.Data, error) {
	tree, err := source.FetchRelation(ctx, osm.RelationID(relationID))
	if err != nil {
		return nil, fmt.Errorf("error fetching root relation %d: %w", relationID, err)
	}
	return feed.Build(ctx, New(tree, reporter))
}

func (p *Producer) Stops(context.Context) (map[string]feed.Stop, error) {
	nodes := p.tree.Stops(p.reporter)
	stops := make(map[string]feed.Stop, len(nodes))
	checked := make(map[osm.NodeID]bool)
	for _, ref := range slices.Sorted(maps.Keys(nodes)) {
		node := nodes[ref]
		if !checked[node.ID] {
			checked[node.ID] = true
			p.checkStopTags(node)
		}
		stops[ref] = feed.Stop{
			ID:   ref,
			Name: node.Tags.Find(osmtree.TagName),
			Lat:  node.Lat,
			Lon:  node.Lon,
		}
	}
	return stops, nil
}

func (p *Producer) checkStopTags(node *osm.Node) {
	element := node.FeatureID().String()
	if !node.Tags.HasTag(osmtree.TagBus) {
		p.reporter.Warn(report.MissingOptionalTag, fmt.Sprintf("%s missing bus=yes tag", element), "element", element, "tag", osmtree.TagBus)
	}
	if !node.Tags.HasTag(osmtree.TagPublicTransport) {
		p.reporter.Warn(report.MissingOptionalTag, fmt.Sprintf("%s missing public_transport tag", element), "element", element, "tag", osmtree.TagPublicTransport)
	}
	if !node.Tags.HasTag(osmtree.TagName) {
		p.reporter.Warn(report.MissingOptionalTag, fmt.Sprintf("%s missing name tag", element), "element", element, "tag", osmtree.TagName)
	}
}

func (p *Producer) Routes(context.Context) (map[string]feed.Route, error) {
	routes := make(map[string]feed.Route)
	for _, master := range p.tree.Routes() {
		id := master.Tags.Find(osmtree.TagRoute)
		if id == "" {
			p.reporter.Error(report.MissingRequiredTag,
				fmt.Sprintf("missing tag %s for relation %d", osmtree.TagRoute, master.ID),
				"element", master.FeatureID().String(), "tag", osmtree.TagRoute)
		}
		routes[id] = feed.Route{ID: id, Name: master.Tags.Find(osmtree.TagRef)}
	}
	return routes, nil
}

func (p *Producer) RouteVariants(context.Context, map[string]feed.Stop, map[string]feed.Route) (map[string]feed.RouteVariant, error) {
	variants := make(map[string]feed.RouteVariant)
	for _, master := range p.tree.Routes() {
		for _, member := range master.Members {
			relation, ok := p.validVariant(member)
			if !ok {
				continue
			}
			id := relation.Tags.Find(osmtree.TagTrip)
			variants[id] = feed.RouteVariant{
				RouteID: relation.Tags.Find(osmtree.TagRoute),
				ID:      id,
				ShapeID: id,
				Shape:   p.geometry(relation),
				StopIDs: p.platformRefs(relation),
				Name:    relation.Tags.Find(osmtree.TagName),
			}
		}
	}
	return variants, nil
}

func (p *Producer) validVariant(member osm.Member) (*osm.Relation, bool) {
	element := osmtree.MemberKey(member)
	resolved := p.tree.Element(member)
	if resolved == nil {
		p.reporter.Error(report.UnresolvedReference, fmt.Sprintf("route master member %s was not resolved", element), "element", element)
		return nil, false
	}
	tags := osmtree.TagsOf(resolved)
	for _, tag := range []string{osmtree.TagTrip, osmtree.TagRoute} {
		if tags.Find(tag) == "" {
			p.reporter.Error(report.MissingRequiredTag, fmt.Sprintf("%s missing %s tag", element, tag), "element", element, "tag", tag)
			return nil, false
		}
	}
	relation, ok := resolved.(*osm.Relation)
	if !ok {
		p.reporter.Error(report.UnresolvedReference, fmt.Sprintf("route variant %s is not a relation", element), "element", element)
		return nil, false
	}
	return relation, true
}

// geometry concatenates the nodes of every untagged-role way member.
func (p *Producer) geometry(variant *osm.Relation) []feed.LatLon {
	var points []feed.LatLon
	for _, member := range variant.Members {
		if member.Role != "" || member.Type != osm.TypeWay {
			continue
		}
		way, ok := p.tree.Element(member).(*osm.Way)
		if !ok {
			continue
		}
		for _, wn := range way.Nodes {
			points = append(points, feed.LatLon{Lat: wn.Lat, Lon: wn.Lon})
		}
	}
	return points
}

func (p *Producer) platformRefs(variant *osm.Relation) []string {
	var refs []string
	for _, member := range variant.Members {
		if !strings.HasPrefix(member.Role, "platform") {
			continue
		}
		element := osmtree.MemberKey(member)
		node, ok := p.tree.Element(member).(*osm.Node)
		if member.Type != osm.TypeNode || !ok {
			p.reporter.Error(report.UnresolvedReference,
				fmt.Sprintf("invalid platform %s in relation %d", element, variant.ID),
				"element", element, "relation", variant.FeatureID().String())
			continue
		}
		values := osmtree.Refs(node.Tags, osmtree.TagRef)
		if len(values) == 0 {
			p.reporter.Error(report.MissingRequiredTag,
				fmt.Sprintf("platform %s in relation %d has no ref", element, variant.ID),
				"element", element, "tag", osmtree.TagRef)
			continue
		}
		refs = append(refs, values[0])
	}
	return refs
}

func (p *Producer) Services(context.Context) ([]feed.Service, error) {
	return nil, nil
}

func (p *Producer) Trips(context.Context, []feed.Service, map[string]feed.RouteVariant) (map[string]feed.Trip, error) {
	return map[string]feed.Trip{}, nil
}

func (p *Producer) Shapes(_ context.Context, variants map[string]feed.RouteVariant) ([]feed.ShapePoint, error) {
	return feed.ShapesFromRouteVariants(variants), nil
}

func (p *Producer) StopTimes(context.Context, map[string]feed.RouteVariant, map[string]feed.Trip) ([]feed.StopTime, error) {
	return nil, nil
}
