// Package osmtree fetches an OpenStreetMap public transport relation together
// with every element it reaches, and answers the questions the feed builder
// asks about that tree.
package osmtree

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/osm"
)

const (
	TagRoute           = "gtfs:route_id"
	TagTrip            = "gtfs:trip_id"
	TagRouteMaster     = "route_master"
	TagHighway         = "highway"
	TagRef             = "ref"
	TagName            = "name"
	TagBus             = "bus"
	TagPublicTransport = "public_transport"
)

// Source fetches a relation and everything reachable from it.
type Source interface {
	FetchRelation(ctx context.Context, id osm.RelationID) (*Tree, error)
}

// Tree is a root relation plus every node, way and relation reachable from it,
// indexed by id. Way nodes carry the coordinates of the nodes they reference.
// A Tree is never modified after it is returned by a Source.
type Tree struct {
	Root      *osm.Relation
	Nodes     map[osm.NodeID]*osm.Node
	Ways      map[osm.WayID]*osm.Way
	Relations map[osm.RelationID]*osm.Relation
}

func newTree() *Tree {
	return &Tree{
		Nodes:     make(map[osm.NodeID]*osm.Node),
		Ways:      make(map[osm.WayID]*osm.Way),
		Relations: make(map[osm.RelationID]*osm.Relation),
	}
}

// NewTree indexes the elements of data under root. Elements absent from data
// are treated as unresolved.
func NewTree(root *osm.Relation, data *osm.OSM) *Tree {
	tree := newTree()
	tree.Root = root
	tree.Relations[root.ID] = root
	if data != nil {
		for _, node := range data.Nodes {
			tree.Nodes[node.ID] = node
		}
		for _, relation := range data.Relations {
			tree.Relations[relation.ID] = relation
		}
		for _, way := range data.Ways {
			tree.locate(way)
			tree.Ways[way.ID] = way
		}
	}
	return tree
}

// locate copies node coordinates onto the way nodes that lack them.
func (t *Tree) locate(way *osm.Way) {
	for i, wn := range way.Nodes {
		if node, ok := t.Nodes[wn.ID]; ok && wn.Lat == 0 && wn.Lon == 0 {
			way.Nodes[i].Lat = node.Lat
			way.Nodes[i].Lon = node.Lon
		}
	}
}

// Element returns the element a member references, or nil if the tree does
// not hold it.
func (t *Tree) Element(m osm.Member) osm.Element {
	switch m.Type {
	case osm.TypeNode:
		if node, ok := t.Nodes[osm.NodeID(m.Ref)]; ok {
			return node
		}
	case osm.TypeWay:
		if way, ok := t.Ways[osm.WayID(m.Ref)]; ok {
			return way
		}
	case osm.TypeRelation:
		if relation, ok := t.Relations[osm.RelationID(m.Ref)]; ok {
			return relation
		}
	}
	return nil
}

// TagsOf returns the tags of a node, way or relation.
func TagsOf(e osm.Element) osm.Tags {
	switch e := e.(type) {
	case *osm.Node:
		return e.Tags
	case *osm.Way:
		return e.Tags
	case *osm.Relation:
		return e.Tags
	}
	return nil
}

// Refs splits a ";" separated tag value into its non-empty parts.
func Refs(tags osm.Tags, key string) []string {
	var refs []string
	for _, part := range strings.Split(tags.Find(key), ";") {
		if part = strings.TrimSpace(part); part != "" {
			refs = append(refs, part)
		}
	}
	return refs
}

// MemberKey names the element a member references, e.g. "way/12".
func MemberKey(m osm.Member) string {
	return fmt.Sprintf("%s/%d", m.Type, m.Ref)
}
