package osmtree

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/osm"
)

// JSONGetter fetches and decodes a JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// APIClient reads relation trees from the OSM API 0.6 JSON endpoints. Each
// FetchRelation resolves into a fresh Tree, so a later call sees the current
// upstream data. Safe for concurrent use if the getter is.
type APIClient struct {
	getter  JSONGetter
	baseURL string
}

// NewAPIClient builds a client for baseURL, e.g. https://api.openstreetmap.org/api/0.6.
func NewAPIClient(getter JSONGetter, baseURL string) *APIClient {
	return &APIClient{getter: getter, baseURL: strings.TrimRight(baseURL, "/")}
}

var _ Source = (*APIClient)(nil)

// FetchRelation returns the relation with all members resolved recursively.
func (c *APIClient) FetchRelation(ctx context.Context, id osm.RelationID) (*Tree, error) {
	r := &resolver{client: c, tree: newTree()}
	root, err := r.relation(ctx, id)
	if err != nil {
		return nil, err
	}
	r.tree.Root = root
	return r.tree, nil
}

func (c *APIClient) fetch(ctx context.Context, path string) (*osm.OSM, error) {
	var doc osm.OSM
	if err := c.getter.GetJSON(ctx, c.baseURL+path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// resolver materializes every element once, so shared members are the same
// pointer and a relation that references itself (directly or through a cycle)
// resolves to the relation being built.
type resolver struct {
	client *APIClient
	tree   *Tree
}

// ingest registers the nodes of a full response and returns its ways by id.
func (r *resolver) ingest(doc *osm.OSM) map[osm.WayID]*osm.Way {
	for _, node := range doc.Nodes {
		if _, ok := r.tree.Nodes[node.ID]; !ok {
			r.tree.Nodes[node.ID] = node
		}
	}
	ways := make(map[osm.WayID]*osm.Way, len(doc.Ways))
	for _, way := range doc.Ways {
		ways[way.ID] = way
	}
	return ways
}

func (r *resolver) node(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
	if node, ok := r.tree.Nodes[id]; ok {
		return node, nil
	}
	doc, err := r.client.fetch(ctx, fmt.Sprintf("/node/%d.json", id))
	if err != nil {
		return nil, fmt.Errorf("error fetching node %d: %w", id, err)
	}
	for _, node := range doc.Nodes {
		if node.ID == id {
			r.tree.Nodes[id] = node
			return node, nil
		}
	}
	return nil, fmt.Errorf("node %d missing from response", id)
}

// way resolves a way, fetching it unless the current response carried it and
// fetching any node the responses did not carry.
func (r *resolver) way(ctx context.Context, id osm.WayID, inDoc map[osm.WayID]*osm.Way) (*osm.Way, error) {
	if way, ok := r.tree.Ways[id]; ok {
		return way, nil
	}
	way, ok := inDoc[id]
	if !ok {
		doc, err := r.client.fetch(ctx, fmt.Sprintf("/way/%d/full.json", id))
		if err != nil {
			return nil, fmt.Errorf("error fetching way %d: %w", id, err)
		}
		if way, ok = r.ingest(doc)[id]; !ok {
			return nil, fmt.Errorf("way %d missing from response", id)
		}
	}
	for i, wn := range way.Nodes {
		node, err := r.node(ctx, wn.ID)
		if err != nil {
			return nil, fmt.Errorf("error resolving way %d: %w", id, err)
		}
		way.Nodes[i].Lat = node.Lat
		way.Nodes[i].Lon = node.Lon
	}
	r.tree.Ways[id] = way
	return way, nil
}

func (r *resolver) relation(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
	if relation, ok := r.tree.Relations[id]; ok {
		return relation, nil
	}
	doc, err := r.client.fetch(ctx, fmt.Sprintf("/relation/%d/full.json", id))
	if err != nil {
		return nil, fmt.Errorf("error fetching relation %d: %w", id, err)
	}
	ways := r.ingest(doc)
	var relation *osm.Relation
	for _, candidate := range doc.Relations {
		if candidate.ID == id {
			relation = candidate
			break
		}
	}
	if relation == nil {
		return nil, fmt.Errorf("relation %d missing from response", id)
	}

	// registered before the members are resolved so cycles end here
	r.tree.Relations[id] = relation
	if err := r.members(ctx, relation, ways); err != nil {
		delete(r.tree.Relations, id)
		return nil, err
	}
	return relation, nil
}

func (r *resolver) members(ctx context.Context, relation *osm.Relation, ways map[osm.WayID]*osm.Way) error {
	for i, member := range relation.Members {
		switch member.Type {
		case osm.TypeNode:
			node, err := r.node(ctx, osm.NodeID(member.Ref))
			if err != nil {
				return err
			}
			relation.Members[i].Lat = node.Lat
			relation.Members[i].Lon = node.Lon
		case osm.TypeWay:
			if _, err := r.way(ctx, osm.WayID(member.Ref), ways); err != nil {
				return err
			}
		case osm.TypeRelation:
			if _, err := r.relation(ctx, osm.RelationID(member.Ref)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("relation %d: unknown member type %q", relation.ID, member.Type)
		}
	}
	return nil
}
