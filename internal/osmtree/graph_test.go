package osmtree

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starsep/gtfs-tczew/internal/report"
)

func busStop(id osm.NodeID, ref, name string) *osm.Node {
	tags := osm.Tags{{Key: TagHighway, Value: "bus_stop"}, {Key: TagName, Value: name}}
	if ref != "" {
		tags = append(tags, osm.Tag{Key: TagRef, Value: ref})
	}
	return &osm.Node{ID: id, Tags: tags, Lat: 54.09, Lon: 18.78}
}

func member(t osm.Type, ref int64, role string) osm.Member {
	return osm.Member{Type: t, Ref: ref, Role: role}
}

func TestRefs(t *testing.T) {
	tags := osm.Tags{{Key: "ref", Value: "12; 13;;14"}, {Key: "empty", Value: ""}}
	assert.Equal(t, []string{"12", "13", "14"}, Refs(tags, "ref"))
	assert.Nil(t, Refs(tags, "empty"))
	assert.Nil(t, Refs(tags, "missing"))
}

func TestNewTreeLocatesWayNodes(t *testing.T) {
	way := &osm.Way{ID: 100, Nodes: osm.WayNodes{{ID: 20}, {ID: 21, Lat: 1, Lon: 2}, {ID: 99}}}
	root := &osm.Relation{ID: 1, Members: osm.Members{member(osm.TypeWay, 100, "")}}
	tree := NewTree(root, &osm.OSM{
		Nodes: osm.Nodes{{ID: 20, Lat: 54.0, Lon: 18.6}, {ID: 21, Lat: 54.01, Lon: 18.61}},
		Ways:  osm.Ways{way},
	})

	assert.Equal(t, 54.0, way.Nodes[0].Lat)
	assert.Equal(t, 1.0, way.Nodes[1].Lat, "coordinates already present are kept")
	assert.Equal(t, 0.0, way.Nodes[2].Lat)
	assert.Same(t, way, tree.Element(root.Members[0]))
	assert.Nil(t, tree.Element(member(osm.TypeNode, 42, "")))
	assert.Equal(t, "node/42", MemberKey(member(osm.TypeNode, 42, "")))
}

func TestWalkHandlesCycles(t *testing.T) {
	root := &osm.Relation{ID: 1, Members: osm.Members{
		member(osm.TypeRelation, 2, ""),
		member(osm.TypeRelation, 1, ""),
	}}
	child := &osm.Relation{ID: 2, Members: osm.Members{
		member(osm.TypeNode, 10, ""),
		member(osm.TypeRelation, 1, ""),
		member(osm.TypeNode, 10, ""),
		member(osm.TypeWay, 77, ""),
	}}
	tree := NewTree(root, &osm.OSM{
		Nodes:     osm.Nodes{busStop(10, "1", "Rondo")},
		Relations: osm.Relations{child},
	})

	var visited []string
	tree.Walk(func(e osm.Element) {
		visited = append(visited, e.FeatureID().String())
	})

	assert.Equal(t, []string{"relation/1", "relation/2", "node/10"}, visited)
}

func TestRoutes(t *testing.T) {
	master := &osm.Relation{ID: 2, Tags: osm.Tags{{Key: TagRouteMaster, Value: "bus"}, {Key: TagRef, Value: "5"}}}
	train := &osm.Relation{ID: 3, Tags: osm.Tags{{Key: TagRouteMaster, Value: "train"}}}
	root := &osm.Relation{ID: 1, Members: osm.Members{
		member(osm.TypeRelation, 2, ""),
		member(osm.TypeRelation, 3, ""),
		member(osm.TypeNode, 4, ""),
		member(osm.TypeRelation, 8, ""),
	}}
	tree := NewTree(root, &osm.OSM{
		Nodes:     osm.Nodes{busStop(4, "1", "x")},
		Relations: osm.Relations{master, train},
	})

	routes := tree.Routes()
	require.Len(t, routes, 1)
	assert.Same(t, master, routes[0])
}

func TestStops(t *testing.T) {
	first := busStop(10, "1", "Rondo")
	duplicate := busStop(11, "1", "Rondo bis")
	multi := busStop(12, "2;3", "Dworzec")
	noRef := busStop(13, "", "Bez numeru")
	wayStop := &osm.Way{ID: 14, Tags: osm.Tags{{Key: TagHighway, Value: "bus_stop"}, {Key: TagRef, Value: "9"}}}
	variant := &osm.Relation{ID: 3, Members: osm.Members{
		member(osm.TypeNode, 10, "platform"),
		member(osm.TypeNode, 11, "platform"),
		member(osm.TypeNode, 12, "platform"),
		member(osm.TypeNode, 13, "platform"),
		member(osm.TypeWay, 14, "platform"),
	}}
	root := &osm.Relation{ID: 1, Members: osm.Members{
		member(osm.TypeRelation, 3, ""),
		member(osm.TypeRelation, 99, ""),
	}}
	tree := NewTree(root, &osm.OSM{
		Nodes:     osm.Nodes{first, duplicate, multi, noRef},
		Ways:      osm.Ways{wayStop},
		Relations: osm.Relations{variant},
	})

	recorder := report.NewRecorder()
	stops := tree.Stops(report.New(nil, recorder))

	require.Len(t, stops, 3)
	assert.Same(t, first, stops["1"])
	assert.Same(t, multi, stops["2"])
	assert.Same(t, multi, stops["3"])

	issues := recorder.IssuesOfKind(report.MissingRequiredTag)
	require.Len(t, issues, 2)
	assert.Equal(t, "node/13", issues[0].Attrs["element"])
	assert.Equal(t, "way/14", issues[1].Attrs["element"])
}
