package osmtree

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	documents map[string]string
	requests  []string
}

func (f *fakeGetter) GetJSON(_ context.Context, url string, v any) error {
	f.requests = append(f.requests, url)
	body, ok := f.documents[url]
	if !ok {
		return fmt.Errorf("unexpected request %s", url)
	}
	return json.Unmarshal([]byte(body), v)
}

const api = "https://osm.test/api/0.6"

func networkDocuments() map[string]string {
	return map[string]string{
		api + "/relation/1/full.json": `{"version":"0.6","elements":[
			{"type":"relation","id":2,"members":[],"tags":{"route_master":"bus"}},
			{"type":"relation","id":1,"tags":{"type":"public_transport"},"members":[
				{"type":"relation","ref":2,"role":""},
				{"type":"relation","ref":1,"role":"self"}
			]}
		]}`,
		api + "/relation/2/full.json": `{"elements":[
			{"type":"relation","id":3,"members":[],"tags":{}},
			{"type":"relation","id":2,"tags":{"route_master":"bus","ref":"5","gtfs:route_id":"55"},"members":[
				{"type":"relation","ref":3,"role":""}
			]}
		]}`,
		api + "/relation/3/full.json": `{"elements":[
			{"type":"node","id":10,"lat":54.1,"lon":18.7,"tags":{"highway":"bus_stop","ref":"1"}},
			{"type":"node","id":20,"lat":54.0,"lon":18.6},
			{"type":"node","id":21,"lat":54.01,"lon":18.61},
			{"type":"way","id":100,"nodes":[20,21,22],"tags":{"highway":"primary"}},
			{"type":"relation","id":3,"tags":{"gtfs:trip_id":"7","gtfs:route_id":"55"},"members":[
				{"type":"way","ref":100,"role":""},
				{"type":"node","ref":10,"role":"platform"},
				{"type":"way","ref":101,"role":""}
			]}
		]}`,
		api + "/node/22.json": `{"elements":[{"type":"node","id":22,"lat":54.02,"lon":18.62}]}`,
		api + "/way/101/full.json": `{"elements":[
			{"type":"node","id":21,"lat":54.01,"lon":18.61},
			{"type":"node","id":23,"lat":54.03,"lon":18.63},
			{"type":"way","id":101,"nodes":[21,23],"tags":{}}
		]}`,
	}
}

func TestAPIClientFetchRelation(t *testing.T) {
	getter := &fakeGetter{documents: networkDocuments()}
	client := NewAPIClient(getter, api+"/")

	tree, err := client.FetchRelation(context.Background(), 1)
	require.NoError(t, err)

	root := tree.Root
	require.Len(t, root.Members, 2)
	assert.Same(t, root, tree.Element(root.Members[1]), "self reference resolves to the same relation")

	master := tree.Element(root.Members[0]).(*osm.Relation)
	assert.Equal(t, "55", master.Tags.Find(TagRoute))

	variant := tree.Element(master.Members[0]).(*osm.Relation)
	require.Len(t, variant.Members, 3)
	way := tree.Element(variant.Members[0]).(*osm.Way)
	require.Len(t, way.Nodes, 3)
	assert.Equal(t, 54.02, way.Nodes[2].Lat, "node outside the response is fetched")
	assert.Equal(t, 18.6, way.Nodes[0].Lon)

	second := tree.Element(variant.Members[2]).(*osm.Way)
	assert.Equal(t, way.Nodes[1].Lat, second.Nodes[0].Lat)
	assert.Equal(t, 54.03, second.Nodes[1].Lat)

	platform := variant.Members[1]
	assert.Equal(t, "platform", platform.Role)
	assert.Equal(t, 54.1, platform.Lat)
	assert.Equal(t, "1", TagsOf(tree.Element(platform)).Find(TagRef))

	assert.Len(t, getter.requests, 5, "every element is fetched once per tree")
}

func TestAPIClientSeesUpstreamChanges(t *testing.T) {
	getter := &fakeGetter{documents: networkDocuments()}
	client := NewAPIClient(getter, api)

	first, err := client.FetchRelation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "5", first.Routes()[0].Tags.Find(TagRef))

	getter.documents[api+"/relation/2/full.json"] = `{"elements":[
		{"type":"relation","id":2,"tags":{"route_master":"bus","ref":"5bis","gtfs:route_id":"55"},"members":[]}
	]}`
	second, err := client.FetchRelation(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, second.Routes(), 1)
	assert.Equal(t, "5bis", second.Routes()[0].Tags.Find(TagRef))
	assert.NotSame(t, first.Root, second.Root)
}

func TestAPIClientErrors(t *testing.T) {
	t.Run("missing element", func(t *testing.T) {
		getter := &fakeGetter{documents: map[string]string{
			api + "/relation/5/full.json": `{"elements":[]}`,
		}}
		_, err := NewAPIClient(getter, api).FetchRelation(context.Background(), 5)
		assert.ErrorContains(t, err, "relation 5 missing")
	})

	t.Run("failed member", func(t *testing.T) {
		getter := &fakeGetter{documents: map[string]string{
			api + "/relation/1/full.json": `{"elements":[
				{"type":"relation","id":1,"tags":{},"members":[{"type":"node","ref":9,"role":""}]}
			]}`,
		}}
		client := NewAPIClient(getter, api)

		_, err := client.FetchRelation(context.Background(), 1)
		assert.ErrorContains(t, err, "error fetching node 9")

		getter.documents[api+"/node/9.json"] = `{"elements":[{"type":"node","id":9,"lat":1,"lon":2}]}`
		tree, err := client.FetchRelation(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, tree.Root.Members, 1)
		assert.NotNil(t, tree.Element(tree.Root.Members[0]))
	})

	t.Run("unknown member type", func(t *testing.T) {
		getter := &fakeGetter{documents: map[string]string{
			api + "/relation/1/full.json": `{"elements":[
				{"type":"relation","id":1,"tags":{},"members":[{"type":"area","ref":9,"role":""}]}
			]}`,
		}}
		_, err := NewAPIClient(getter, api).FetchRelation(context.Background(), 1)
		assert.ErrorContains(t, err, `unknown member type "area"`)
	})
}
