package geoexport

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starsep/gtfs-tczew/internal/feed"
)

func sampleData() *feed.Data {
	return &feed.Data{
		Stops: map[string]feed.Stop{
			"102": {ID: "102", Name: "Rondo", Lat: 54.095, Lon: 18.79},
			"101": {ID: "101", Name: "Dworzec PKP", Lat: 54.088, Lon: 18.798},
		},
		Routes: map[string]feed.Route{"1": {ID: "1", Name: "7A"}},
		RouteVariants: map[string]feed.RouteVariant{
			"11": {
				RouteID: "1", ID: "11", ShapeID: "11",
				Shape:   []feed.LatLon{{Lat: 54.088, Lon: 18.798}, {Lat: 54.095, Lon: 18.79}},
				StopIDs: []string{"101", "102"},
			},
			"12": {RouteID: "1", ID: "12", StopIDs: []string{"102", "101"}},
		},
	}
}

func TestStops(t *testing.T) {
	collection := Stops(sampleData())

	require.Len(t, collection.Features, 2)
	first := collection.Features[0]
	assert.Equal(t, []float64{18.798, 54.088}, first.Geometry.Point)
	assert.Equal(t, "101", first.PropertyMustString("ref"))
	assert.Equal(t, "Dworzec PKP", first.PropertyMustString("name"))
	assert.Equal(t, "102", collection.Features[1].PropertyMustString("ref"))
}

func TestRoutes(t *testing.T) {
	collection := Routes(sampleData())

	require.Len(t, collection.Features, 1)
	feature := collection.Features[0]
	assert.Equal(t, [][]float64{{18.798, 54.088}, {18.79, 54.095}}, feature.Geometry.LineString)
	assert.Equal(t, "Bus 7A", feature.PropertyMustString("name"))
	assert.Equal(t, "11", feature.PropertyMustString("variantId"))
	assert.Equal(t, "Dworzec PKP", feature.PropertyMustString("from"))
	assert.Equal(t, "Rondo", feature.PropertyMustString("to"))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "geojson")

	require.NoError(t, Save(dir, sampleData(), slog.New(slog.DiscardHandler)))

	content, err := os.ReadFile(filepath.Join(dir, StopsFile))
	require.NoError(t, err)
	stops, err := geojson.UnmarshalFeatureCollection(content)
	require.NoError(t, err)
	assert.Len(t, stops.Features, 2)

	content, err = os.ReadFile(filepath.Join(dir, RoutesFile))
	require.NoError(t, err)
	routes, err := geojson.UnmarshalFeatureCollection(content)
	require.NoError(t, err)
	require.Len(t, routes.Features, 1)
	assert.Equal(t, "7A", routes.Features[0].PropertyMustString("name")[4:])
}
