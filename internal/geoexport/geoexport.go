// Package geoexport renders stops and route variants as GeoJSON for viewing
// the feed on a map.
package geoexport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	geojson "github.com/paulmach/go.geojson"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/logging"
)

const (
	StopsFile  = "stops.geojson"
	RoutesFile = "routes.geojson"
)

// Stops returns one point per stop, ordered by stop id.
func Stops(data *feed.Data) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	for _, id := range feed.SortedStopIDs(data.Stops) {
		stop := data.Stops[id]
		feature := geojson.NewPointFeature([]float64{stop.Lon, stop.Lat})
		feature.SetProperty("ref", stop.ID)
		feature.SetProperty("name", stop.Name)
		collection.AddFeature(feature)
	}
	return collection
}

// Routes returns one line string per route variant, ordered by variant id.
// Variants without geometry are left out.
func Routes(data *feed.Data) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	for _, id := range feed.SortedVariantIDs(data.RouteVariants) {
		variant := data.RouteVariants[id]
		if len(variant.Shape) < 2 {
			continue
		}
		coordinates := make([][]float64, len(variant.Shape))
		for i, point := range variant.Shape {
			coordinates[i] = []float64{point.Lon, point.Lat}
		}

		routeName := variant.RouteID
		if route, ok := data.Routes[variant.RouteID]; ok && route.Name != "" {
			routeName = route.Name
		}
		names := variant.StopNames(data.Stops)

		feature := geojson.NewLineStringFeature(coordinates)
		feature.SetProperty("name", "Bus "+routeName)
		feature.SetProperty("route", variant.RouteID)
		feature.SetProperty("variantId", variant.ID)
		if len(names) > 0 {
			feature.SetProperty("from", names[0])
			feature.SetProperty("to", names[len(names)-1])
		}
		collection.AddFeature(feature)
	}
	return collection
}

// Save writes StopsFile and RoutesFile into dir.
func Save(dir string, data *feed.Data, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dir, err)
	}
	for name, collection := range map[string]*geojson.FeatureCollection{
		StopsFile:  Stops(data),
		RoutesFile: Routes(data),
	} {
		content, err := collection.MarshalJSON()
		if err != nil {
			return fmt.Errorf("error encoding %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", name, err)
		}
		logging.LogOperation(logger, "geojson_written",
			slog.String("file", name),
			slog.Int("features", len(collection.Features)))
	}
	return nil
}
