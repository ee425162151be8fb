package feed

import (
	"cmp"
	"maps"
	"slices"
)

// ShapesFromRouteVariants enumerates the geometry of every variant in path
// order. Variants are visited by id and a shape id shared by several variants
// is emitted once, from the first variant that carries it.
func ShapesFromRouteVariants(variants map[string]RouteVariant) []ShapePoint {
	var result []ShapePoint
	emitted := make(map[string]bool)
	for _, id := range SortedVariantIDs(variants) {
		variant := variants[id]
		if emitted[variant.ShapeID] {
			continue
		}
		emitted[variant.ShapeID] = true
		for index, point := range variant.Shape {
			result = append(result, ShapePoint{
				ShapeID:  variant.ShapeID,
				Lat:      point.Lat,
				Lon:      point.Lon,
				Sequence: index,
			})
		}
	}
	return result
}

// ShapeIDsWithPoints returns the set of shape ids that have at least one point.
func ShapeIDsWithPoints(shapes []ShapePoint) map[string]bool {
	result := make(map[string]bool)
	for _, point := range shapes {
		result[point.ShapeID] = true
	}
	return result
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func SortedStopIDs(stops map[string]Stop) []string {
	return sortedKeys(stops)
}

func SortedRouteIDs(routes map[string]Route) []string {
	return sortedKeys(routes)
}

func SortedVariantIDs(variants map[string]RouteVariant) []string {
	return sortedKeys(variants)
}

func SortedTripIDs(trips map[string]Trip) []string {
	return sortedKeys(trips)
}

// SortStopTimes orders stop times by trip and sequence in place.
func SortStopTimes(stopTimes []StopTime) {
	slices.SortStableFunc(stopTimes, func(a, b StopTime) int {
		if c := cmp.Compare(a.TripID, b.TripID); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}
