package utils

import (
	"math"

	"github.com/starsep/gtfs-tczew/internal/feed"
)

const earthRadiusMeters = 6371008.8

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b feed.LatLon) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	deltaPhi := radians(b.Lat - a.Lat)
	deltaLambda := radians(b.Lon - a.Lon)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PathLengthMeters sums the distances between consecutive points.
func PathLengthMeters(path []feed.LatLon) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += DistanceMeters(path[i-1], path[i])
	}
	return total
}

// BearingBetweenPoints calculates the bearing in degrees from a to b
func BearingBetweenPoints(a, b feed.LatLon) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	deltaLon := radians(b.Lon - a.Lon)

	y := math.Sin(deltaLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLon)

	theta := math.Atan2(y, x)
	return math.Mod(theta*180/math.Pi+360, 360)
}

// BearingToCompass converts a bearing (0-360°) to 8-point compass direction
func BearingToCompass(bearing float64) string {
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	index := int((bearing+22.5)/45.0) % 8
	return directions[index]
}

// CompassDirection reports where b lies as seen from a.
func CompassDirection(a, b feed.LatLon) string {
	return BearingToCompass(BearingBetweenPoints(a, b))
}

// BoundingBox returns a box enclosing every point within radius meters of
// center. 1 degree of latitude is about 111km; a degree of longitude shrinks
// with the cosine of the latitude.
func BoundingBox(center feed.LatLon, radius float64) (minLat, minLon, maxLat, maxLon float64) {
	latDegreeInMeters := 111000.0
	lonDegreeInMeters := 111000.0 * math.Cos(radians(center.Lat))

	latRadiusDegrees := radius / latDegreeInMeters
	lonRadiusDegrees := radius / lonDegreeInMeters
	return center.Lat - latRadiusDegrees, center.Lon - lonRadiusDegrees,
		center.Lat + latRadiusDegrees, center.Lon + lonRadiusDegrees
}
