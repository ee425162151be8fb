package gtfswriter

import (
	"fmt"

	"github.com/jamespfennell/gtfs"
)

// Verification is what a GTFS consumer sees in a written archive.
type Verification struct {
	Counts   map[string]int
	Warnings []string
}

// Verify parses an archive produced by Write.
func Verify(content []byte) (*Verification, error) {
	staticData, err := gtfs.ParseStatic(content, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing written feed: %w", err)
	}

	stopTimes := 0
	for _, trip := range staticData.Trips {
		stopTimes += len(trip.StopTimes)
	}
	shapePoints := 0
	for _, shape := range staticData.Shapes {
		shapePoints += len(shape.Points)
	}

	verification := &Verification{
		Counts: map[string]int{
			"agencies":     len(staticData.Agencies),
			"routes":       len(staticData.Routes),
			"stops":        len(staticData.Stops),
			"services":     len(staticData.Services),
			"trips":        len(staticData.Trips),
			"shapes":       len(staticData.Shapes),
			"shape_points": shapePoints,
			"stop_times":   stopTimes,
		},
	}
	for _, warning := range staticData.Warnings {
		verification.Warnings = append(verification.Warnings, fmt.Sprintf("%v", warning))
	}
	return verification, nil
}

// Mismatches compares the parsed counts with the rows Write reported and
// describes every difference.
func (v *Verification) Mismatches(stats Stats) []string {
	expected := map[string]string{
		"stops.txt":      "stops",
		"routes.txt":     "routes",
		"trips.txt":      "trips",
		"calendar.txt":   "services",
		"shapes.txt":     "shape_points",
		"stop_times.txt": "stop_times",
	}
	var result []string
	for _, file := range []string{"stops.txt", "routes.txt", "trips.txt", "calendar.txt", "shapes.txt", "stop_times.txt"} {
		key := expected[file]
		if written, parsed := stats.Rows[file], v.Counts[key]; written != parsed {
			result = append(result, fmt.Sprintf("%s: wrote %d rows, parsed %d %s", file, written, parsed, key))
		}
	}
	return result
}
