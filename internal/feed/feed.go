// Package feed holds the GTFS-shaped transit model shared by the mapping
// extractor, the operator extractor and the merge engine.
package feed

// LatLon is a WGS84 coordinate.
type LatLon struct {
	Lat float64
	Lon float64
}

// Stop corresponds to a single row in stops.txt.
type Stop struct {
	ID   string // stop_id
	Name string // stop_name
	Lat  float64
	Lon  float64
}

// Position returns the stop coordinate.
func (s Stop) Position() LatLon {
	return LatLon{Lat: s.Lat, Lon: s.Lon}
}

// RouteTypeBus is the routes.txt route_type of every route in the feed.
const RouteTypeBus = 3

// Route corresponds to a single row in routes.txt.
type Route struct {
	ID   string // route_id
	Name string // route_short_name
}

// RouteVariant is one concrete path and stop sequence of a route.
type RouteVariant struct {
	RouteID string
	ID      string
	ShapeID string
	Shape   []LatLon
	StopIDs []string
	Name    string
}

// StopNames resolves the variant's stop ids to names, leaving unknown ids empty.
func (v RouteVariant) StopNames(stops map[string]Stop) []string {
	names := make([]string, len(v.StopIDs))
	for i, id := range v.StopIDs {
		names[i] = stops[id].Name
	}
	return names
}

// FirstStopID returns the first stop of the variant or "" for an empty variant.
func (v RouteVariant) FirstStopID() string {
	if len(v.StopIDs) == 0 {
		return ""
	}
	return v.StopIDs[0]
}

// LastStopID returns the terminal stop of the variant or "" for an empty variant.
func (v RouteVariant) LastStopID() string {
	if len(v.StopIDs) == 0 {
		return ""
	}
	return v.StopIDs[len(v.StopIDs)-1]
}

// Trip is one scheduled run of a route variant.
type Trip struct {
	ID           string // trip_id
	RouteID      string
	VariantID    string
	ShapeID      string
	StartMinutes int
	ServiceID    string
	StopIDs      []string
}

// Service corresponds to a single row in calendar.txt.
type Service struct {
	ID        string
	Weekdays  [7]bool // Monday first
	StartDate string  // YYYYMMDD
	EndDate   string  // YYYYMMDD
}

// StopTime corresponds to a single row in stop_times.txt.
type StopTime struct {
	TripID        string
	StopID        string
	Sequence      int
	Minutes       int
	ArrivalTime   string // HH:MM:SS, may exceed 24:00:00
	DepartureTime string
}

// ShapePoint corresponds to a single row in shapes.txt.
type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence int
}

// Data is one complete instance of the model. Whoever holds it owns it; it is
// never modified after being handed to the next stage.
type Data struct {
	Stops         map[string]Stop
	Routes        map[string]Route
	RouteVariants map[string]RouteVariant
	Trips         map[string]Trip
	Shapes        []ShapePoint
	Services      []Service
	StopTimes     []StopTime
}

// Counts summarises the size of the data set for logging.
func (d *Data) Counts() map[string]int {
	return map[string]int{
		"stops":          len(d.Stops),
		"routes":         len(d.Routes),
		"route_variants": len(d.RouteVariants),
		"trips":          len(d.Trips),
		"shape_points":   len(d.Shapes),
		"services":       len(d.Services),
		"stop_times":     len(d.StopTimes),
	}
}
