package gtfsdb

// Agency represents a transit agency in the GTFS feed
type Agency struct {
	ID       string // agency_id
	Name     string // agency_name
	URL      string // agency_url
	Timezone string // agency_timezone
	Language string // agency_lang
}

// Calendar represents service dates for trips in the GTFS feed
type Calendar struct {
	ServiceID string // service_id
	Monday    int    // monday
	Tuesday   int    // tuesday
	Wednesday int    // wednesday
	Thursday  int    // thursday
	Friday    int    // friday
	Saturday  int    // saturday
	Sunday    int    // sunday
	StartDate string // start_date (YYYYMMDD)
	EndDate   string // end_date (YYYYMMDD)
}

// Route represents a transit route in the GTFS feed
type Route struct {
	ID        string // route_id
	AgencyID  string // agency_id
	ShortName string // route_short_name
	LongName  string // route_long_name
	Type      int    // route_type
}

// Shape represents points that define a vehicle's path
type Shape struct {
	ID       string  // shape_id
	Lat      float64 // shape_pt_lat
	Lon      float64 // shape_pt_lon
	Sequence int     // shape_pt_sequence
}

// Stop represents a bus stop in the GTFS feed
type Stop struct {
	ID   string  // stop_id
	Name string  // stop_name
	Lat  float64 // stop_lat
	Lon  float64 // stop_lon
}

// StopTime represents a vehicle arrival/departure at a specific stop in the GTFS feed
type StopTime struct {
	TripID        string // trip_id
	ArrivalTime   string // arrival_time (HH:MM:SS)
	DepartureTime string // departure_time (HH:MM:SS)
	StopID        string // stop_id
	StopSequence  int    // stop_sequence
	Timepoint     int    // timepoint
}

// Trip represents a journey made by a vehicle in the GTFS feed
type Trip struct {
	ID        string // trip_id
	RouteID   string // route_id
	ServiceID string // service_id
	ShapeID   string // shape_id
}

// Issue is a stored diagnostic of the run that produced the feed
type Issue struct {
	Kind    string
	Level   string
	Message string
	Attrs   string // JSON object
}
