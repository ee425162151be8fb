// Package operator reads the Tczew bus operator's timetable API.
package operator

import (
	"context"
	"fmt"

	"github.com/starsep/gtfs-tczew/internal/feed"
)

type BusStop struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

// StopPair is a directed leg between two consecutive stops.
type StopPair struct {
	From int64
	To   int64
}

func (p StopPair) String() string {
	return fmt.Sprintf("%d-%d", p.From, p.To)
}

type RouteVariant struct {
	ID            int64
	Direction     string
	FirstStopName string
	LastStopName  string
	StopIDs       []int64
}

type Route struct {
	ID       int64
	Name     string
	Variants []RouteVariant
	// Legs holds the drawn geometry between consecutive stops of any variant.
	Legs map[StopPair][]feed.LatLon
}

type Timetable struct {
	ID   int64
	Date string
}

// StopRoute selects the departures of one route at one stop.
type StopRoute struct {
	StopID  int64
	RouteID int64
}

// RawStopTime is one departure exactly as the API encodes it.
type RawStopTime struct {
	VariantID int64
	TripID    string
	Raw       string
}

// DayTypeTimes are the departures of one day type (PW, SB, ND) in API order.
type DayTypeTimes struct {
	Code    string
	Entries []RawStopTime
}

type StopTimes struct {
	StopID   int64
	RouteID  int64
	DayTypes []DayTypeTimes
}

// Source is the operator API as seen by the extractor.
type Source interface {
	BusStops(ctx context.Context) ([]BusStop, error)
	Routes(ctx context.Context) ([]Route, error)
	TimetableInformation(ctx context.Context) ([]Timetable, error)
	StopTimes(ctx context.Context, selection []StopRoute) ([]StopTimes, error)
	// LastLegTimes returns the travel time in minutes to the terminal stop of
	// each variant, keyed by (second to last, last) stop.
	LastLegTimes(ctx context.Context) (map[StopPair]int, error)
}
