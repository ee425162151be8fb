package gtfsdb

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toNullString converts a string to sql.NullString
func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func stopRows(data *feed.Data) []Stop {
	rows := make([]Stop, 0, len(data.Stops))
	for _, id := range feed.SortedStopIDs(data.Stops) {
		stop := data.Stops[id]
		rows = append(rows, Stop{ID: stop.ID, Name: stop.Name, Lat: stop.Lat, Lon: stop.Lon})
	}
	return rows
}

func routeRows(data *feed.Data, agencyID string) []Route {
	rows := make([]Route, 0, len(data.Routes))
	for _, id := range feed.SortedRouteIDs(data.Routes) {
		route := data.Routes[id]
		rows = append(rows, Route{
			ID:        route.ID,
			AgencyID:  agencyID,
			ShortName: route.Name,
			LongName:  route.Name,
			Type:      feed.RouteTypeBus,
		})
	}
	return rows
}

func calendarRows(data *feed.Data) []Calendar {
	rows := make([]Calendar, 0, len(data.Services))
	for _, service := range data.Services {
		days := service.Weekdays
		rows = append(rows, Calendar{
			ServiceID: service.ID,
			Monday:    boolToInt(days[0]),
			Tuesday:   boolToInt(days[1]),
			Wednesday: boolToInt(days[2]),
			Thursday:  boolToInt(days[3]),
			Friday:    boolToInt(days[4]),
			Saturday:  boolToInt(days[5]),
			Sunday:    boolToInt(days[6]),
			StartDate: service.StartDate,
			EndDate:   service.EndDate,
		})
	}
	return rows
}

func tripRows(data *feed.Data) []Trip {
	withPoints := feed.ShapeIDsWithPoints(data.Shapes)
	rows := make([]Trip, 0, len(data.Trips))
	for _, id := range feed.SortedTripIDs(data.Trips) {
		trip := data.Trips[id]
		shapeID := trip.ShapeID
		if !withPoints[shapeID] {
			shapeID = ""
		}
		rows = append(rows, Trip{ID: trip.ID, RouteID: trip.RouteID, ServiceID: trip.ServiceID, ShapeID: shapeID})
	}
	return rows
}

func shapeRows(data *feed.Data) []Shape {
	rows := make([]Shape, 0, len(data.Shapes))
	for _, point := range data.Shapes {
		rows = append(rows, Shape{ID: point.ShapeID, Lat: point.Lat, Lon: point.Lon, Sequence: point.Sequence})
	}
	return rows
}

// stopTimeRows skips stop times of unknown trips, which the foreign key
// would reject.
func stopTimeRows(data *feed.Data) []StopTime {
	rows := make([]StopTime, 0, len(data.StopTimes))
	for _, st := range data.StopTimes {
		if _, ok := data.Trips[st.TripID]; !ok {
			continue
		}
		rows = append(rows, StopTime{
			TripID:        st.TripID,
			ArrivalTime:   st.ArrivalTime,
			DepartureTime: st.DepartureTime,
			StopID:        st.StopID,
			StopSequence:  st.Sequence,
			Timepoint:     1,
		})
	}
	return rows
}

func issueRows(issues []report.Issue) ([]Issue, error) {
	rows := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		attrs, err := json.Marshal(issue.Attrs)
		if err != nil {
			return nil, fmt.Errorf("error encoding issue attributes: %w", err)
		}
		rows = append(rows, Issue{
			Kind:    string(issue.Kind),
			Level:   issue.Level.String(),
			Message: issue.Message,
			Attrs:   string(attrs),
		})
	}
	return rows, nil
}
