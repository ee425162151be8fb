// Package gtfswriter serializes a feed.Data into a GTFS static ZIP archive and
// verifies the result by parsing it back.
package gtfswriter

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"

	"github.com/patrickbr/gtfsparser"
	gtfsmodel "github.com/patrickbr/gtfsparser/gtfs"
	patrickbr "github.com/patrickbr/gtfswriter"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/logging"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
}

// Attribution is one row of attributions.txt.
type Attribution struct {
	OrganizationName string
	IsProducer       bool
	IsOperator       bool
	IsAuthority      bool
	URL              string
}

// DefaultAttributions credits the operator timetable and OpenStreetMap.
func DefaultAttributions() []Attribution {
	return []Attribution{
		{OrganizationName: "Data from Tczew public transport website", IsAuthority: true, URL: "http://rozklady.tczew.pl/"},
		{OrganizationName: "Bus shapes based on data by: © OpenStreetMap contributors (ODbL license)", IsAuthority: true, URL: "https://www.openstreetmap.org/copyright/"},
	}
}

// Metadata is everything written that does not come from the feed itself.
type Metadata struct {
	Agency        Agency
	PublisherName string
	PublisherURL  string
	Lang          string
	FeedVersion   string // YYYYMMDD
	Attributions  []Attribution
}

// Stats counts the data rows written per file.
type Stats struct {
	Rows             map[string]int
	SkippedStopTimes int
}

// noTimezone leaves stop_timezone empty; the zero Timezone is a real zone.
var noTimezone, _ = gtfsmodel.NewTimezone("")

// noDistance leaves shape_dist_traveled empty.
var noDistance = float32(math.NaN())

// Write writes the archive to w. Stop times of unknown trips or stops are
// left out and counted in Stats.
func Write(w io.Writer, data *feed.Data, meta Metadata) (stats Stats, err error) {
	dir, err := os.MkdirTemp("", "gtfs-tczew-*")
	if err != nil {
		return stats, fmt.Errorf("error creating scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "gtfs.zip")
	stats, err = writeArchive(path, data, meta)
	if err != nil {
		return stats, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("error reading written feed: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return stats, fmt.Errorf("error copying written feed: %w", err)
	}
	return stats, nil
}

// WriteFile writes the archive next to path and renames it into place, so
// readers never observe a partial file.
func WriteFile(path string, data *feed.Data, meta Metadata, logger *slog.Logger) (stats Stats, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return stats, fmt.Errorf("error creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return stats, fmt.Errorf("error creating temporary file: %w", err)
	}
	logging.SafeCloseWithLogging(tmp, logger, "close_gtfs_zip")
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	stats, err = writeArchive(tmp.Name(), data, meta)
	if err != nil {
		return stats, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return stats, fmt.Errorf("error moving feed into place: %w", err)
	}
	return stats, nil
}

// writeArchive needs path to exist as a regular file, otherwise the library
// writes a directory of CSV files instead of a ZIP.
func writeArchive(path string, data *feed.Data, meta Metadata) (Stats, error) {
	if _, err := os.Stat(path); err != nil {
		f, err := os.Create(path)
		if err != nil {
			return Stats{}, fmt.Errorf("error creating %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return Stats{}, fmt.Errorf("error closing %s: %w", path, err)
		}
	}

	gtfsFeed, stats, err := buildFeed(data, meta)
	if err != nil {
		return stats, err
	}
	writer := &patrickbr.Writer{Sorted: true, ExplicitCalendar: true, DontGarbageCollect: true}
	if err := writer.Write(gtfsFeed, path); err != nil {
		return stats, fmt.Errorf("error writing feed: %w", err)
	}
	return stats, nil
}

func parseURL(field, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return parsed, nil
}

func parseDate(field, raw string) (gtfsmodel.Date, error) {
	parsed, err := utils.ParseGTFSDate(raw)
	if err != nil {
		return gtfsmodel.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return gtfsmodel.GetGtfsDateFromTime(parsed), nil
}

func parseTime(raw string) (gtfsmodel.Time, error) {
	var hour, minute, second int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d", &hour, &minute, &second); err != nil {
		return gtfsmodel.Time{}, fmt.Errorf("invalid GTFS time %q: %w", raw, err)
	}
	if hour < 0 || hour > math.MaxInt8 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return gtfsmodel.Time{}, fmt.Errorf("invalid GTFS time %q", raw)
	}
	return gtfsmodel.Time{Hour: int8(hour), Minute: int8(minute), Second: int8(second)}, nil
}

// buildFeed maps data onto the gtfsparser model the writer serializes.
func buildFeed(data *feed.Data, meta Metadata) (*gtfsparser.Feed, Stats, error) {
	stats := Stats{Rows: make(map[string]int)}
	out := gtfsparser.NewFeed()

	agency, err := buildAgency(meta.Agency)
	if err != nil {
		return nil, stats, err
	}
	out.Agencies[agency.Id] = agency

	for _, stop := range data.Stops {
		out.Stops[stop.ID] = &gtfsmodel.Stop{
			Id:       stop.ID,
			Name:     stop.Name,
			Lat:      float32(stop.Lat),
			Lon:      float32(stop.Lon),
			Timezone: noTimezone,
		}
	}

	for _, route := range data.Routes {
		out.Routes[route.ID] = &gtfsmodel.Route{
			Id:                  route.ID,
			Agency:              agency,
			Short_name:          route.Name,
			Long_name:           route.Name,
			Type:                feed.RouteTypeBus,
			Sort_order:          -1,
			Continuous_pickup:   1,
			Continuous_drop_off: 1,
		}
	}

	for _, point := range data.Shapes {
		shape, ok := out.Shapes[point.ShapeID]
		if !ok {
			shape = &gtfsmodel.Shape{Id: point.ShapeID}
			out.Shapes[point.ShapeID] = shape
		}
		shape.Points = append(shape.Points, gtfsmodel.ShapePoint{
			Lat:           float32(point.Lat),
			Lon:           float32(point.Lon),
			Sequence:      uint32(point.Sequence),
			Dist_traveled: noDistance,
		})
	}

	for _, service := range data.Services {
		s := gtfsmodel.EmptyService()
		s.SetId(service.ID)
		for i, active := range service.Weekdays {
			// Daymap counts from Sunday.
			s.SetDaymap((i+1)%7, active)
		}
		start, err := parseDate("service "+service.ID+" start", service.StartDate)
		if err != nil {
			return nil, stats, err
		}
		end, err := parseDate("service "+service.ID+" end", service.EndDate)
		if err != nil {
			return nil, stats, err
		}
		s.SetStart_date(start)
		s.SetEnd_date(end)
		out.Services[service.ID] = s
	}

	for _, trip := range data.Trips {
		route, ok := out.Routes[trip.RouteID]
		if !ok {
			return nil, stats, fmt.Errorf("trip %s: unknown route %s", trip.ID, trip.RouteID)
		}
		service, ok := out.Services[trip.ServiceID]
		if !ok {
			return nil, stats, fmt.Errorf("trip %s: unknown service %s", trip.ID, trip.ServiceID)
		}
		headsign := ""
		out.Trips[trip.ID] = &gtfsmodel.Trip{
			Id:           trip.ID,
			Route:        route,
			Service:      service,
			Headsign:     &headsign,
			Shape:        out.Shapes[trip.ShapeID],
			Direction_id: -1,
		}
	}

	sorted := append([]feed.StopTime(nil), data.StopTimes...)
	feed.SortStopTimes(sorted)
	written := 0
	for _, st := range sorted {
		trip, knownTrip := out.Trips[st.TripID]
		stop, knownStop := out.Stops[st.StopID]
		if !knownTrip || !knownStop {
			stats.SkippedStopTimes++
			continue
		}
		arrival, err := parseTime(st.ArrivalTime)
		if err != nil {
			return nil, stats, fmt.Errorf("trip %s: %w", st.TripID, err)
		}
		departure, err := parseTime(st.DepartureTime)
		if err != nil {
			return nil, stats, fmt.Errorf("trip %s: %w", st.TripID, err)
		}
		headsign := ""
		var row gtfsmodel.StopTime
		row.SetStop(stop)
		row.SetSequence(st.Sequence)
		row.SetArrival_time(arrival)
		row.SetDeparture_time(departure)
		row.SetHeadsign(&headsign)
		row.SetShape_dist_traveled(noDistance)
		row.SetContinuous_pickup(1)
		row.SetContinuous_drop_off(1)
		row.SetTimepoint(true)
		trip.StopTimes = append(trip.StopTimes, row)
		written++
	}

	for i, a := range meta.Attributions {
		attributionURL, err := parseURL("attribution url", a.URL)
		if err != nil {
			return nil, stats, err
		}
		out.Attributions = append(out.Attributions, &gtfsmodel.Attribution{
			Id:                fmt.Sprint(i + 1),
			Organization_name: a.OrganizationName,
			Is_producer:       a.IsProducer,
			Is_operator:       a.IsOperator,
			Is_authority:      a.IsAuthority,
			Url:               attributionURL,
		})
	}

	publisherURL, err := parseURL("publisher url", meta.PublisherURL)
	if err != nil {
		return nil, stats, err
	}
	out.FeedInfos = append(out.FeedInfos, &gtfsmodel.FeedInfo{
		Publisher_name: meta.PublisherName,
		Publisher_url:  publisherURL,
		Lang:           meta.Lang,
		Version:        meta.FeedVersion,
	})

	shapePoints := 0
	for _, shape := range out.Shapes {
		shapePoints += len(shape.Points)
	}
	stats.Rows["agency.txt"] = len(out.Agencies)
	stats.Rows["stops.txt"] = len(out.Stops)
	stats.Rows["routes.txt"] = len(out.Routes)
	stats.Rows["trips.txt"] = len(out.Trips)
	stats.Rows["shapes.txt"] = shapePoints
	stats.Rows["calendar.txt"] = len(out.Services)
	stats.Rows["stop_times.txt"] = written
	stats.Rows["attributions.txt"] = len(out.Attributions)
	stats.Rows["feed_info.txt"] = len(out.FeedInfos)
	return out, stats, nil
}

func buildAgency(agency Agency) (*gtfsmodel.Agency, error) {
	agencyURL, err := parseURL("agency url", agency.URL)
	if err != nil {
		return nil, err
	}
	timezone, err := gtfsmodel.NewTimezone(agency.Timezone)
	if err != nil {
		return nil, fmt.Errorf("agency timezone: %w", err)
	}
	lang, err := gtfsmodel.NewLanguageISO6391(agency.Lang)
	if err != nil {
		return nil, fmt.Errorf("agency lang: %w", err)
	}
	return &gtfsmodel.Agency{
		Id:       agency.ID,
		Name:     agency.Name,
		Url:      agencyURL,
		Timezone: timezone,
		Lang:     lang,
	}, nil
}
