package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

// JSONGetter fetches and decodes a JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Client implements Source against the rozklady.tczew.pl endpoints. A Client
// serves one generation run; build a new one to see updated timetables.
type Client struct {
	getter          JSONGetter
	baseURL         string
	timetableID     int
	averageSpeedKmh float64
	logger          *slog.Logger

	mu     sync.Mutex
	routes []Route
}

type ClientConfig struct {
	BaseURL     string
	TimetableID int
	// AverageSpeedKmh converts a last leg's drawn length into minutes.
	AverageSpeedKmh float64
}

func NewClient(getter JSONGetter, cfg ClientConfig, logger *slog.Logger) *Client {
	speed := cfg.AverageSpeedKmh
	if speed <= 0 {
		speed = 25
	}
	return &Client{
		getter:          getter,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		timetableID:     cfg.TimetableID,
		averageSpeedKmh: speed,
		logger:          logger,
	}
}

func (c *Client) get(ctx context.Context, path string) (array, error) {
	var raw json.RawMessage
	if err := c.getter.GetJSON(ctx, c.baseURL+path, &raw); err != nil {
		return nil, err
	}
	result, err := decodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

func (c *Client) BusStops(ctx context.Context) ([]BusStop, error) {
	path := fmt.Sprintf("/Home/GetMapBusStopList?q=&ttId=%d", c.timetableID)
	rows, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error fetching bus stops: %w", err)
	}
	stops := make([]BusStop, 0, len(rows))
	for i := range rows {
		row, err := rows.arrayAt(i)
		if err != nil {
			return nil, fmt.Errorf("bus stop %d: %w", i, err)
		}
		stop, err := parseBusStop(row)
		if err != nil {
			return nil, fmt.Errorf("bus stop %d: %w", i, err)
		}
		stops = append(stops, stop)
	}
	return stops, nil
}

func parseBusStop(row array) (BusStop, error) {
	var stop BusStop
	var err error
	if stop.ID, err = row.intAt(0); err != nil {
		return stop, err
	}
	if stop.Name, err = row.stringAt(1); err != nil {
		return stop, err
	}
	if stop.Lon, err = row.floatAt(4); err != nil {
		return stop, err
	}
	if stop.Lat, err = row.floatAt(5); err != nil {
		return stop, err
	}
	return stop, nil
}

// Routes lists every route with its variants. The result is memoized for the
// lifetime of the Client since both the extractor and LastLegTimes need it.
func (c *Client) Routes(ctx context.Context) ([]Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.routes != nil {
		return c.routes, nil
	}

	response, err := c.get(ctx, fmt.Sprintf("/Home/GetRouteList?ttId=%d", c.timetableID))
	if err != nil {
		return nil, fmt.Errorf("error fetching route list: %w", err)
	}
	list, err := response.arrayAt(0)
	if err != nil {
		return nil, fmt.Errorf("route list: %w", err)
	}

	routes := make([]Route, 0, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		id, err := list.intAt(i)
		if err != nil {
			return nil, fmt.Errorf("route list entry %d: %w", i/2, err)
		}
		name, err := list.stringAt(i + 1)
		if err != nil {
			return nil, fmt.Errorf("route list entry %d: %w", i/2, err)
		}
		route, err := c.tracks(ctx, id)
		if err != nil {
			return nil, err
		}
		route.Name = name
		routes = append(routes, route)
	}
	c.routes = routes
	return routes, nil
}

// tracks reads the variants and leg geometry of one route.
func (c *Client) tracks(ctx context.Context, routeID int64) (Route, error) {
	path := fmt.Sprintf("/Home/GetTracks?routeId=%d&ttId=%d&transits=1", routeID, c.timetableID)
	tracks, err := c.get(ctx, path)
	if err != nil {
		return Route{}, fmt.Errorf("error fetching tracks of route %d: %w", routeID, err)
	}
	route, err := parseTracks(routeID, tracks)
	if err != nil {
		return Route{}, fmt.Errorf("tracks of route %d: %w", routeID, err)
	}
	return route, nil
}

func parseTracks(routeID int64, tracks array) (Route, error) {
	route := Route{ID: routeID, Legs: make(map[StopPair][]feed.LatLon)}

	stopRows, err := tracks.arrayAt(0)
	if err != nil {
		return route, fmt.Errorf("stops: %w", err)
	}
	stopIDs := make([]int64, len(stopRows))
	for i := range stopRows {
		row, err := stopRows.arrayAt(i)
		if err != nil {
			return route, fmt.Errorf("stop %d: %w", i, err)
		}
		if stopIDs[i], err = row.intAt(0); err != nil {
			return route, fmt.Errorf("stop %d: %w", i, err)
		}
	}
	stopAt := func(index int64) (int64, error) {
		if index < 0 || index >= int64(len(stopIDs)) {
			return 0, fmt.Errorf("stop index %d out of range", index)
		}
		return stopIDs[index], nil
	}

	legs, err := tracks.arrayAt(2)
	if err != nil {
		return route, fmt.Errorf("legs: %w", err)
	}
	for i := range legs {
		leg, err := legs.arrayAt(i)
		if err != nil {
			return route, fmt.Errorf("leg %d: %w", i, err)
		}
		pair, points, err := parseLeg(leg, stopAt)
		if err != nil {
			return route, fmt.Errorf("leg %d: %w", i, err)
		}
		if _, exists := route.Legs[pair]; !exists {
			route.Legs[pair] = points
		}
	}

	variants, err := tracks.arrayAt(3)
	if err != nil {
		return route, fmt.Errorf("variants: %w", err)
	}
	for i := range variants {
		row, err := variants.arrayAt(i)
		if err != nil {
			return route, fmt.Errorf("variant %d: %w", i, err)
		}
		variant, err := parseVariant(row, stopAt)
		if err != nil {
			return route, fmt.Errorf("variant %d: %w", i, err)
		}
		route.Variants = append(route.Variants, variant)
	}
	return route, nil
}

func parseLeg(leg array, stopAt func(int64) (int64, error)) (StopPair, []feed.LatLon, error) {
	var pair StopPair
	fromIndex, err := leg.intAt(1)
	if err != nil {
		return pair, nil, err
	}
	toIndex, err := leg.intAt(2)
	if err != nil {
		return pair, nil, err
	}
	if pair.From, err = stopAt(fromIndex); err != nil {
		return pair, nil, err
	}
	if pair.To, err = stopAt(toIndex); err != nil {
		return pair, nil, err
	}
	coords, err := leg.arrayAt(3)
	if err != nil {
		return pair, nil, err
	}
	points := make([]feed.LatLon, 0, len(coords)/2)
	for j := 0; j+1 < len(coords); j += 2 {
		lat, err := coords.floatAt(j)
		if err != nil {
			return pair, nil, err
		}
		lon, err := coords.floatAt(j + 1)
		if err != nil {
			return pair, nil, err
		}
		points = append(points, feed.LatLon{Lat: lat, Lon: lon})
	}
	return pair, points, nil
}

func parseVariant(row array, stopAt func(int64) (int64, error)) (RouteVariant, error) {
	var variant RouteVariant
	var err error
	if variant.ID, err = row.intAt(0); err != nil {
		return variant, err
	}
	if variant.Direction, err = row.stringAt(3); err != nil {
		return variant, err
	}
	if variant.FirstStopName, err = row.stringAt(4); err != nil {
		return variant, err
	}
	if variant.LastStopName, err = row.stringAt(5); err != nil {
		return variant, err
	}
	sequences, err := row.arrayAt(6)
	if err != nil {
		return variant, err
	}
	indices, err := sequences.arrayAt(0)
	if err != nil {
		return variant, err
	}
	for k := range indices {
		index, err := indices.intAt(k)
		if err != nil {
			return variant, err
		}
		stopID, err := stopAt(index)
		if err != nil {
			return variant, err
		}
		variant.StopIDs = append(variant.StopIDs, stopID)
	}
	return variant, nil
}

func (c *Client) TimetableInformation(ctx context.Context) ([]Timetable, error) {
	rows, err := c.get(ctx, "/Home/GetTimetableInformation")
	if err != nil {
		return nil, fmt.Errorf("error fetching timetable information: %w", err)
	}
	timetables := make([]Timetable, 0, len(rows))
	for i := range rows {
		row, err := rows.arrayAt(i)
		if err != nil {
			return nil, fmt.Errorf("timetable %d: %w", i, err)
		}
		var timetable Timetable
		if timetable.ID, err = row.intAt(0); err != nil {
			return nil, fmt.Errorf("timetable %d: %w", i, err)
		}
		if timetable.Date, err = row.stringAt(1); err != nil {
			return nil, fmt.Errorf("timetable %d: %w", i, err)
		}
		timetables = append(timetables, timetable)
	}
	return timetables, nil
}

func (c *Client) StopTimes(ctx context.Context, selection []StopRoute) ([]StopTimes, error) {
	result := make([]StopTimes, 0, len(selection))
	for _, sr := range selection {
		path := fmt.Sprintf("/Home/GetBusStopTimeTable?busStopId=%d&routeId=%d&ttId=%d", sr.StopID, sr.RouteID, c.timetableID)
		timetable, err := c.get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("error fetching timetable of stop %d route %d: %w", sr.StopID, sr.RouteID, err)
		}
		stopTimes, err := parseStopTimes(sr, timetable)
		if err != nil {
			return nil, fmt.Errorf("timetable of stop %d route %d: %w", sr.StopID, sr.RouteID, err)
		}
		result = append(result, stopTimes)
	}
	return result, nil
}

func parseStopTimes(sr StopRoute, timetable array) (StopTimes, error) {
	result := StopTimes{StopID: sr.StopID, RouteID: sr.RouteID}
	dayTypes, err := timetable.arrayAt(3)
	if err != nil {
		return result, err
	}
	for i := range dayTypes {
		entry, err := dayTypes.arrayAt(i)
		if err != nil {
			return result, err
		}
		code, err := entry.stringAt(0)
		if err != nil {
			return result, err
		}
		departures, err := entry.arrayAt(4)
		if err != nil {
			return result, err
		}
		times := DayTypeTimes{Code: code}
		for j := range departures {
			departure, err := departures.arrayAt(j)
			if err != nil {
				return result, err
			}
			var raw RawStopTime
			if raw.VariantID, err = departure.intAt(0); err != nil {
				return result, err
			}
			if raw.TripID, err = departure.stringAt(1); err != nil {
				return result, err
			}
			if raw.Raw, err = departure.stringAt(2); err != nil {
				return result, err
			}
			times.Entries = append(times.Entries, raw)
		}
		result.DayTypes = append(result.DayTypes, times)
	}
	return result, nil
}

// LastLegTimes estimates the duration of each terminal leg from its drawn
// length at the configured average speed, rounded up to whole minutes.
// Terminal legs without geometry are left out.
func (c *Client) LastLegTimes(ctx context.Context) (map[StopPair]int, error) {
	routes, err := c.Routes(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[StopPair]int)
	for _, route := range routes {
		for _, variant := range route.Variants {
			if len(variant.StopIDs) < 2 {
				continue
			}
			pair := StopPair{From: variant.StopIDs[len(variant.StopIDs)-2], To: variant.StopIDs[len(variant.StopIDs)-1]}
			if _, done := result[pair]; done {
				continue
			}
			leg, ok := route.Legs[pair]
			if !ok || len(leg) < 2 {
				continue
			}
			result[pair] = EstimateMinutes(utils.PathLengthMeters(leg), c.averageSpeedKmh)
		}
	}
	if c.logger != nil {
		c.logger.Debug("estimated last legs", slog.Int("count", len(result)), slog.Float64("speed_kmh", c.averageSpeedKmh))
	}
	return result, nil
}

// EstimateMinutes converts a distance into whole minutes of travel, at least one.
func EstimateMinutes(meters, speedKmh float64) int {
	minutes := int(math.Ceil(meters / (speedKmh * 1000 / 60)))
	return max(minutes, 1)
}
