// Package operatorfeed turns the operator's schedule API into the timetable
// half of a feed: stops, routes, variants with leg geometry, the three weekly
// services, trips and stop times.
package operatorfeed

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/operator"
	"github.com/starsep/gtfs-tczew/internal/report"
	"github.com/starsep/gtfs-tczew/internal/utils"
)

type Config struct {
	// FeedDate is the YYYYMMDD first day of every service.
	FeedDate string
	EndDate  string
	// TimeOffsetMinutes shifts decoded departures to local wall clock time.
	TimeOffsetMinutes int
	// LastLegMinutes overrides the source's terminal leg durations, keyed by
	// "fromStopID-toStopID".
	LastLegMinutes map[string]int
}

// decodedDeparture is one departure with its minutes already decoded.
type decodedDeparture struct {
	dayType   DayType
	variantID string
	tripID    string
	minutes   int
}

// Producer implements feed.Producer over an operator.Source. Timetable slices
// are fetched once per (stop, route) and shared by Trips and StopTimes.
type Producer struct {
	source   operator.Source
	cfg      Config
	reporter *report.Reporter

	routes     []operator.Route
	departures map[operator.StopRoute][]decodedDeparture
}

var _ feed.Producer = (*Producer)(nil)

func New(source operator.Source, cfg Config, reporter *report.Reporter) *Producer {
	if cfg.EndDate == "" {
		cfg.EndDate = "20300101"
	}
	return &Producer{
		source:     source,
		cfg:        cfg,
		reporter:   reporter,
		departures: make(map[operator.StopRoute][]decodedDeparture),
	}
}

// Extract builds the operator feed.
func Extract(ctx context.Context, source operator.Source, cfg Config, reporter *report.Reporter) (*feed.Data, error) {
	return feed.Build(ctx, New(source, cfg, reporter))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func (p *Producer) Stops(ctx context.Context) (map[string]feed.Stop, error) {
	busStops, err := p.source.BusStops(ctx)
	if err != nil {
		return nil, err
	}
	stops := make(map[string]feed.Stop, len(busStops))
	for _, busStop := range busStops {
		id := formatID(busStop.ID)
		stops[id] = feed.Stop{ID: id, Name: busStop.Name, Lat: busStop.Lat, Lon: busStop.Lon}
	}
	return stops, nil
}

func (p *Producer) operatorRoutes(ctx context.Context) ([]operator.Route, error) {
	if p.routes != nil {
		return p.routes, nil
	}
	routes, err := p.source.Routes(ctx)
	if err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []operator.Route{}
	}
	p.routes = routes
	return routes, nil
}

func (p *Producer) Routes(ctx context.Context) (map[string]feed.Route, error) {
	routes, err := p.operatorRoutes(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]feed.Route, len(routes))
	for _, route := range routes {
		id := formatID(route.ID)
		result[id] = feed.Route{ID: id, Name: route.Name}
	}
	return result, nil
}

func (p *Producer) RouteVariants(ctx context.Context, _ map[string]feed.Stop, _ map[string]feed.Route) (map[string]feed.RouteVariant, error) {
	routes, err := p.operatorRoutes(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]feed.RouteVariant)
	for _, route := range routes {
		for _, variant := range route.Variants {
			id := formatID(variant.ID)
			stopIDs := make([]string, len(variant.StopIDs))
			for i, stopID := range variant.StopIDs {
				stopIDs[i] = formatID(stopID)
			}
			result[id] = feed.RouteVariant{
				RouteID: formatID(route.ID),
				ID:      id,
				ShapeID: id,
				Shape:   p.spliceLegs(route, variant),
				StopIDs: stopIDs,
				Name:    route.Name,
			}
		}
	}
	return result, nil
}

// spliceLegs concatenates the geometry of consecutive stop pairs.
func (p *Producer) spliceLegs(route operator.Route, variant operator.RouteVariant) []feed.LatLon {
	var shape []feed.LatLon
	for i := 1; i < len(variant.StopIDs); i++ {
		pair := operator.StopPair{From: variant.StopIDs[i-1], To: variant.StopIDs[i]}
		leg, ok := route.Legs[pair]
		if !ok {
			p.reporter.Warn(report.MissingLeg,
				fmt.Sprintf("route %s variant %d has no geometry between stops %s", route.Name, variant.ID, pair),
				"route", formatID(route.ID), "variant", formatID(variant.ID), "pair", pair.String())
			continue
		}
		shape = append(shape, leg...)
	}
	return shape
}

func (p *Producer) Services(context.Context) ([]feed.Service, error) {
	services := make([]feed.Service, 0, len(dayTypes))
	for _, dayType := range dayTypes {
		services = append(services, feed.Service{
			ID:        dayType.ServiceID(),
			Weekdays:  dayType.Weekdays(),
			StartDate: p.cfg.FeedDate,
			EndDate:   p.cfg.EndDate,
		})
	}
	return services, nil
}

// load fetches and decodes every selection not seen before.
func (p *Producer) load(ctx context.Context, selection []operator.StopRoute) error {
	var missing []operator.StopRoute
	for _, sr := range selection {
		if _, ok := p.departures[sr]; !ok {
			missing = append(missing, sr)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fetched, err := p.source.StopTimes(ctx, missing)
	if err != nil {
		return err
	}
	for _, sr := range missing {
		p.departures[sr] = nil
	}
	for _, stopTimes := range fetched {
		sr := operator.StopRoute{StopID: stopTimes.StopID, RouteID: stopTimes.RouteID}
		p.departures[sr] = append(p.departures[sr], p.decode(stopTimes)...)
	}
	return nil
}

// decode applies the day type lookup and the per-variant minute decoding to
// one timetable slice. Unknown day types are reported and skipped.
func (p *Producer) decode(stopTimes operator.StopTimes) []decodedDeparture {
	var result []decodedDeparture
	for _, slice := range stopTimes.DayTypes {
		dayType, err := ParseDayType(slice.Code)
		if err != nil {
			p.reporter.Error(report.DayTypeLookupFailure,
				fmt.Sprintf("stop %d route %d: %v", stopTimes.StopID, stopTimes.RouteID, err),
				"stop", formatID(stopTimes.StopID), "route", formatID(stopTimes.RouteID), "day_type", slice.Code)
			continue
		}
		firstRaw := make(map[int64]string)
		for _, entry := range slice.Entries {
			if _, ok := firstRaw[entry.VariantID]; !ok {
				firstRaw[entry.VariantID] = entry.Raw
			}
			minutes, err := DecodeMinutes(firstRaw[entry.VariantID], entry.Raw)
			if err == nil && p.beforeMidnight(minutes) {
				err = fmt.Errorf("departure %q falls %d minutes before midnight", entry.Raw, -p.wallMinutes(minutes))
			}
			if err != nil {
				p.reporter.Error(report.UnresolvedReference,
					fmt.Sprintf("stop %d route %d trip %s: %v", stopTimes.StopID, stopTimes.RouteID, entry.TripID, err),
					"stop", formatID(stopTimes.StopID), "trip", entry.TripID)
				continue
			}
			result = append(result, decodedDeparture{
				dayType:   dayType,
				variantID: formatID(entry.VariantID),
				tripID:    entry.TripID,
				minutes:   minutes,
			})
		}
	}
	return result
}

func (p *Producer) Trips(ctx context.Context, _ []feed.Service, variants map[string]feed.RouteVariant) (map[string]feed.Trip, error) {
	var selection []operator.StopRoute
	for _, id := range feed.SortedVariantIDs(variants) {
		sr, ok := p.stopRoute(variants[id].FirstStopID(), variants[id].RouteID)
		if ok {
			selection = append(selection, sr)
		}
	}
	if err := p.load(ctx, selection); err != nil {
		return nil, err
	}

	trips := make(map[string]feed.Trip)
	for _, id := range feed.SortedVariantIDs(variants) {
		variant := variants[id]
		sr, ok := p.stopRoute(variant.FirstStopID(), variant.RouteID)
		if !ok {
			continue
		}
		for _, departure := range p.departures[sr] {
			if departure.variantID != variant.ID {
				continue
			}
			trips[departure.tripID] = feed.Trip{
				ID:           departure.tripID,
				RouteID:      variant.RouteID,
				VariantID:    variant.ID,
				ShapeID:      variant.ShapeID,
				StartMinutes: departure.minutes,
				ServiceID:    departure.dayType.ServiceID(),
				StopIDs:      variant.StopIDs,
			}
		}
	}
	return trips, nil
}

func (p *Producer) stopRoute(stopID, routeID string) (operator.StopRoute, bool) {
	stop, err := parseID(stopID)
	if err != nil {
		return operator.StopRoute{}, false
	}
	route, err := parseID(routeID)
	if err != nil {
		return operator.StopRoute{}, false
	}
	return operator.StopRoute{StopID: stop, RouteID: route}, true
}

func (p *Producer) Shapes(_ context.Context, variants map[string]feed.RouteVariant) ([]feed.ShapePoint, error) {
	return feed.ShapesFromRouteVariants(variants), nil
}

func (p *Producer) wallMinutes(minutes int) int {
	return minutes + p.cfg.TimeOffsetMinutes
}

// beforeMidnight reports departures that have no GTFS time of the service day.
func (p *Producer) beforeMidnight(minutes int) bool {
	return p.wallMinutes(minutes) < 0
}

func (p *Producer) wallClock(minutes int) string {
	return utils.FormatGTFSTime(p.wallMinutes(minutes))
}

type stopTimeKey struct {
	tripID   string
	sequence int
}

func (p *Producer) StopTimes(ctx context.Context, variants map[string]feed.RouteVariant, trips map[string]feed.Trip) ([]feed.StopTime, error) {
	selection := p.stopRoutes(variants)
	if err := p.load(ctx, selection); err != nil {
		return nil, err
	}

	skipped := make(map[string]int)
	seen := make(map[stopTimeKey]int)
	var result []feed.StopTime
	for _, sr := range selection {
		stopID := formatID(sr.StopID)
		for _, departure := range p.departures[sr] {
			variant, ok := variants[departure.variantID]
			if !ok {
				skipped["unknown route variant"]++
				continue
			}
			if _, ok := trips[departure.tripID]; !ok {
				skipped["unknown trip"]++
				continue
			}
			sequence := slices.Index(variant.StopIDs, stopID)
			if sequence < 0 {
				skipped["stop outside its variant"]++
				continue
			}
			key := stopTimeKey{tripID: departure.tripID, sequence: sequence}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = len(result)
			clock := p.wallClock(departure.minutes)
			result = append(result, feed.StopTime{
				TripID:        departure.tripID,
				StopID:        stopID,
				Sequence:      sequence,
				Minutes:       departure.minutes,
				ArrivalTime:   clock,
				DepartureTime: clock,
			})
		}
	}
	for _, reason := range slices.Sorted(maps.Keys(skipped)) {
		p.reporter.Warn(report.UnresolvedReference,
			fmt.Sprintf("skipped %d departures: %s", skipped[reason], reason),
			"reason", reason, "count", strconv.Itoa(skipped[reason]))
	}

	terminals, err := p.terminalStopTimes(ctx, trips, result, seen)
	if err != nil {
		return nil, err
	}
	result = append(result, terminals...)
	feed.SortStopTimes(result)
	return result, nil
}

// stopRoutes lists every (stop, route) pair used by a variant, sorted.
func (p *Producer) stopRoutes(variants map[string]feed.RouteVariant) []operator.StopRoute {
	unique := make(map[operator.StopRoute]bool)
	for _, variant := range variants {
		for _, stopID := range variant.StopIDs {
			if sr, ok := p.stopRoute(stopID, variant.RouteID); ok {
				unique[sr] = true
			}
		}
	}
	return slices.SortedFunc(maps.Keys(unique), func(a, b operator.StopRoute) int {
		if c := cmp.Compare(a.RouteID, b.RouteID); c != 0 {
			return c
		}
		return cmp.Compare(a.StopID, b.StopID)
	})
}

func (p *Producer) lastLegMinutes(ctx context.Context) (map[string]int, error) {
	legs, err := p.source.LastLegTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading last leg times: %w", err)
	}
	result := make(map[string]int, len(legs)+len(p.cfg.LastLegMinutes))
	for pair, minutes := range legs {
		result[pair.String()] = minutes
	}
	maps.Copy(result, p.cfg.LastLegMinutes)
	return result, nil
}

// terminalStopTimes synthesizes the stop time at each trip's last stop, which
// the API never lists, from the second to last stop time plus the last leg.
func (p *Producer) terminalStopTimes(ctx context.Context, trips map[string]feed.Trip, stopTimes []feed.StopTime, index map[stopTimeKey]int) ([]feed.StopTime, error) {
	legs, err := p.lastLegMinutes(ctx)
	if err != nil {
		return nil, err
	}

	missing := make(map[string]bool)
	var result []feed.StopTime
	for _, tripID := range feed.SortedTripIDs(trips) {
		trip := trips[tripID]
		n := len(trip.StopIDs)
		if n < 2 {
			continue
		}
		if _, exists := index[stopTimeKey{tripID: tripID, sequence: n - 1}]; exists {
			continue
		}
		key := trip.StopIDs[n-2] + "-" + trip.StopIDs[n-1]
		legMinutes, ok := legs[key]
		if !ok {
			missing[key] = true
			continue
		}
		position, ok := index[stopTimeKey{tripID: tripID, sequence: n - 2}]
		if !ok {
			p.reporter.Warn(report.UnresolvedReference,
				fmt.Sprintf("trip %s has no departure at its second to last stop %s", tripID, trip.StopIDs[n-2]),
				"trip", tripID, "stop", trip.StopIDs[n-2])
			continue
		}
		minutes := stopTimes[position].Minutes + legMinutes
		if p.beforeMidnight(minutes) {
			p.reporter.Error(report.UnresolvedReference,
				fmt.Sprintf("trip %s arrives at %s %d minutes before midnight", tripID, trip.StopIDs[n-1], -p.wallMinutes(minutes)),
				"trip", tripID, "stop", trip.StopIDs[n-1])
			continue
		}
		clock := p.wallClock(minutes)
		result = append(result, feed.StopTime{
			TripID:        tripID,
			StopID:        trip.StopIDs[n-1],
			Sequence:      n - 1,
			Minutes:       minutes,
			ArrivalTime:   clock,
			DepartureTime: clock,
		})
	}
	if len(missing) > 0 {
		pairs := slices.Sorted(maps.Keys(missing))
		p.reporter.Error(report.LastLegDurationMissing,
			fmt.Sprintf("missing last leg times for bus stops: %s", strings.Join(pairs, ", ")),
			"pairs", strings.Join(pairs, ","))
	}
	return result, nil
}
