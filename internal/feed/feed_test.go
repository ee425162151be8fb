package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapesFromRouteVariants(t *testing.T) {
	variants := map[string]RouteVariant{
		"b": {ID: "b", ShapeID: "b", Shape: []LatLon{{54.1, 18.7}, {54.2, 18.8}}},
		"a": {ID: "a", ShapeID: "a", Shape: []LatLon{{54.0, 18.6}, {54.01, 18.61}, {54.02, 18.62}}},
		"c": {ID: "c", ShapeID: "a", Shape: []LatLon{{1, 1}}},
	}

	shapes := ShapesFromRouteVariants(variants)

	require.Len(t, shapes, 5)
	assert.Equal(t, ShapePoint{ShapeID: "a", Lat: 54.0, Lon: 18.6, Sequence: 0}, shapes[0])
	assert.Equal(t, ShapePoint{ShapeID: "a", Lat: 54.02, Lon: 18.62, Sequence: 2}, shapes[2])
	assert.Equal(t, ShapePoint{ShapeID: "b", Lat: 54.1, Lon: 18.7, Sequence: 0}, shapes[3])
	assert.Equal(t, ShapePoint{ShapeID: "b", Lat: 54.2, Lon: 18.8, Sequence: 1}, shapes[4])

	withPoints := ShapeIDsWithPoints(shapes)
	assert.True(t, withPoints["a"])
	assert.True(t, withPoints["b"])
	assert.False(t, withPoints["c"])
}

func TestRouteVariantHelpers(t *testing.T) {
	variant := RouteVariant{StopIDs: []string{"1", "2", "3"}}
	stops := map[string]Stop{"1": {ID: "1", Name: "Rondo"}, "3": {ID: "3", Name: "Dworzec"}}

	assert.Equal(t, []string{"Rondo", "", "Dworzec"}, variant.StopNames(stops))
	assert.Equal(t, "1", variant.FirstStopID())
	assert.Equal(t, "3", variant.LastStopID())
	assert.Equal(t, "", RouteVariant{}.FirstStopID())
	assert.Equal(t, "", RouteVariant{}.LastStopID())
}

func TestSortStopTimes(t *testing.T) {
	stopTimes := []StopTime{
		{TripID: "2", Sequence: 1},
		{TripID: "1", Sequence: 2},
		{TripID: "2", Sequence: 0},
		{TripID: "1", Sequence: 0},
	}
	SortStopTimes(stopTimes)

	assert.Equal(t, []StopTime{
		{TripID: "1", Sequence: 0},
		{TripID: "1", Sequence: 2},
		{TripID: "2", Sequence: 0},
		{TripID: "2", Sequence: 1},
	}, stopTimes)
}

type stubProducer struct {
	calls   []string
	failOn  string
	stops   map[string]Stop
	variant RouteVariant
}

func (s *stubProducer) record(name string) error {
	s.calls = append(s.calls, name)
	if s.failOn == name {
		return errors.New("upstream unavailable")
	}
	return nil
}

func (s *stubProducer) Stops(context.Context) (map[string]Stop, error) {
	return s.stops, s.record("stops")
}

func (s *stubProducer) Routes(context.Context) (map[string]Route, error) {
	return map[string]Route{"r": {ID: "r"}}, s.record("routes")
}

func (s *stubProducer) RouteVariants(_ context.Context, stops map[string]Stop, routes map[string]Route) (map[string]RouteVariant, error) {
	if len(stops) != len(s.stops) || len(routes) != 1 {
		return nil, errors.New("dependencies not passed")
	}
	return map[string]RouteVariant{s.variant.ID: s.variant}, s.record("variants")
}

func (s *stubProducer) Services(context.Context) ([]Service, error) {
	return []Service{{ID: "WD"}}, s.record("services")
}

func (s *stubProducer) Trips(_ context.Context, services []Service, variants map[string]RouteVariant) (map[string]Trip, error) {
	return map[string]Trip{"t": {ID: "t", VariantID: s.variant.ID, ServiceID: services[0].ID}}, s.record("trips")
}

func (s *stubProducer) Shapes(_ context.Context, variants map[string]RouteVariant) ([]ShapePoint, error) {
	return ShapesFromRouteVariants(variants), s.record("shapes")
}

func (s *stubProducer) StopTimes(_ context.Context, _ map[string]RouteVariant, trips map[string]Trip) ([]StopTime, error) {
	return []StopTime{{TripID: trips["t"].ID}}, s.record("stop_times")
}

func TestBuild(t *testing.T) {
	t.Run("runs producer in dependency order", func(t *testing.T) {
		producer := &stubProducer{
			stops:   map[string]Stop{"1": {ID: "1"}, "2": {ID: "2"}},
			variant: RouteVariant{ID: "v", RouteID: "r", ShapeID: "v", Shape: []LatLon{{1, 2}}, StopIDs: []string{"1", "2"}},
		}

		data, err := Build(context.Background(), producer)
		require.NoError(t, err)

		assert.Equal(t, []string{"stops", "routes", "variants", "services", "trips", "shapes", "stop_times"}, producer.calls)
		assert.Len(t, data.Stops, 2)
		assert.Equal(t, "WD", data.Trips["t"].ServiceID)
		assert.Len(t, data.Shapes, 1)
		assert.Equal(t, 1, data.Counts()["stop_times"])
	})

	t.Run("wraps upstream failure", func(t *testing.T) {
		producer := &stubProducer{failOn: "services", variant: RouteVariant{ID: "v"}}

		data, err := Build(context.Background(), producer)
		assert.Nil(t, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error producing services")
		assert.Contains(t, err.Error(), "upstream unavailable")
	})
}

func TestValidate(t *testing.T) {
	data := &Data{
		Stops:  map[string]Stop{"1": {ID: "1"}, "2": {ID: "2"}},
		Routes: map[string]Route{"r": {ID: "r"}},
		RouteVariants: map[string]RouteVariant{
			"ok":    {ID: "ok", RouteID: "r", StopIDs: []string{"1", "2"}},
			"short": {ID: "short", RouteID: "x", StopIDs: []string{"1"}},
		},
		Trips: map[string]Trip{
			"t1": {ID: "t1", VariantID: "ok", StopIDs: []string{"1", "2"}},
			"t2": {ID: "t2", VariantID: "gone", StopIDs: []string{"1", "9"}},
		},
		StopTimes: []StopTime{
			{TripID: "t1", Sequence: 0, Minutes: 10, ArrivalTime: "00:10:00", DepartureTime: "00:10:00"},
			{TripID: "t1", Sequence: 1, Minutes: 5, ArrivalTime: "00:05:00", DepartureTime: "00:05:00"},
			{TripID: "t2", Sequence: 1, Minutes: 1, ArrivalTime: "00:01:00", DepartureTime: "00:01:00"},
		},
	}

	var messages []string
	for _, problem := range Validate(data) {
		messages = append(messages, problem.String())
	}

	assert.Equal(t, []string{
		`route_variant short: has 1 stops, expected at least 2`,
		`route_variant short: references unknown route "x"`,
		`trip t2: references unknown route variant "gone"`,
		`trip t2: references unknown stop "9"`,
		`stop_time t1: time 00:05:00 at sequence 1 goes backwards`,
		`stop_time t2: first sequence is 1, expected 0`,
	}, messages)
}
