package feed

import (
	"context"
	"fmt"
)

// Producer is implemented by everything that can emit a Data instance: the
// mapping extractor, the operator extractor and the merge engine. Methods
// receive the pieces produced earlier so implementations stay stateless.
// Errors are reserved for fatal upstream failures.
type Producer interface {
	Stops(ctx context.Context) (map[string]Stop, error)
	Routes(ctx context.Context) (map[string]Route, error)
	RouteVariants(ctx context.Context, stops map[string]Stop, routes map[string]Route) (map[string]RouteVariant, error)
	Services(ctx context.Context) ([]Service, error)
	Trips(ctx context.Context, services []Service, variants map[string]RouteVariant) (map[string]Trip, error)
	Shapes(ctx context.Context, variants map[string]RouteVariant) ([]ShapePoint, error)
	StopTimes(ctx context.Context, variants map[string]RouteVariant, trips map[string]Trip) ([]StopTime, error)
}

// Build runs a producer in dependency order and assembles a new Data.
func Build(ctx context.Context, p Producer) (*Data, error) {
	stops, err := p.Stops(ctx)
	if err != nil {
		return nil, fmt.Errorf("error producing stops: %w", err)
	}
	routes, err := p.Routes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error producing routes: %w", err)
	}
	variants, err := p.RouteVariants(ctx, stops, routes)
	if err != nil {
		return nil, fmt.Errorf("error producing route variants: %w", err)
	}
	services, err := p.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("error producing services: %w", err)
	}
	trips, err := p.Trips(ctx, services, variants)
	if err != nil {
		return nil, fmt.Errorf("error producing trips: %w", err)
	}
	shapes, err := p.Shapes(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("error producing shapes: %w", err)
	}
	stopTimes, err := p.StopTimes(ctx, variants, trips)
	if err != nil {
		return nil, fmt.Errorf("error producing stop times: %w", err)
	}

	return &Data{
		Stops:         stops,
		Routes:        routes,
		RouteVariants: variants,
		Trips:         trips,
		Shapes:        shapes,
		Services:      services,
		StopTimes:     stopTimes,
	}, nil
}
