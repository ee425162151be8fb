// Package merge reconciles the mapping and operator feeds into one. The
// operator is authoritative for identity and schedules, the mapping source
// for coordinates, names and geometry. Every disagreement is reported and
// resolved with a fallback; merging never fails on data.
package merge

import (
	"context"
	"maps"
	"slices"

	"github.com/starsep/gtfs-tczew/internal/feed"
	"github.com/starsep/gtfs-tczew/internal/report"
)

const (
	DefaultWarnDistanceMeters  = 100.0
	DefaultErrorDistanceMeters = 200.0
)

// Options are the stop distance thresholds. Zero values select the defaults.
type Options struct {
	WarnDistanceMeters  float64
	ErrorDistanceMeters float64
}

// Merger implements feed.Producer over two read-only upstream feeds.
type Merger struct {
	mapping  *feed.Data
	operator *feed.Data
	reporter *report.Reporter
	opts     Options

	// associations maps operator variant ids to the mapping variant adopted
	// through an identical stop sequence.
	associations map[string]string
}

var _ feed.Producer = (*Merger)(nil)

func New(mapping, operator *feed.Data, reporter *report.Reporter, opts Options) *Merger {
	if opts.WarnDistanceMeters <= 0 {
		opts.WarnDistanceMeters = DefaultWarnDistanceMeters
	}
	if opts.ErrorDistanceMeters <= 0 {
		opts.ErrorDistanceMeters = DefaultErrorDistanceMeters
	}
	return &Merger{
		mapping:      mapping,
		operator:     operator,
		reporter:     reporter,
		opts:         opts,
		associations: make(map[string]string),
	}
}

// Merge builds the merged feed.
func Merge(ctx context.Context, mapping, operator *feed.Data, reporter *report.Reporter, opts Options) (*feed.Data, map[string]string, error) {
	merger := New(mapping, operator, reporter, opts)
	data, err := feed.Build(ctx, merger)
	if err != nil {
		return nil, nil, err
	}
	return data, merger.Associations(), nil
}

// Associations returns a copy of the operator to mapping variant table filled
// by RouteVariants.
func (m *Merger) Associations() map[string]string {
	return maps.Clone(m.associations)
}

func (m *Merger) Services(context.Context) ([]feed.Service, error) {
	return slices.Clone(m.operator.Services), nil
}

// Trips copies the operator trips, pointing each at the shape of its merged
// variant.
func (m *Merger) Trips(_ context.Context, _ []feed.Service, variants map[string]feed.RouteVariant) (map[string]feed.Trip, error) {
	trips := make(map[string]feed.Trip, len(m.operator.Trips))
	for id, trip := range m.operator.Trips {
		trip.StopIDs = slices.Clone(trip.StopIDs)
		if variant, ok := variants[trip.VariantID]; ok {
			trip.ShapeID = variant.ShapeID
		}
		trips[id] = trip
	}
	return trips, nil
}

func (m *Merger) Shapes(_ context.Context, variants map[string]feed.RouteVariant) ([]feed.ShapePoint, error) {
	return feed.ShapesFromRouteVariants(variants), nil
}

func (m *Merger) StopTimes(context.Context, map[string]feed.RouteVariant, map[string]feed.Trip) ([]feed.StopTime, error) {
	return slices.Clone(m.operator.StopTimes), nil
}
