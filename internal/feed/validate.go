package feed

import "fmt"

// Problem is a consistency issue found in a Data instance. Problems are
// informational; a feed with problems is still written.
type Problem struct {
	Entity  string
	ID      string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s: %s", p.Entity, p.ID, p.Message)
}

// Validate checks the invariants of the model and returns every violation in
// a deterministic order.
func Validate(d *Data) []Problem {
	var problems []Problem

	for _, id := range SortedVariantIDs(d.RouteVariants) {
		variant := d.RouteVariants[id]
		if len(variant.StopIDs) < 2 {
			problems = append(problems, Problem{"route_variant", id, fmt.Sprintf("has %d stops, expected at least 2", len(variant.StopIDs))})
		}
		if _, ok := d.Routes[variant.RouteID]; !ok {
			problems = append(problems, Problem{"route_variant", id, fmt.Sprintf("references unknown route %q", variant.RouteID)})
		}
	}

	for _, id := range SortedTripIDs(d.Trips) {
		trip := d.Trips[id]
		if _, ok := d.RouteVariants[trip.VariantID]; !ok {
			problems = append(problems, Problem{"trip", id, fmt.Sprintf("references unknown route variant %q", trip.VariantID)})
		}
		for _, stopID := range trip.StopIDs {
			if _, ok := d.Stops[stopID]; !ok {
				problems = append(problems, Problem{"trip", id, fmt.Sprintf("references unknown stop %q", stopID)})
			}
		}
	}

	lastSequence := make(map[string]int)
	lastMinutes := make(map[string]int)
	for _, stopTime := range d.StopTimes {
		prev, seen := lastSequence[stopTime.TripID]
		switch {
		case !seen && stopTime.Sequence != 0:
			problems = append(problems, Problem{"stop_time", stopTime.TripID, fmt.Sprintf("first sequence is %d, expected 0", stopTime.Sequence)})
		case seen && stopTime.Sequence <= prev:
			problems = append(problems, Problem{"stop_time", stopTime.TripID, fmt.Sprintf("sequence %d does not increase after %d", stopTime.Sequence, prev)})
		case seen && stopTime.Minutes < lastMinutes[stopTime.TripID]:
			problems = append(problems, Problem{"stop_time", stopTime.TripID, fmt.Sprintf("time %s at sequence %d goes backwards", stopTime.ArrivalTime, stopTime.Sequence)})
		}
		if stopTime.ArrivalTime > stopTime.DepartureTime && len(stopTime.ArrivalTime) == len(stopTime.DepartureTime) {
			problems = append(problems, Problem{"stop_time", stopTime.TripID, fmt.Sprintf("arrival %s after departure %s", stopTime.ArrivalTime, stopTime.DepartureTime)})
		}
		lastSequence[stopTime.TripID] = stopTime.Sequence
		lastMinutes[stopTime.TripID] = stopTime.Minutes
	}

	return problems
}
