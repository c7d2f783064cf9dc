package pipeline

import (
	"time"

	"transit-safety-etl/internal/catalog"
	"transit-safety-etl/internal/model"
)

// DefaultMinSegmentEvents is the smallest number of stop events a candidate
// segment may hold. A single event between two terminal visits is almost
// always a duplicated record of one physical stop, not a trip.
const DefaultMinSegmentEvents = 2

// Segmenter cuts one assignment's chronologically ordered stop events into
// directional trips. Terminal-stop visits mark the segment boundaries; the
// window edges act as virtual boundaries so that trips truncated by a shift
// change are still emitted.
type Segmenter struct {
	// MinSegmentEvents is the discard threshold for short segments.
	// Zero means DefaultMinSegmentEvents.
	MinSegmentEvents int
}

func (sg Segmenter) minEvents() int {
	if sg.MinSegmentEvents > 0 {
		return sg.MinSegmentEvents
	}
	return DefaultMinSegmentEvents
}

// Segment reconstructs trips from events, which must be sorted ascending by
// (ArrivedAt, DepartedAt) and belong to a single assignment window on
// route. Discarded segments only increment counters on stats; they never
// fail the call.
func (sg Segmenter) Segment(route *catalog.RouteStops, events []model.StopEvent, stats *Stats) []model.Trip {
	if len(events) == 0 {
		return nil
	}

	var trips []model.Trip
	for _, seg := range cutSegments(route.TerminalStopID, events) {
		trips = append(trips, sg.segmentTrips(route, events[seg.first:seg.last+1], stats)...)
	}
	stats.TripsEmitted += len(trips)
	return trips
}

// segment is an inclusive index range into the event sequence.
type segment struct {
	first, last int
}

// cutSegments splits the event sequence at every terminal-stop visit. The
// first and last events of the window count as boundaries even when they are
// not terminal visits, so partial edge trips are kept.
func cutSegments(terminalStopID int, events []model.StopEvent) []segment {
	var terminals []int
	for i, ev := range events {
		if ev.StopID == terminalStopID {
			terminals = append(terminals, i)
		}
	}

	last := len(events) - 1
	if len(terminals) == 0 {
		return []segment{{0, last}}
	}

	var segs []segment
	if terminals[0] > 0 {
		segs = append(segs, segment{0, terminals[0]})
	}
	for i := 0; i+1 < len(terminals); i++ {
		segs = append(segs, segment{terminals[i], terminals[i+1]})
	}
	if terminals[len(terminals)-1] < last {
		segs = append(segs, segment{terminals[len(terminals)-1], last})
	}
	if len(segs) == 0 {
		// A window holding only a terminal visit. Emit it degenerate so the
		// short-segment counter accounts for it.
		return []segment{{0, last}}
	}
	return segs
}

// segmentTrips classifies one candidate segment and emits zero, one or two
// trips. events holds the full segment including its boundary events.
func (sg Segmenter) segmentTrips(route *catalog.RouteStops, events []model.StopEvent, stats *Stats) []model.Trip {
	if len(events) < sg.minEvents() {
		stats.SegmentsShort++
		return nil
	}
	// More events than the route has stops cannot be a single round trip;
	// typically a bus that skipped the terminal between rounds.
	if route.StopCount() > 0 && len(events) > route.StopCount() {
		stats.SegmentsOversized++
		return nil
	}

	// Classify interior events by heading. Boundary events are terminal (or
	// window-edge) markers and stay unclassified.
	hA, hB := route.Headings[0], route.Headings[1]
	var idxA, idxB []int
	for i := 1; i < len(events)-1; i++ {
		switch route.HeadingOf(events[i].StopID) {
		case hA:
			idxA = append(idxA, i)
		case hB:
			idxB = append(idxB, i)
		default:
			// Unknown or unresolved stop id inside the segment; the whole
			// segment is untrustworthy.
			stats.SegmentsInvalid++
			return nil
		}
	}

	start := events[0].DepartedAt
	end := events[len(events)-1].ArrivedAt

	switch {
	case len(idxA) > 0 && len(idxB) > 0:
		// A clean round trip with no terminal record in the middle: all of
		// one heading followed by all of the other. The switch point is the
		// arrival at the last stop of the first run, so the two trips meet
		// with no gap and no overlap.
		if idxA[len(idxA)-1] < idxB[0] {
			return sg.emitPair(route, events, idxA, idxB, hA, hB, start, end, stats)
		}
		if idxB[len(idxB)-1] < idxA[0] {
			return sg.emitPair(route, events, idxB, idxA, hB, hA, start, end, stats)
		}
		stats.SegmentsIndeterminate++
		return nil

	case len(idxA) >= 2 && len(idxB) == 0:
		return sg.emitSingle(route, events[0], hA, len(idxA), start, end, stats)
	case len(idxB) >= 2 && len(idxA) == 0:
		return sg.emitSingle(route, events[0], hB, len(idxB), start, end, stats)

	default:
		stats.SegmentsIndeterminate++
		return nil
	}
}

// emitPair produces the two trips of a strictly separated round trip. The
// switch event is the last stop of the first directional run; the first trip
// closes and the second opens at its arrival time.
func (sg Segmenter) emitPair(route *catalog.RouteStops, events []model.StopEvent,
	firstIdx, secondIdx []int, firstHeading, secondHeading string,
	start, end time.Time, stats *Stats) []model.Trip {

	switchAt := events[firstIdx[len(firstIdx)-1]].ArrivedAt
	if !start.Before(switchAt) || !switchAt.Before(end) {
		stats.SegmentsIndeterminate++
		return nil
	}
	stats.SegmentsValid++
	vehicleID := events[0].VehicleID
	return []model.Trip{
		{
			RouteID:   route.RouteID,
			RouteName: route.RouteName,
			Heading:   firstHeading,
			VehicleID: vehicleID,
			StartTime: start,
			EndTime:   switchAt,
			StopCount: len(firstIdx),
		},
		{
			RouteID:   route.RouteID,
			RouteName: route.RouteName,
			Heading:   secondHeading,
			VehicleID: vehicleID,
			StartTime: switchAt,
			EndTime:   end,
			StopCount: len(secondIdx),
		},
	}
}

// emitSingle produces the one-heading trip spanning the whole segment.
func (sg Segmenter) emitSingle(route *catalog.RouteStops, first model.StopEvent,
	heading string, stopCount int, start, end time.Time, stats *Stats) []model.Trip {

	if !start.Before(end) {
		stats.SegmentsIndeterminate++
		return nil
	}
	stats.SegmentsValid++
	return []model.Trip{{
		RouteID:   route.RouteID,
		RouteName: route.RouteName,
		Heading:   heading,
		VehicleID: first.VehicleID,
		StartTime: start,
		EndTime:   end,
		StopCount: stopCount,
	}}
}
