package pipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-safety-etl/internal/catalog"
	"transit-safety-etl/internal/model"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]model.Stop{
		{RouteID: 30, RouteName: "Route 30", StopID: 100, Heading: "North", Sequence: 1, IsTerminal: true},
		{RouteID: 30, RouteName: "Route 30", StopID: 1, Heading: "North", Sequence: 2},
		{RouteID: 30, RouteName: "Route 30", StopID: 2, Heading: "North", Sequence: 3},
		{RouteID: 30, RouteName: "Route 30", StopID: 3, Heading: "North", Sequence: 4},
		{RouteID: 30, RouteName: "Route 30", StopID: 100, Heading: "South", Sequence: 1, IsTerminal: true},
		{RouteID: 30, RouteName: "Route 30", StopID: 4, Heading: "South", Sequence: 2},
		{RouteID: 30, RouteName: "Route 30", StopID: 5, Heading: "South", Sequence: 3},
		{RouteID: 30, RouteName: "Route 30", StopID: 6, Heading: "South", Sequence: 4},
	})
	require.NoError(t, err)
	return cat
}

func assignment(t *testing.T, id, driver, bus int, start, end string) model.Assignment {
	t.Helper()
	return model.Assignment{
		AssignmentID: id,
		VehicleID:    7,
		RouteID:      30,
		DriverID:     driver,
		BusNumber:    bus,
		StartTime:    at(t, start),
		EndTime:      at(t, end),
	}
}

func TestRunnerSplitsShiftsAtTheBoundary(t *testing.T) {
	cat := testCatalog(t)

	// Two back-to-back shifts on the same vehicle. The second shift's first
	// terminal departure lands exactly on the changeover instant; the
	// half-open window hands it to the second driver only.
	events := []model.StopEvent{
		ev(t, 100, "07:58", "08:00"),
		ev(t, 1, "08:05", "08:06"),
		ev(t, 2, "08:08", "08:09"),
		ev(t, 3, "08:11", "08:12"),
		ev(t, 100, "08:15", "08:17"),

		ev(t, 100, "11:58", "12:00"),
		ev(t, 1, "12:05", "12:06"),
		ev(t, 2, "12:08", "12:09"),
		ev(t, 3, "12:11", "12:12"),
		ev(t, 100, "12:15", "12:17"),
	}
	assignments := []model.Assignment{
		assignment(t, 1, 501, 15301, "07:00", "12:00"),
		assignment(t, 2, 502, 15302, "12:00", "17:00"),
	}

	r := &Runner{Workers: 2}
	trips, stats, report := r.Run(context.Background(), cat, events, assignments)

	require.Len(t, trips, 2)
	sort.Slice(trips, func(i, j int) bool { return trips[i].StartTime.Before(trips[j].StartTime) })

	assert.Equal(t, 501, trips[0].DriverID)
	assert.Equal(t, 15301, trips[0].BusNumber)
	assert.Equal(t, 502, trips[1].DriverID)
	assert.Equal(t, 15302, trips[1].BusNumber)
	assert.Equal(t, at(t, "12:00"), trips[1].StartTime)

	assert.Equal(t, 2, stats.TuplesProcessed)
	assert.Equal(t, 0, stats.TupleFailures)
	assert.Equal(t, 2, stats.TripsEmitted)

	require.Len(t, report, 2)
	for _, res := range report {
		assert.NoError(t, res.Err)
		assert.Equal(t, 1, res.Trips)
	}
}

func TestRunnerSkipsRoutesWithoutDefinitions(t *testing.T) {
	cat := testCatalog(t)

	events := []model.StopEvent{
		{StopID: 100, RouteID: 99, VehicleID: 7, ArrivedAt: at(t, "08:00"), DepartedAt: at(t, "08:02")},
	}
	assignments := []model.Assignment{
		{AssignmentID: 1, VehicleID: 7, RouteID: 99, DriverID: 501,
			StartTime: at(t, "07:00"), EndTime: at(t, "12:00")},
		{AssignmentID: 2, VehicleID: 7, RouteID: 99, DriverID: 502,
			StartTime: at(t, "12:00"), EndTime: at(t, "17:00")},
	}

	r := &Runner{}
	trips, stats, report := r.Run(context.Background(), cat, events, assignments)

	assert.Empty(t, trips)
	assert.Empty(t, report)
	// Counted once per route, not once per assignment.
	assert.Equal(t, 1, stats.RoutesSkipped)
	assert.Equal(t, 0, stats.TuplesProcessed)
}

func TestRunnerIgnoresAssignmentsWithoutEvents(t *testing.T) {
	cat := testCatalog(t)
	assignments := []model.Assignment{assignment(t, 1, 501, 15301, "07:00", "12:00")}

	r := &Runner{}
	trips, stats, report := r.Run(context.Background(), cat, nil, assignments)

	assert.Empty(t, trips)
	assert.Empty(t, report)
	assert.Equal(t, 0, stats.TuplesProcessed)
}

func TestRunnerUnsortedInputEvents(t *testing.T) {
	cat := testCatalog(t)

	// Events arrive in file order, not time order; the runner sorts each
	// (route, vehicle) bucket before windowing.
	events := []model.StopEvent{
		ev(t, 3, "08:11", "08:12"),
		ev(t, 100, "07:58", "08:00"),
		ev(t, 2, "08:08", "08:09"),
		ev(t, 100, "08:15", "08:17"),
		ev(t, 1, "08:05", "08:06"),
	}
	assignments := []model.Assignment{assignment(t, 1, 501, 15301, "07:00", "12:00")}

	r := &Runner{}
	trips, stats, _ := r.Run(context.Background(), cat, events, assignments)

	require.Len(t, trips, 1)
	assert.Equal(t, "North", trips[0].Heading)
	assert.Equal(t, 1, stats.SegmentsValid)
}

func TestTupleKeyString(t *testing.T) {
	k := TupleKey{RouteID: 30, VehicleID: 7, DriverID: 501, AssignmentID: 9}
	assert.Equal(t, "route=30 vehicle=7 driver=501 assignment=9", k.String())
}

func TestStatsMerge(t *testing.T) {
	a := Stats{TuplesProcessed: 1, SegmentsValid: 2, SegmentsShort: 1, TripsEmitted: 3}
	b := Stats{TuplesProcessed: 2, SegmentsOversized: 1, WarningsAssigned: 4}
	a.Merge(&b)

	assert.Equal(t, 3, a.TuplesProcessed)
	assert.Equal(t, 2, a.SegmentsValid)
	assert.Equal(t, 3, a.TripsEmitted)
	assert.Equal(t, 4, a.WarningsAssigned)
	assert.Equal(t, 2, a.SegmentsDiscarded())
}
