package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"

	"transit-safety-etl/internal/catalog"
	"transit-safety-etl/internal/model"
)

// TupleKey identifies one unit of segmentation work: a single assignment of a
// driver to a vehicle on a route. Tuples are independent of each other, so
// the runner fans them out across workers.
type TupleKey struct {
	RouteID      int
	VehicleID    int
	DriverID     int
	AssignmentID int
}

func (k TupleKey) String() string {
	return fmt.Sprintf("route=%d vehicle=%d driver=%d assignment=%d",
		k.RouteID, k.VehicleID, k.DriverID, k.AssignmentID)
}

// TupleResult records the outcome of one tuple for the run report. A non-nil
// Err means the tuple produced nothing; it never aborts the run.
type TupleResult struct {
	Key   TupleKey
	Trips int
	Err   error
}

// Runner drives segmentation across all (route, vehicle, driver, assignment)
// tuples of a run.
type Runner struct {
	Segmenter Segmenter
	// Workers bounds the segmentation pool. Zero means GOMAXPROCS.
	Workers int
}

type tupleJob struct {
	key        TupleKey
	route      *catalog.RouteStops
	assignment model.Assignment
	events     []model.StopEvent
}

type tupleOutcome struct {
	result TupleResult
	trips  []model.Trip
	stats  Stats
}

// Run segments every assignment's stop events into trips. Trip order in the
// returned slice is not significant; downstream aggregation is
// order-independent. The returned stats are the merged counters of all
// workers, and the report holds one entry per processed tuple.
func (r *Runner) Run(ctx context.Context, cat *catalog.Catalog, events []model.StopEvent,
	assignments []model.Assignment) ([]model.Trip, *Stats, []TupleResult) {

	stats := &Stats{}
	jobs := r.buildJobs(cat, events, assignments, stats)

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	jobCh := make(chan tupleJob)
	outCh := make(chan tupleOutcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				outCh <- r.processTuple(job)
			}
		}()
	}
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobCh <- job:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outCh)
	}()

	var trips []model.Trip
	report := make([]TupleResult, 0, len(jobs))
	for out := range outCh {
		stats.Merge(&out.stats)
		trips = append(trips, out.trips...)
		report = append(report, out.result)
		if out.result.Err != nil {
			log.Printf("tuple %s failed: %v", out.result.Key, out.result.Err)
		}
	}
	return trips, stats, report
}

// buildJobs groups stop events under their owning assignment. An event
// belongs to the assignment whose window half-openly contains its departure:
// start <= departed_at < end. With that rule a stop event on the boundary of
// two back-to-back shifts lands in exactly one of them.
func (r *Runner) buildJobs(cat *catalog.Catalog, events []model.StopEvent,
	assignments []model.Assignment, stats *Stats) []tupleJob {

	byRouteVehicle := make(map[[2]int][]model.StopEvent)
	for _, ev := range events {
		k := [2]int{ev.RouteID, ev.VehicleID}
		byRouteVehicle[k] = append(byRouteVehicle[k], ev)
	}
	for _, bucket := range byRouteVehicle {
		sort.Slice(bucket, func(i, j int) bool {
			if !bucket[i].ArrivedAt.Equal(bucket[j].ArrivedAt) {
				return bucket[i].ArrivedAt.Before(bucket[j].ArrivedAt)
			}
			return bucket[i].DepartedAt.Before(bucket[j].DepartedAt)
		})
	}

	skippedRoutes := make(map[int]bool)
	var jobs []tupleJob
	for _, a := range assignments {
		route, ok := cat.Route(a.RouteID)
		if !ok {
			if !skippedRoutes[a.RouteID] {
				skippedRoutes[a.RouteID] = true
				stats.RoutesSkipped++
				log.Printf("route %d has no stop definitions, skipping its assignments", a.RouteID)
			}
			continue
		}

		bucket := byRouteVehicle[[2]int{a.RouteID, a.VehicleID}]
		var window []model.StopEvent
		for _, ev := range bucket {
			if !ev.DepartedAt.Before(a.StartTime) && ev.DepartedAt.Before(a.EndTime) {
				window = append(window, ev)
			}
		}
		if len(window) == 0 {
			continue
		}
		jobs = append(jobs, tupleJob{
			key: TupleKey{
				RouteID:      a.RouteID,
				VehicleID:    a.VehicleID,
				DriverID:     a.DriverID,
				AssignmentID: a.AssignmentID,
			},
			route:      route,
			assignment: a,
			events:     window,
		})
	}
	return jobs
}

// processTuple segments one tuple's events. A panic in segmentation is
// contained here: the tuple is reported failed and the run continues.
func (r *Runner) processTuple(job tupleJob) (out tupleOutcome) {
	out.result.Key = job.key
	defer func() {
		if rec := recover(); rec != nil {
			out.trips = nil
			out.stats = Stats{TuplesProcessed: 1, TupleFailures: 1}
			out.result.Trips = 0
			out.result.Err = fmt.Errorf("segmentation panic: %v", rec)
		}
	}()

	out.stats.TuplesProcessed = 1
	trips := r.Segmenter.Segment(job.route, job.events, &out.stats)
	for i := range trips {
		trips[i].DriverID = job.assignment.DriverID
		trips[i].BusNumber = job.assignment.BusNumber
	}
	out.trips = trips
	out.result.Trips = len(trips)
	return out
}
