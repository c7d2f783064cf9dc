package ingest

import (
	"log"
	"sort"
	"time"

	"transit-safety-etl/internal/model"
)

// StopTimesMarker identifies AVL stop-event export files within a data tree.
const StopTimesMarker = "_StopTimes_"

// ReadStopTimes loads every stop-event export under root, with timestamps
// interpreted in loc. Rows missing a key column are dropped, exact duplicates
// (re-exports overlapping at month boundaries) are collapsed, and the result
// is sorted by (route_id, vehicle_id, arrived_at, departed_at) ready for
// segmentation.
func ReadStopTimes(root string, loc *time.Location) ([]model.StopEvent, Report, error) {
	paths, err := findFiles(root, StopTimesMarker)
	if err != nil {
		return nil, Report{}, err
	}

	var rep Report
	var events []model.StopEvent
	seen := make(map[stopEventKey]bool)

	for _, path := range paths {
		parsed, dropped, err := readStopTimesFile(path, loc)
		if err != nil {
			rep.FilesSkipped++
			log.Printf("skipping stop time file %s: %v", path, err)
			continue
		}
		rep.FilesRead++
		rep.RowsDropped += dropped
		for _, ev := range parsed {
			k := stopEventKey{ev.RouteID, ev.StopTimeID, ev.StopID, ev.VehicleID,
				ev.ArrivedAt.Unix(), ev.DepartedAt.Unix()}
			if seen[k] {
				rep.Duplicates++
				continue
			}
			seen[k] = true
			events = append(events, ev)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.RouteID != b.RouteID {
			return a.RouteID < b.RouteID
		}
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		if !a.ArrivedAt.Equal(b.ArrivedAt) {
			return a.ArrivedAt.Before(b.ArrivedAt)
		}
		return a.DepartedAt.Before(b.DepartedAt)
	})
	rep.RowsKept = len(events)
	return events, rep, nil
}

type stopEventKey struct {
	routeID, stopTimeID, stopID, vehicleID int
	arrived, departed                      int64
}

func readStopTimesFile(path string, loc *time.Location) ([]model.StopEvent, int, error) {
	header, records, err := delimited(path, '\t')
	if err != nil {
		return nil, 0, err
	}
	cols, err := columns(header,
		"stop_time_id", "stop_id", "route_id", "vehicle_id", "arrived_at", "departed_at")
	if err != nil {
		return nil, 0, err
	}
	// Position columns are present on newer exports only, sometimes one
	// without the other.
	optional := optionalColumns(header, "latitude", "longitude")

	var events []model.StopEvent
	dropped := 0
	for _, rec := range records {
		ev, ok := parseStopEvent(rec, cols, optional, loc)
		if !ok {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	return events, dropped, nil
}

func parseStopEvent(rec []string, cols, optional map[string]int, loc *time.Location) (model.StopEvent, bool) {
	var ev model.StopEvent
	var err error

	// All key columns must parse; a row failing any of them is dropped, per
	// the ingestion contract (degrade completeness, never correctness).
	if ev.StopTimeID, err = parseInt(field(rec, cols["stop_time_id"])); err != nil {
		return ev, false
	}
	// stop_id is nullable: an unresolved location keeps the row (it still
	// marks vehicle movement) and segments containing it are rejected later.
	if s := field(rec, cols["stop_id"]); s != "" {
		if ev.StopID, err = parseInt(s); err != nil {
			return ev, false
		}
	}
	if ev.RouteID, err = parseInt(field(rec, cols["route_id"])); err != nil {
		return ev, false
	}
	if ev.VehicleID, err = parseInt(field(rec, cols["vehicle_id"])); err != nil {
		return ev, false
	}
	if ev.ArrivedAt, err = parseTimestamp(field(rec, cols["arrived_at"]), loc); err != nil {
		return ev, false
	}
	if ev.DepartedAt, err = parseTimestamp(field(rec, cols["departed_at"]), loc); err != nil {
		return ev, false
	}
	if ev.DepartedAt.Before(ev.ArrivedAt) {
		return ev, false
	}

	if i, ok := optional["latitude"]; ok {
		ev.Latitude, _ = parseFloat(field(rec, i))
	}
	if i, ok := optional["longitude"]; ok {
		ev.Longitude, _ = parseFloat(field(rec, i))
	}
	return ev, true
}
