package ingest

import (
	"log"
	"sort"
	"strings"
	"time"

	"transit-safety-etl/internal/model"
)

// AssignmentsMarker identifies driver-schedule export files within a data tree.
const AssignmentsMarker = "_VehiclesThatRanRoute_"

// testDriverMarker flags rows the operator seeds for system testing; such
// assignments never correspond to revenue service.
const testDriverMarker = "TEST"

// ReadAssignments loads every driver-schedule export under root, with
// timestamps interpreted in loc. Duplicate rows (a shift spanning midnight
// appears in both days' exports), rows missing a key column, inverted windows
// and test-data rows are dropped. The result is sorted by
// (start_time, end_time).
func ReadAssignments(root string, loc *time.Location) ([]model.Assignment, Report, error) {
	paths, err := findFiles(root, AssignmentsMarker)
	if err != nil {
		return nil, Report{}, err
	}

	var rep Report
	var assignments []model.Assignment
	seen := make(map[model.Assignment]bool)

	for _, path := range paths {
		parsed, dropped, err := readAssignmentsFile(path, loc)
		if err != nil {
			rep.FilesSkipped++
			log.Printf("skipping driver schedule file %s: %v", path, err)
			continue
		}
		rep.FilesRead++
		rep.RowsDropped += dropped
		for _, a := range parsed {
			if seen[a] {
				rep.Duplicates++
				continue
			}
			seen[a] = true
			assignments = append(assignments, a)
		}
	}

	sort.Slice(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.EndTime.Before(b.EndTime)
	})
	rep.RowsKept = len(assignments)
	return assignments, rep, nil
}

func readAssignmentsFile(path string, loc *time.Location) ([]model.Assignment, int, error) {
	header, records, err := delimited(path, '\t')
	if err != nil {
		return nil, 0, err
	}
	cols, err := columns(header,
		"vehicle_assignment_id", "vehicle_id", "route_id", "driver_id",
		"start_time", "end_time", "bus_number")
	if err != nil {
		return nil, 0, err
	}
	// Older exports omit some of the name fields; whichever are present still
	// feed the test-row exclusion.
	names := optionalColumns(header, "first_name", "last_name", "badge_number")

	var assignments []model.Assignment
	dropped := 0
	for _, rec := range records {
		a, ok := parseAssignment(rec, cols, names, loc)
		if !ok {
			dropped++
			continue
		}
		assignments = append(assignments, a)
	}
	return assignments, dropped, nil
}

func parseAssignment(rec []string, cols, names map[string]int, loc *time.Location) (model.Assignment, bool) {
	var a model.Assignment
	var err error

	if a.AssignmentID, err = parseInt(field(rec, cols["vehicle_assignment_id"])); err != nil {
		return a, false
	}
	if a.VehicleID, err = parseInt(field(rec, cols["vehicle_id"])); err != nil {
		return a, false
	}
	if a.RouteID, err = parseInt(field(rec, cols["route_id"])); err != nil {
		return a, false
	}
	if a.DriverID, err = parseInt(field(rec, cols["driver_id"])); err != nil {
		return a, false
	}
	if a.BusNumber, err = parseInt(field(rec, cols["bus_number"])); err != nil {
		return a, false
	}
	if a.StartTime, err = parseTimestamp(field(rec, cols["start_time"]), loc); err != nil {
		return a, false
	}
	if a.EndTime, err = parseTimestamp(field(rec, cols["end_time"]), loc); err != nil {
		return a, false
	}
	if !a.StartTime.Before(a.EndTime) {
		return a, false
	}

	if i, ok := names["first_name"]; ok {
		a.FirstName = field(rec, i)
	}
	if i, ok := names["last_name"]; ok {
		a.LastName = field(rec, i)
	}
	if i, ok := names["badge_number"]; ok {
		a.BadgeNumber = field(rec, i)
	}
	if strings.EqualFold(a.FirstName, testDriverMarker) || strings.EqualFold(a.LastName, testDriverMarker) {
		return a, false
	}
	return a, true
}
