package db

import (
	"context"
	"database/sql"
	"fmt"

	"transit-safety-etl/internal/model"
)

// FetchRouteStops reads the full route stop reference table.
func FetchRouteStops(ctx context.Context, db *sql.DB) ([]model.Stop, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT route_id, route_name, stop_id, stop_name, heading, sequence, is_terminal
		FROM route_stop
		ORDER BY route_id, heading, sequence`)
	if err != nil {
		return nil, fmt.Errorf("query route_stop: %w", err)
	}
	defer rows.Close()

	var stops []model.Stop
	for rows.Next() {
		var s model.Stop
		if err := rows.Scan(&s.RouteID, &s.RouteName, &s.StopID, &s.StopName,
			&s.Heading, &s.Sequence, &s.IsTerminal); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// FetchStopEvents reads all stop events in segmentation order.
func FetchStopEvents(ctx context.Context, db *sql.DB) ([]model.StopEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stop_time_id, stop_id, route_id, vehicle_id, arrived_at, departed_at,
		       latitude, longitude
		FROM stop_time
		ORDER BY route_id, vehicle_id, arrived_at, departed_at`)
	if err != nil {
		return nil, fmt.Errorf("query stop_time: %w", err)
	}
	defer rows.Close()

	var events []model.StopEvent
	for rows.Next() {
		var ev model.StopEvent
		var stopID sql.NullInt64
		if err := rows.Scan(&ev.StopTimeID, &stopID, &ev.RouteID, &ev.VehicleID,
			&ev.ArrivedAt, &ev.DepartedAt, &ev.Latitude, &ev.Longitude); err != nil {
			return nil, err
		}
		if stopID.Valid {
			ev.StopID = int(stopID.Int64)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// FetchAssignments reads all driver-vehicle-route assignments.
func FetchAssignments(ctx context.Context, db *sql.DB) ([]model.Assignment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT vehicle_assignment_id, vehicle_id, route_id, driver_id, bus_number,
		       start_time, end_time, first_name, last_name, badge_number
		FROM vehicle_assignment
		ORDER BY start_time, end_time`)
	if err != nil {
		return nil, fmt.Errorf("query vehicle_assignment: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.AssignmentID, &a.VehicleID, &a.RouteID, &a.DriverID,
			&a.BusNumber, &a.StartTime, &a.EndTime,
			&a.FirstName, &a.LastName, &a.BadgeNumber); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// FetchWarnings reads all safety warning events.
func FetchWarnings(ctx context.Context, db *sql.DB) ([]model.WarningEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT loc_time, bus_number, address, warning_name, latitude, longitude
		FROM warning
		ORDER BY loc_time`)
	if err != nil {
		return nil, fmt.Errorf("query warning: %w", err)
	}
	defer rows.Close()

	var warnings []model.WarningEvent
	for rows.Next() {
		var w model.WarningEvent
		if err := rows.Scan(&w.LocTime, &w.BusNumber, &w.Address, &w.WarningName,
			&w.Latitude, &w.Longitude); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}
