package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"transit-safety-etl/internal/model"
)

// progressEvery is how often bulk loads report progress.
const progressEvery = 100000

// ReplaceRouteStops replaces the route_stop table with the given rows in one
// transaction.
func ReplaceRouteStops(ctx context.Context, db *sql.DB, stops []model.Stop) error {
	return replaceTable(ctx, db, "route_stop", `
		INSERT INTO route_stop (route_id, route_name, stop_id, stop_name, heading, sequence, is_terminal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		len(stops), func(stmt *sql.Stmt, i int) error {
			s := stops[i]
			_, err := stmt.ExecContext(ctx, s.RouteID, s.RouteName, s.StopID, s.StopName,
				s.Heading, s.Sequence, s.IsTerminal)
			return err
		})
}

// ReplaceStopEvents replaces the stop_time table with the given rows.
func ReplaceStopEvents(ctx context.Context, db *sql.DB, events []model.StopEvent) error {
	return replaceTable(ctx, db, "stop_time", `
		INSERT INTO stop_time (stop_time_id, stop_id, route_id, vehicle_id, arrived_at, departed_at, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		len(events), func(stmt *sql.Stmt, i int) error {
			ev := events[i]
			var stopID sql.NullInt64
			if ev.StopID != 0 {
				stopID = sql.NullInt64{Int64: int64(ev.StopID), Valid: true}
			}
			_, err := stmt.ExecContext(ctx, ev.StopTimeID, stopID, ev.RouteID, ev.VehicleID,
				ev.ArrivedAt, ev.DepartedAt, ev.Latitude, ev.Longitude)
			return err
		})
}

// ReplaceAssignments replaces the vehicle_assignment table with the given rows.
func ReplaceAssignments(ctx context.Context, db *sql.DB, assignments []model.Assignment) error {
	return replaceTable(ctx, db, "vehicle_assignment", `
		INSERT INTO vehicle_assignment (vehicle_assignment_id, vehicle_id, route_id, driver_id,
			bus_number, start_time, end_time, first_name, last_name, badge_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		len(assignments), func(stmt *sql.Stmt, i int) error {
			a := assignments[i]
			_, err := stmt.ExecContext(ctx, a.AssignmentID, a.VehicleID, a.RouteID, a.DriverID,
				a.BusNumber, a.StartTime, a.EndTime, a.FirstName, a.LastName, a.BadgeNumber)
			return err
		})
}

// ReplaceWarnings replaces the warning table with the given rows.
func ReplaceWarnings(ctx context.Context, db *sql.DB, warnings []model.WarningEvent) error {
	return replaceTable(ctx, db, "warning", `
		INSERT INTO warning (loc_time, bus_number, address, warning_name, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		len(warnings), func(stmt *sql.Stmt, i int) error {
			w := warnings[i]
			_, err := stmt.ExecContext(ctx, w.LocTime, w.BusNumber, w.Address, w.WarningName,
				w.Latitude, w.Longitude)
			return err
		})
}

// replaceTable clears a table and loads n rows through a prepared statement,
// all inside a single transaction so a failed load leaves the previous
// contents intact.
func replaceTable(ctx context.Context, db *sql.DB, table, insertSQL string, n int,
	exec func(stmt *sql.Stmt, i int) error) error {

	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
		if (i+1)%progressEvery == 0 {
			log.Printf("loading %s: %d/%d rows", table, i+1, n)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	log.Printf("loaded %s: %d rows in %s", table, n, time.Since(start).Round(time.Millisecond))
	return nil
}
