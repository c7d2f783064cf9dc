package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"transit-safety-etl/internal/model"
	"transit-safety-etl/internal/pipeline"
)

// ReplaceHotspotRows replaces the hotspot_data_product table.
func ReplaceHotspotRows(ctx context.Context, db *sql.DB, rows []pipeline.HotspotRow) error {
	return replaceTable(ctx, db, "hotspot_data_product", `
		INSERT INTO hotspot_data_product (route_name, route_id, heading, driver_id,
			vehicle_id, bus_number, loc_time, warning_name, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		len(rows), func(stmt *sql.Stmt, i int) error {
			r := rows[i]
			_, err := stmt.ExecContext(ctx, r.RouteName, r.RouteID, r.Heading, r.DriverID,
				r.VehicleID, r.BusNumber, r.LocTime, r.WarningName, r.Latitude, r.Longitude)
			return err
		})
}

// ReplaceLongitudinalRows replaces the longitudinal_data_product table. The
// per-category count columns follow model.WarningCategories order.
func ReplaceLongitudinalRows(ctx context.Context, db *sql.DB, rows []pipeline.LongitudinalRow) error {
	ncols := 8 + len(model.WarningCategories)
	return replaceTable(ctx, db, "longitudinal_data_product", longitudinalInsertSQL(),
		len(rows), func(stmt *sql.Stmt, i int) error {
			r := rows[i]
			if len(r.Counts) != len(model.WarningCategories) {
				return fmt.Errorf("row %d: %d category counts, want %d",
					i, len(r.Counts), len(model.WarningCategories))
			}
			args := make([]any, 0, ncols)
			args = append(args, r.RouteName, r.RouteID, r.Heading, r.DriverID,
				r.VehicleID, r.BusNumber, r.StartTime, r.EndTime)
			for _, c := range r.Counts {
				args = append(args, c)
			}
			_, err := stmt.ExecContext(ctx, args...)
			return err
		})
}

func longitudinalInsertSQL() string {
	var b strings.Builder
	b.WriteString(`INSERT INTO longitudinal_data_product (route_name, route_id, heading,
		driver_id, vehicle_id, bus_number, start_time, end_time`)
	for _, name := range model.WarningCategories {
		b.WriteString(", ")
		b.WriteString(quoteIdent(name))
	}
	b.WriteString(") VALUES ($1, $2, $3, $4, $5, $6, $7, $8")
	for i := range model.WarningCategories {
		fmt.Fprintf(&b, ", $%d", 9+i)
	}
	b.WriteString(")")
	return b.String()
}
