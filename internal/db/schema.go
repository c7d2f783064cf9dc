package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"transit-safety-etl/internal/model"
)

// Migrate creates the source and product tables when missing. Statements are
// idempotent; re-running a load against an existing database is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS route_stop (
			route_id    INTEGER NOT NULL,
			route_name  TEXT    NOT NULL,
			stop_id     INTEGER NOT NULL,
			stop_name   TEXT    NOT NULL DEFAULT '',
			heading     TEXT    NOT NULL,
			sequence    INTEGER NOT NULL,
			is_terminal BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS stop_time (
			stop_time_id INTEGER          NOT NULL,
			stop_id      INTEGER,
			route_id     INTEGER          NOT NULL,
			vehicle_id   INTEGER          NOT NULL,
			arrived_at   TIMESTAMP        NOT NULL,
			departed_at  TIMESTAMP        NOT NULL,
			latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude    DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS stop_time_route_vehicle_idx
			ON stop_time (route_id, vehicle_id, arrived_at, departed_at)`,
		`CREATE TABLE IF NOT EXISTS vehicle_assignment (
			vehicle_assignment_id INTEGER   NOT NULL,
			vehicle_id            INTEGER   NOT NULL,
			route_id              INTEGER   NOT NULL,
			driver_id             INTEGER   NOT NULL,
			bus_number            INTEGER   NOT NULL,
			start_time            TIMESTAMP NOT NULL,
			end_time              TIMESTAMP NOT NULL,
			first_name            TEXT      NOT NULL DEFAULT '',
			last_name             TEXT      NOT NULL DEFAULT '',
			badge_number          TEXT      NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS warning (
			loc_time     TIMESTAMP        NOT NULL,
			bus_number   INTEGER          NOT NULL,
			address      TEXT             NOT NULL DEFAULT '',
			warning_name TEXT             NOT NULL,
			latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude    DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS hotspot_data_product (
			route_name   TEXT             NOT NULL,
			route_id     INTEGER          NOT NULL,
			heading      TEXT             NOT NULL,
			driver_id    INTEGER          NOT NULL,
			vehicle_id   INTEGER          NOT NULL,
			bus_number   INTEGER          NOT NULL,
			loc_time     TIMESTAMP        NOT NULL,
			warning_name TEXT             NOT NULL,
			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL
		)`,
		longitudinalDDL(),
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// longitudinalDDL builds the longitudinal table definition. The warning
// category columns keep the vendor's exact alert names, which requires quoted
// identifiers.
func longitudinalDDL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS longitudinal_data_product (
			route_name TEXT      NOT NULL,
			route_id   INTEGER   NOT NULL,
			heading    TEXT      NOT NULL,
			driver_id  INTEGER   NOT NULL,
			vehicle_id INTEGER   NOT NULL,
			bus_number INTEGER   NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time   TIMESTAMP NOT NULL`)
	for _, name := range model.WarningCategories {
		fmt.Fprintf(&b, ",\n\t\t\t%s INTEGER NOT NULL DEFAULT 0", quoteIdent(name))
	}
	b.WriteString("\n\t\t)")
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
