// Command ingest loads the raw export files into the relational store: route
// stop definitions, AVL stop events, driver schedules and safety warnings.
// Each dataset replaces its table wholesale; the job is safe to re-run.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"transit-safety-etl/internal/config"
	"transit-safety-etl/internal/db"
	"transit-safety-etl/internal/ingest"
)

func main() {
	only := flag.String("only", "", "load a single dataset: route_stops|stop_times|assignments|warnings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dsn := cfg.DatabaseURL
	if cfg.Database != "" {
		dsn, err = db.WithDBName(dsn, cfg.Database)
		if err != nil {
			log.Fatalf("compose DSN: %v", err)
		}
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		log.Fatalf("migrate error: %v", err)
	}

	failures := 0
	run := func(name string, load func() error) {
		if *only != "" && *only != name {
			return
		}
		if err := load(); err != nil {
			// One bad dataset should not stop the others from loading.
			failures++
			log.Printf("%s load failed: %v", name, err)
		}
	}

	run("route_stops", func() error { return loadRouteStops(ctx, sqlDB, cfg) })
	run("stop_times", func() error { return loadStopTimes(ctx, sqlDB, cfg) })
	run("assignments", func() error { return loadAssignments(ctx, sqlDB, cfg) })
	run("warnings", func() error { return loadWarnings(ctx, sqlDB, cfg) })

	if failures > 0 {
		log.Fatalf("ingest finished with %d failed dataset(s)", failures)
	}
	log.Println("ingest complete")
}

func loadRouteStops(ctx context.Context, sqlDB *sql.DB, cfg *config.Config) error {
	stops, rep, err := ingest.ReadRouteStops(cfg.RouteStopDir)
	if err != nil {
		return err
	}
	log.Printf("route stops read: %s", rep)
	return db.ReplaceRouteStops(ctx, sqlDB, stops)
}

func loadStopTimes(ctx context.Context, sqlDB *sql.DB, cfg *config.Config) error {
	events, rep, err := ingest.ReadStopTimes(cfg.DataRoot, cfg.Location)
	if err != nil {
		return err
	}
	log.Printf("stop times read: %s", rep)
	return db.ReplaceStopEvents(ctx, sqlDB, events)
}

func loadAssignments(ctx context.Context, sqlDB *sql.DB, cfg *config.Config) error {
	assignments, rep, err := ingest.ReadAssignments(cfg.DataRoot, cfg.Location)
	if err != nil {
		return err
	}
	log.Printf("driver schedules read: %s", rep)
	return db.ReplaceAssignments(ctx, sqlDB, assignments)
}

func loadWarnings(ctx context.Context, sqlDB *sql.DB, cfg *config.Config) error {
	warnings, rep, err := ingest.ReadWarnings(cfg.WarningDir, cfg.Location)
	if err != nil {
		return err
	}
	log.Printf("warnings read: %s", rep)
	return db.ReplaceWarnings(ctx, sqlDB, warnings)
}
