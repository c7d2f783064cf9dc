// Command dataproduct reconstructs directional trips from the loaded stop
// events, attaches safety warnings to them, and replaces the hotspot and
// longitudinal data product tables. Optionally it publishes hotspot rows to
// NATS and exposes run metrics for scrape.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"transit-safety-etl/internal/catalog"
	"transit-safety-etl/internal/config"
	"transit-safety-etl/internal/db"
	"transit-safety-etl/internal/metrics"
	"transit-safety-etl/internal/pipeline"
	"transit-safety-etl/internal/publisher"
)

func main() {
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

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.Workers)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Optional hotspot event publisher
	var pub *publisher.HotspotPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewHotspotPublisher(cfg.NATSURL, cfg.NATSStreamName, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	start := time.Now()

	stops, err := db.FetchRouteStops(ctx, sqlDB)
	if err != nil {
		log.Fatalf("fetch route stops: %v", err)
	}
	cat, err := catalog.New(stops)
	if err != nil {
		log.Fatalf("invalid route stop definitions: %v", err)
	}
	events, err := db.FetchStopEvents(ctx, sqlDB)
	if err != nil {
		log.Fatalf("fetch stop events: %v", err)
	}
	assignments, err := db.FetchAssignments(ctx, sqlDB)
	if err != nil {
		log.Fatalf("fetch assignments: %v", err)
	}
	warnings, err := db.FetchWarnings(ctx, sqlDB)
	if err != nil {
		log.Fatalf("fetch warnings: %v", err)
	}
	log.Printf("loaded %d route stops, %d stop events, %d assignments, %d warnings",
		len(stops), len(events), len(assignments), len(warnings))

	runner := &pipeline.Runner{
		Segmenter: pipeline.Segmenter{MinSegmentEvents: cfg.MinSegmentEvents},
		Workers:   cfg.Workers,
	}
	segStart := time.Now()
	trips, stats, report := runner.Run(ctx, cat, events, assignments)
	observeStage(mcol, "segment", segStart)
	log.Printf("reconstructed %d trips from %d tuples (%d segments discarded)",
		len(trips), stats.TuplesProcessed, stats.SegmentsDiscarded())

	assignStart := time.Now()
	unassigned := pipeline.AssignWarnings(trips, warnings, stats)
	observeStage(mcol, "assign", assignStart)
	log.Printf("warnings: %d assigned, %d unassigned, %d ambiguous",
		stats.WarningsAssigned, stats.WarningsUnassigned, stats.WarningsAmbiguous)

	hotspot := pipeline.HotspotRows(trips)
	longitudinal := pipeline.LongitudinalRows(trips)

	writeStart := time.Now()
	if err := db.ReplaceHotspotRows(ctx, sqlDB, hotspot); err != nil {
		log.Fatalf("write hotspot product: %v", err)
	}
	if err := db.ReplaceLongitudinalRows(ctx, sqlDB, longitudinal); err != nil {
		log.Fatalf("write longitudinal product: %v", err)
	}
	observeStage(mcol, "write", writeStart)

	if pub != nil {
		for _, r := range hotspot {
			if err := pub.PublishHotspot(publisher.HotspotEvent(r)); err != nil {
				log.Printf("publish hotspot event: %v", err)
			}
		}
	}

	if mcol != nil {
		mcol.ObserveStats(stats)
		mcol.HotspotRows.Set(float64(len(hotspot)))
		mcol.LongitudinalRows.Set(float64(len(longitudinal)))
		mcol.RunDuration.Set(time.Since(start).Seconds())
	}

	failed := 0
	for _, r := range report {
		if r.Err != nil {
			failed++
		}
	}
	log.Printf("run complete in %s: %d hotspot rows, %d longitudinal rows, %d/%d tuples failed, %d warnings left unassigned",
		time.Since(start).Round(time.Millisecond),
		len(hotspot), len(longitudinal), failed, len(report), len(unassigned))
}

func observeStage(mcol *metrics.Collector, stage string, start time.Time) {
	if mcol != nil {
		mcol.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) EventPublishedInc()  { p.c.EventsPublished.Inc() }
func (p *pubMetrics) EventPublishErrInc() { p.c.EventsPublishErrs.Inc() }
func (p *pubMetrics) SetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
