package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transit-safety-etl/internal/pipeline"
)

type Collector struct {
	reg *prometheus.Registry

	TuplesProcessed prometheus.Counter
	TupleFailures   prometheus.Counter
	RoutesSkipped   prometheus.Counter

	SegmentsValid     prometheus.Counter
	SegmentsDiscarded *prometheus.CounterVec // reason label: short|oversized|invalid|indeterminate

	TripsEmitted prometheus.Counter

	WarningsAssigned   prometheus.Counter
	WarningsUnassigned prometheus.Counter
	WarningsAmbiguous  prometheus.Counter

	HotspotRows      prometheus.Gauge
	LongitudinalRows prometheus.Gauge

	EventsPublished   prometheus.Counter
	EventsPublishErrs prometheus.Counter
	NATSConnected     prometheus.Gauge

	StageDuration *prometheus.HistogramVec // stage label: segment|assign|write
	RunDuration   prometheus.Gauge         // seconds

	Workers prometheus.Gauge
}

func NewCollector(workers int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TuplesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_tuples_processed_total",
			Help: "Total (route, vehicle, driver, assignment) tuples segmented.",
		}),
		TupleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_tuple_failures_total",
			Help: "Total tuples that failed and were skipped.",
		}),
		RoutesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_routes_skipped_total",
			Help: "Routes with stop events but no stop definitions.",
		}),
		SegmentsValid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_segments_valid_total",
			Help: "Candidate segments that produced trips.",
		}),
		SegmentsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_segments_discarded_total",
			Help: "Candidate segments dropped, by reason.",
		}, []string{"reason"}),
		TripsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_trips_emitted_total",
			Help: "Total directional trips reconstructed.",
		}),
		WarningsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_warnings_assigned_total",
			Help: "Warnings attached to a trip.",
		}),
		WarningsUnassigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_warnings_unassigned_total",
			Help: "Warnings matching no trip window.",
		}),
		WarningsAmbiguous: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_warnings_ambiguous_total",
			Help: "Warnings matched by multiple trips, resolved to nearest start.",
		}),
		HotspotRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_hotspot_rows",
			Help: "Rows written to hotspot_data_product in the last run.",
		}),
		LongitudinalRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_longitudinal_rows",
			Help: "Rows written to longitudinal_data_product in the last run.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_hotspot_events_published_total",
			Help: "Hotspot events published to NATS.",
		}),
		EventsPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_hotspot_events_publish_errors_total",
			Help: "Hotspot event publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"stage"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_run_duration_seconds",
			Help: "Wall-clock duration of the last full run.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_workers",
			Help: "Configured segmentation worker count.",
		}),
	}

	// Register
	reg.MustRegister(
		c.TuplesProcessed, c.TupleFailures, c.RoutesSkipped,
		c.SegmentsValid, c.SegmentsDiscarded, c.TripsEmitted,
		c.WarningsAssigned, c.WarningsUnassigned, c.WarningsAmbiguous,
		c.HotspotRows, c.LongitudinalRows,
		c.EventsPublished, c.EventsPublishErrs, c.NATSConnected,
		c.StageDuration, c.RunDuration, c.Workers,
	)

	c.Workers.Set(float64(workers))
	return c
}

// ObserveStats mirrors a run's final counters into the registry. The
// pipeline.Stats value stays the source of truth; the collector only exposes
// it for scrape.
func (c *Collector) ObserveStats(s *pipeline.Stats) {
	c.TuplesProcessed.Add(float64(s.TuplesProcessed))
	c.TupleFailures.Add(float64(s.TupleFailures))
	c.RoutesSkipped.Add(float64(s.RoutesSkipped))
	c.SegmentsValid.Add(float64(s.SegmentsValid))
	c.SegmentsDiscarded.WithLabelValues("short").Add(float64(s.SegmentsShort))
	c.SegmentsDiscarded.WithLabelValues("oversized").Add(float64(s.SegmentsOversized))
	c.SegmentsDiscarded.WithLabelValues("invalid").Add(float64(s.SegmentsInvalid))
	c.SegmentsDiscarded.WithLabelValues("indeterminate").Add(float64(s.SegmentsIndeterminate))
	c.TripsEmitted.Add(float64(s.TripsEmitted))
	c.WarningsAssigned.Add(float64(s.WarningsAssigned))
	c.WarningsUnassigned.Add(float64(s.WarningsUnassigned))
	c.WarningsAmbiguous.Add(float64(s.WarningsAmbiguous))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
