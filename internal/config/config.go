package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Database    string // optional override of the DSN's database name

	// Ingestion source locations.
	DataRoot     string // tree holding stop time and driver schedule exports
	WarningDir   string // flat folder of warning exports
	RouteStopDir string // flat folder of route stop definition sheets

	// Pipeline tuning.
	Workers          int
	MinSegmentEvents int

	// Location warnings and schedules are recorded in.
	Location *time.Location

	NATSURL        string // empty disables hotspot event publishing
	NATSStreamName string
	MetricsAddr    string // empty disables the metrics listener
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		dbName := os.Getenv("PGDATABASE")
		if dbName == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				urlEscape(user), urlEscape(pass), host, port, dbName, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
				urlEscape(user), host, port, dbName, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}
	cfg.Database = os.Getenv("PIPELINE_DATABASE")

	cfg.DataRoot = getenvDefault("DATA_ROOT", "data_sources")
	cfg.WarningDir = getenvDefault("WARNING_DIR", "warnings")
	cfg.RouteStopDir = getenvDefault("ROUTE_STOP_DIR", "route_stops")

	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PIPELINE_WORKERS: %q", v)
		}
		cfg.Workers = n
	}

	if v := os.Getenv("MIN_SEGMENT_EVENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 {
			return nil, fmt.Errorf("invalid MIN_SEGMENT_EVENTS: %q", v)
		}
		cfg.MinSegmentEvents = n
	}

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	// Optional surfaces: hotspot event stream and metrics listener.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSStreamName = getenvDefault("NATS_STREAM_NAME", "SAFETY")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
