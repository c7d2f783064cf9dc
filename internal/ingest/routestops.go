package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"transit-safety-etl/internal/model"
)

// ReadRouteStops loads the hand-maintained route stop definitions, one CSV
// per route (or a combined file) in dir. These sheets are curated, so rows
// are expected clean; any row that fails the schema still drops rather than
// poisoning the catalog.
func ReadRouteStops(dir string) ([]model.Stop, Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read route stop dir: %w", err)
	}

	var rep Report
	var stops []model.Stop
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		parsed, dropped, err := readRouteStopsFile(path)
		if err != nil {
			rep.FilesSkipped++
			log.Printf("skipping route stop file %s: %v", path, err)
			continue
		}
		rep.FilesRead++
		rep.RowsDropped += dropped
		stops = append(stops, parsed...)
	}
	rep.RowsKept = len(stops)
	return stops, rep, nil
}

func readRouteStopsFile(path string) ([]model.Stop, int, error) {
	header, records, err := delimited(path, ',')
	if err != nil {
		return nil, 0, err
	}
	cols, err := columns(header,
		"route_id", "route_name", "stop_id", "heading", "sequence", "is_terminal")
	if err != nil {
		return nil, 0, err
	}
	nameCol := optionalColumns(header, "stop_name")

	var stops []model.Stop
	dropped := 0
	for _, rec := range records {
		var s model.Stop
		var err error
		if s.RouteID, err = parseInt(field(rec, cols["route_id"])); err != nil {
			dropped++
			continue
		}
		if s.StopID, err = parseInt(field(rec, cols["stop_id"])); err != nil {
			dropped++
			continue
		}
		if s.Sequence, err = parseInt(field(rec, cols["sequence"])); err != nil {
			dropped++
			continue
		}
		s.RouteName = field(rec, cols["route_name"])
		s.Heading = field(rec, cols["heading"])
		if s.Heading == "" {
			dropped++
			continue
		}
		s.IsTerminal = parseBool(field(rec, cols["is_terminal"]))
		if i, ok := nameCol["stop_name"]; ok {
			s.StopName = field(rec, i)
		}
		stops = append(stops, s)
	}
	return stops, dropped, nil
}
