package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"transit-safety-etl/internal/model"
)

// lastKnownMarker tags rows where the safety unit reported a stale cached
// position instead of a live event; those rows carry no usable warning.
const lastKnownMarker = "Last known:"

// ReadWarnings loads every warning export in dir (the warning folder holds
// nothing else, so every regular file is read), with timestamps interpreted
// in loc. The vendor export carries a preamble above the real header; rows
// lacking a warning name or timestamp, stale "Last known:" rows and unknown
// warning categories are dropped. The bus number is parsed from the trailing
// token of the free-text vehicle name.
func ReadWarnings(dir string, loc *time.Location) ([]model.WarningEvent, Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read warning dir: %w", err)
	}

	var rep Report
	var warnings []model.WarningEvent
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		parsed, dropped, err := readWarningsFile(path, loc)
		if err != nil {
			rep.FilesSkipped++
			log.Printf("skipping warning file %s: %v", path, err)
			continue
		}
		rep.FilesRead++
		rep.RowsDropped += dropped
		warnings = append(warnings, parsed...)
	}
	rep.RowsKept = len(warnings)
	return warnings, rep, nil
}

func readWarningsFile(path string, loc *time.Location) ([]model.WarningEvent, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	cols, err := skipPreamble(r)
	if err != nil {
		return nil, 0, err
	}

	var warnings []model.WarningEvent
	dropped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read record: %w", err)
		}
		w, ok := parseWarning(rec, cols, loc)
		if !ok {
			dropped++
			continue
		}
		warnings = append(warnings, w)
	}
	return warnings, dropped, nil
}

// skipPreamble consumes rows until the real header line appears and returns
// the column map. The vendor prepends several report-metadata rows above it.
func skipPreamble(r *csv.Reader) (map[string]int, error) {
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("no header row found")
		}
		if err != nil {
			return nil, fmt.Errorf("read preamble: %w", err)
		}
		if len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\xef\xbb\xbf")
		}
		cols, err := columns(rec,
			"loc_time", "vehicle_name", "address", "warning_name", "latitude", "longitude")
		if err == nil {
			return cols, nil
		}
	}
}

func parseWarning(rec []string, cols map[string]int, loc *time.Location) (model.WarningEvent, bool) {
	var w model.WarningEvent
	var err error

	w.WarningName = field(rec, cols["warning_name"])
	if w.WarningName == "" || !model.KnownWarningCategory(w.WarningName) {
		return w, false
	}
	if w.LocTime, err = parseTimestamp(field(rec, cols["loc_time"]), loc); err != nil {
		return w, false
	}
	w.Address = field(rec, cols["address"])
	if strings.Contains(w.Address, lastKnownMarker) {
		return w, false
	}
	if w.BusNumber, err = busNumberFromVehicleName(field(rec, cols["vehicle_name"])); err != nil {
		return w, false
	}
	w.Latitude, _ = parseFloat(field(rec, cols["latitude"]))
	w.Longitude, _ = parseFloat(field(rec, cols["longitude"]))
	return w, true
}

// busNumberFromVehicleName extracts the fleet number from names such as
// "Bus 15301" or "DASH Bus 15301": the trailing whitespace-separated token.
func busNumberFromVehicleName(name string) (int, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty vehicle name")
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, fmt.Errorf("vehicle name %q: %w", name, err)
	}
	return n, nil
}
