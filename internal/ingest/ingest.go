// Package ingest reads the raw per-route/per-month export files and turns
// them into validated, typed records ready for loading. Each file either
// parses fully or is skipped whole; one bad export never aborts a batch.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Report summarizes one dataset's ingestion for the run log.
type Report struct {
	FilesRead    int
	FilesSkipped int
	RowsKept     int
	RowsDropped  int
	Duplicates   int
}

func (r Report) String() string {
	return fmt.Sprintf("files=%d skipped_files=%d rows=%d dropped_rows=%d duplicates=%d",
		r.FilesRead, r.FilesSkipped, r.RowsKept, r.RowsDropped, r.Duplicates)
}

// timestampLayouts covers the formats seen across the exports: stop times and
// schedules resolve to the minute, warnings to the second.
var timestampLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// parseTimestamp interprets wall-clock export timestamps in loc. Layouts that
// carry their own offset keep it.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// findFiles walks root and returns every file whose name contains marker.
// Exports arrive as one file per route per month scattered across nested
// folders, so the walk is recursive.
func findFiles(root, marker string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), marker) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// delimited reads every record of a delimited file along with its header.
// comma is '\t' for the AVL exports and ',' for spreadsheet re-exports.
func delimited(path string, comma rune) (header []string, records [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// columns maps required column names to their positions in a header,
// case-insensitively. Missing columns fail the whole file.
func columns(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out[name] = i
	}
	return out, nil
}

// optionalColumns maps whichever of names exist in a header to their
// positions, case-insensitively. Unlike columns, a missing name is simply
// absent from the result.
func optionalColumns(header []string, names ...string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		if i, ok := idx[name]; ok {
			out[name] = i
		}
	}
	return out
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	// Spreadsheet exports render integral ids as "324.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int(f), nil
	}
	return strconv.Atoi(s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}
