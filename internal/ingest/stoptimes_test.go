package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadStopTimes(t *testing.T) {
	root := t.TempDir()

	// Exports live in nested per-route folders; the walk must find them all.
	writeFile(t, filepath.Join(root, "route30"), "Route30_StopTimes_Jan.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\n"+
			"2\t\t30\t7\t1/5/2024 08:05\t1/5/2024 08:06\n"+ // unresolved stop kept
			"3\t2\t30\t7\t1/5/2024 08:10\t1/5/2024 08:08\n"+ // departs before arriving
			"4\tabc\t30\t7\t1/5/2024 08:12\t1/5/2024 08:13\n") // unparsable stop id
	writeFile(t, filepath.Join(root, "route30"), "Route30_StopTimes_Feb.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\n"+ // duplicate of Jan
			"5\t3\t30\t7\t2/5/2024 09:00\t2/5/2024 09:01\n")
	// Unrelated files in the tree are ignored.
	writeFile(t, root, "notes.txt", "not an export\n")

	events, rep, err := ReadStopTimes(root, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.FilesRead)
	assert.Equal(t, 0, rep.FilesSkipped)
	assert.Equal(t, 2, rep.RowsDropped)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 3, rep.RowsKept)

	require.Len(t, events, 3)
	// Sorted by (route, vehicle, arrived, departed).
	assert.Equal(t, 1, events[0].StopTimeID)
	assert.Equal(t, 2, events[1].StopTimeID)
	assert.Equal(t, 5, events[2].StopTimeID)
	assert.Equal(t, 0, events[1].StopID)
	assert.Equal(t, 100, events[0].StopID)
}

func TestReadStopTimesSkipsBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "RouteX_StopTimes_Jan.txt", "wrong_header\tcolumns\nx\ty\n")
	writeFile(t, root, "Route30_StopTimes_Jan.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\n")

	events, rep, err := ReadStopTimes(root, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FilesSkipped)
	assert.Equal(t, 1, rep.FilesRead)
	assert.Len(t, events, 1)
}

func TestReadStopTimesOptionalPosition(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Route30_StopTimes_Jan.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\tlatitude\tlongitude\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\t38.81\t-77.05\n")

	events, _, err := ReadStopTimes(root, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 38.81, events[0].Latitude)
	assert.Equal(t, -77.05, events[0].Longitude)
}

func TestReadStopTimesSingleCoordinateColumn(t *testing.T) {
	root := t.TempDir()
	// Some exports carry latitude only; it must still be read.
	writeFile(t, root, "Route30_StopTimes_Jan.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\tlatitude\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\t38.81\n")

	events, _, err := ReadStopTimes(root, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 38.81, events[0].Latitude)
	assert.Zero(t, events[0].Longitude)
}

func TestReadStopTimesLocation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Route30_StopTimes_Jan.txt",
		"stop_time_id\tstop_id\troute_id\tvehicle_id\tarrived_at\tdeparted_at\n"+
			"1\t100\t30\t7\t1/5/2024 08:00\t1/5/2024 08:02\n")

	loc := time.FixedZone("UTC-5", -5*3600)
	events, _, err := ReadStopTimes(root, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 1, 5, 8, 0, 0, 0, loc), events[0].ArrivedAt)
	assert.True(t, events[0].ArrivedAt.Equal(time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC)))
}
