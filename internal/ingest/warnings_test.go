package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWarnings(t *testing.T) {
	dir := t.TempDir()

	// The vendor export carries report metadata above the real header.
	writeFile(t, dir, "warnings_march.csv",
		"Safety Event Report\n"+
			"Generated,3/6/2024 09:00\n"+
			"\n"+
			"loc_time,vehicle_name,address,warning_name,latitude,longitude\n"+
			"2024-03-05 08:10:00,DASH Bus 15301,100 Main St,PCW-LF,38.81,-77.05\n"+
			"2024-03-05 08:20:00,Bus 15302,200 King St,PDZ-R,38.82,-77.06\n"+
			"2024-03-05 08:30:00,Bus 15301,Last known: 300 Duke St,PCW-LR,38.83,-77.07\n"+
			"2024-03-05 08:40:00,Bus 15301,400 Pitt St,Door Open While Moving,38.84,-77.08\n"+
			"2024-03-05 08:50:00,Spare Bus,500 Royal St,PCW-RR,38.85,-77.09\n"+
			",Bus 15301,600 Fairfax St,PDZ-LR,38.86,-77.10\n")

	warnings, rep, err := ReadWarnings(dir, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.FilesRead)
	assert.Equal(t, 4, rep.RowsDropped)
	assert.Equal(t, 2, rep.RowsKept)

	require.Len(t, warnings, 2)
	assert.Equal(t, 15301, warnings[0].BusNumber)
	assert.Equal(t, "PCW-LF", warnings[0].WarningName)
	assert.Equal(t, "100 Main St", warnings[0].Address)
	assert.Equal(t, 38.81, warnings[0].Latitude)
	assert.Equal(t, 15302, warnings[1].BusNumber)
}

func TestReadWarningsNoHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.csv", "just,some,rows\nwithout,a,header\n")
	writeFile(t, dir, "good.csv",
		"loc_time,vehicle_name,address,warning_name,latitude,longitude\n"+
			"2024-03-05 08:10:00,Bus 15301,100 Main St,PCW-LF,38.81,-77.05\n")

	warnings, rep, err := ReadWarnings(dir, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FilesSkipped)
	assert.Equal(t, 1, rep.FilesRead)
	assert.Len(t, warnings, 1)
}

func TestReadWarningsIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/archive", "old.csv", "not,read\n")
	writeFile(t, dir, "good.csv",
		"loc_time,vehicle_name,address,warning_name,latitude,longitude\n"+
			"2024-03-05 08:10:00,Bus 15301,100 Main St,PDZ - Left Front,38.81,-77.05\n")

	warnings, rep, err := ReadWarnings(dir, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FilesRead)
	require.Len(t, warnings, 1)
	assert.Equal(t, "PDZ - Left Front", warnings[0].WarningName)
}
