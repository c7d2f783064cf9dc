package pipeline

import (
	"time"

	"transit-safety-etl/internal/model"
)

// HotspotRow is one record of the hotspot product: a single warning event
// tagged with the trip it occurred on, for geospatial hotspot analysis.
type HotspotRow struct {
	RouteName   string
	RouteID     int
	Heading     string
	DriverID    int
	VehicleID   int
	BusNumber   int
	LocTime     time.Time
	WarningName string
	Latitude    float64
	Longitude   float64
}

// LongitudinalRow is one record of the longitudinal product: a single trip
// with its warnings rolled up into per-category counts, for trend analysis.
// Counts is aligned with model.WarningCategories.
type LongitudinalRow struct {
	RouteName string
	RouteID   int
	Heading   string
	DriverID  int
	VehicleID int
	BusNumber int
	StartTime time.Time
	EndTime   time.Time
	Counts    []int
}

// HotspotRows projects the enriched trips into hotspot records, one row per
// (trip, warning) pair. Trips without warnings contribute nothing.
func HotspotRows(trips []model.Trip) []HotspotRow {
	var rows []HotspotRow
	for _, t := range trips {
		for _, w := range t.Warnings {
			rows = append(rows, HotspotRow{
				RouteName:   t.RouteName,
				RouteID:     t.RouteID,
				Heading:     t.Heading,
				DriverID:    t.DriverID,
				VehicleID:   t.VehicleID,
				BusNumber:   t.BusNumber,
				LocTime:     w.LocTime,
				WarningName: w.WarningName,
				Latitude:    w.Latitude,
				Longitude:   w.Longitude,
			})
		}
	}
	return rows
}

// LongitudinalRows projects the enriched trips into longitudinal records, one
// row per trip whether or not it has warnings. Categories absent from a
// trip's warnings count zero; warnings outside the closed category set never
// reach this point (they are dropped at ingestion).
func LongitudinalRows(trips []model.Trip) []LongitudinalRow {
	rows := make([]LongitudinalRow, 0, len(trips))
	for _, t := range trips {
		counts := make([]int, len(model.WarningCategories))
		for _, w := range t.Warnings {
			for ci, name := range model.WarningCategories {
				if w.WarningName == name {
					counts[ci]++
					break
				}
			}
		}
		rows = append(rows, LongitudinalRow{
			RouteName: t.RouteName,
			RouteID:   t.RouteID,
			Heading:   t.Heading,
			DriverID:  t.DriverID,
			VehicleID: t.VehicleID,
			BusNumber: t.BusNumber,
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Counts:    counts,
		})
	}
	return rows
}
