package pipeline

import (
	"time"

	"transit-safety-etl/internal/model"
)

// AssignWarnings attaches each warning to at most one trip. A warning is a
// candidate for a trip when the bus numbers match and the warning time falls
// in the trip's half-open [start, end) window. The scan itself is read-only;
// attachment happens after all candidates for a warning are known, so that a
// warning matched by more than one trip (possible when two assignments'
// windows were exported inconsistently) is settled deterministically: the
// trip whose start time is nearest the warning wins, earlier trip on a tie.
//
// Trips are enriched in place. The unmatched residue is returned for audit;
// nothing recovers it automatically.
func AssignWarnings(trips []model.Trip, warnings []model.WarningEvent, stats *Stats) []model.WarningEvent {
	// Bucket trips by bus number so each warning only scans its own bus.
	byBus := make(map[int][]int)
	for i, t := range trips {
		byBus[t.BusNumber] = append(byBus[t.BusNumber], i)
	}

	var unassigned []model.WarningEvent
	for _, w := range warnings {
		var candidates []int
		for _, ti := range byBus[w.BusNumber] {
			if trips[ti].Contains(w.LocTime) {
				candidates = append(candidates, ti)
			}
		}

		if len(candidates) == 0 {
			stats.WarningsUnassigned++
			unassigned = append(unassigned, w)
			continue
		}
		if len(candidates) > 1 {
			stats.WarningsAmbiguous++
		}

		ti := nearestStart(trips, candidates, w.LocTime)
		trips[ti].Warnings = append(trips[ti].Warnings, w)
		stats.WarningsAssigned++
	}
	return unassigned
}

// nearestStart returns the candidate trip index whose start time is closest
// to at, preferring the earlier-starting trip on equal distance.
func nearestStart(trips []model.Trip, candidates []int, at time.Time) int {
	best := candidates[0]
	for _, ti := range candidates[1:] {
		dc := absDuration(at.Sub(trips[ti].StartTime))
		db := absDuration(at.Sub(trips[best].StartTime))
		if dc < db || (dc == db && trips[ti].StartTime.Before(trips[best].StartTime)) {
			best = ti
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
