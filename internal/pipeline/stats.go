package pipeline

// Stats collects per-run diagnostic counters. A Stats value is owned by one
// worker (or the final merge) at a time; nothing here is process-global, so
// concurrent runs never share state.
type Stats struct {
	TuplesProcessed int
	TupleFailures   int
	RoutesSkipped   int

	SegmentsValid         int
	SegmentsShort         int
	SegmentsOversized     int
	SegmentsInvalid       int
	SegmentsIndeterminate int

	TripsEmitted int

	WarningsAssigned   int
	WarningsUnassigned int
	WarningsAmbiguous  int
}

// Merge adds other's counters into s.
func (s *Stats) Merge(other *Stats) {
	s.TuplesProcessed += other.TuplesProcessed
	s.TupleFailures += other.TupleFailures
	s.RoutesSkipped += other.RoutesSkipped
	s.SegmentsValid += other.SegmentsValid
	s.SegmentsShort += other.SegmentsShort
	s.SegmentsOversized += other.SegmentsOversized
	s.SegmentsInvalid += other.SegmentsInvalid
	s.SegmentsIndeterminate += other.SegmentsIndeterminate
	s.TripsEmitted += other.TripsEmitted
	s.WarningsAssigned += other.WarningsAssigned
	s.WarningsUnassigned += other.WarningsUnassigned
	s.WarningsAmbiguous += other.WarningsAmbiguous
}

// SegmentsDiscarded is the total number of candidate segments dropped for any
// reason.
func (s *Stats) SegmentsDiscarded() int {
	return s.SegmentsShort + s.SegmentsOversized + s.SegmentsInvalid + s.SegmentsIndeterminate
}
