package model

import "time"

// Stop is one entry in a route's stop definition. Sequence is 1-based within
// its heading. Exactly one stop per route is the terminal, shared by both
// headings; it is where round trips begin and end and where drivers change
// shifts.
type Stop struct {
	RouteID    int
	RouteName  string
	StopID     int
	StopName   string
	Heading    string
	Sequence   int
	IsTerminal bool
}

// StopEvent is an observed arrival at and departure from a stop. StopID is 0
// when the AVL system could not resolve the location to a known stop.
type StopEvent struct {
	StopTimeID int
	StopID     int
	RouteID    int
	VehicleID  int
	ArrivedAt  time.Time
	DepartedAt time.Time
	Latitude   float64
	Longitude  float64
}

// Assignment binds a driver to a vehicle on a route for a shift segment.
type Assignment struct {
	AssignmentID int
	VehicleID    int
	RouteID      int
	DriverID     int
	BusNumber    int
	StartTime    time.Time
	EndTime      time.Time
	FirstName    string
	LastName     string
	BadgeNumber  string
}

// WarningEvent is a single collision-avoidance or harsh-driving alert.
type WarningEvent struct {
	LocTime     time.Time
	BusNumber   int
	Address     string
	WarningName string
	Latitude    float64
	Longitude   float64
}

// Trip is one directional traversal of a route between two terminal visits,
// reconstructed from an assignment's stop events. Warnings are attached after
// segmentation and consumed by the product builders; trips themselves are
// never persisted.
type Trip struct {
	RouteID   int
	RouteName string
	Heading   string
	VehicleID int
	DriverID  int
	BusNumber int
	StartTime time.Time
	EndTime   time.Time
	StopCount int
	Warnings  []WarningEvent
}

// Contains reports whether t covers the instant under the half-open window
// [StartTime, EndTime). The open upper bound keeps a warning stamped exactly
// at a shared boundary from landing in two consecutive trips.
func (t Trip) Contains(at time.Time) bool {
	return !at.Before(t.StartTime) && at.Before(t.EndTime)
}

// WarningCategories is the closed set of alert names emitted by the on-board
// safety system, in the column order of the longitudinal product.
var WarningCategories = []string{
	"ME - Pedestrian Collision Warning",
	"ME - Pedestrian In Range Warning",
	"PCW-LF",
	"PCW-LR",
	"PCW-RR",
	"PDZ - Left Front",
	"PDZ-LR",
	"PDZ-R",
	"Safety - Braking - Aggressive",
	"Safety - Braking - Dangerous",
}

// KnownWarningCategory reports whether name is in the closed category set.
func KnownWarningCategory(name string) bool {
	for _, c := range WarningCategories {
		if c == name {
			return true
		}
	}
	return false
}
