// Package catalog holds the static route/stop reference data for a run.
// It is built once from the route_stop table and read-only afterwards.
package catalog

import (
	"fmt"
	"sort"

	"transit-safety-etl/internal/model"
)

// RouteStops is the per-route view the segmenter works against: the ordered
// stop list for each heading, the heading membership sets, and the terminal.
type RouteStops struct {
	RouteID        int
	RouteName      string
	TerminalStopID int
	Headings       []string
	byHeading      map[string][]model.Stop
	headingOf      map[int]string // interior stop id -> heading
	stopCount      int
}

// Stops returns the ordered stop list for a heading.
func (r *RouteStops) Stops(heading string) []model.Stop { return r.byHeading[heading] }

// StopCount is the total number of stop definitions on the route across both
// headings (the terminal counted once per heading, as defined).
func (r *RouteStops) StopCount() int { return r.stopCount }

// HeadingOf returns the heading a non-terminal stop id belongs to, or "" when
// the id is unknown on this route or is the terminal itself.
func (r *RouteStops) HeadingOf(stopID int) string { return r.headingOf[stopID] }

// Catalog indexes route stop definitions by route id.
type Catalog struct {
	routes map[int]*RouteStops
}

// New validates and indexes the stop definitions. Per route it requires
// exactly one terminal stop id (shared by both headings), contiguous 1-based
// sequences within each heading, and disjoint non-terminal heading sets.
func New(stops []model.Stop) (*Catalog, error) {
	c := &Catalog{routes: make(map[int]*RouteStops)}

	for _, s := range stops {
		r, ok := c.routes[s.RouteID]
		if !ok {
			r = &RouteStops{
				RouteID:   s.RouteID,
				RouteName: s.RouteName,
				byHeading: make(map[string][]model.Stop),
				headingOf: make(map[int]string),
			}
			c.routes[s.RouteID] = r
		}
		if _, seen := r.byHeading[s.Heading]; !seen {
			r.Headings = append(r.Headings, s.Heading)
		}
		r.byHeading[s.Heading] = append(r.byHeading[s.Heading], s)
	}

	for routeID, r := range c.routes {
		if len(r.Headings) != 2 {
			return nil, fmt.Errorf("route %d: expected 2 headings, found %d", routeID, len(r.Headings))
		}
		sort.Strings(r.Headings)

		terminals := make(map[int]bool)
		for _, h := range r.Headings {
			seq := r.byHeading[h]
			sort.Slice(seq, func(i, j int) bool { return seq[i].Sequence < seq[j].Sequence })
			for i, s := range seq {
				if s.Sequence != i+1 {
					return nil, fmt.Errorf("route %d heading %s: sequence gap at position %d (got %d)",
						routeID, h, i+1, s.Sequence)
				}
				if s.IsTerminal {
					terminals[s.StopID] = true
				}
			}
			r.stopCount += len(seq)
		}
		if len(terminals) != 1 {
			return nil, fmt.Errorf("route %d: expected exactly one terminal stop id, found %d",
				routeID, len(terminals))
		}
		for id := range terminals {
			r.TerminalStopID = id
		}

		// Interior heading membership must be disjoint; the terminal may
		// legitimately appear in both headings' ordered lists.
		for _, h := range r.Headings {
			for _, s := range r.byHeading[h] {
				if s.StopID == r.TerminalStopID {
					continue
				}
				if prev, dup := r.headingOf[s.StopID]; dup && prev != h {
					return nil, fmt.Errorf("route %d: stop %d appears in both headings %s and %s",
						routeID, s.StopID, prev, h)
				}
				r.headingOf[s.StopID] = h
			}
		}
	}

	return c, nil
}

// Route returns the stop definition for a route, or false when the route has
// no reference data (such routes are skipped by the pipeline, not fatal).
func (c *Catalog) Route(routeID int) (*RouteStops, bool) {
	r, ok := c.routes[routeID]
	return r, ok
}

// RouteIDs lists the routes with reference data, ascending.
func (c *Catalog) RouteIDs() []int {
	ids := make([]int, 0, len(c.routes))
	for id := range c.routes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
