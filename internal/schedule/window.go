// Package schedule decides whether the sync may run at a given instant.
package schedule

import (
	"fmt"
	"time"
)

const displayLayout = "02.01.2006 15:04:05"

// Window is a daily range of hours in a fixed timezone. Start is inclusive and
// End exclusive; when End <= Start the window wraps past midnight.
type Window struct {
	loc   *time.Location
	start int
	end   int
}

// NewWindow validates the hours and returns a window in loc.
func NewWindow(loc *time.Location, startHour, endHour int) (Window, error) {
	if loc == nil {
		return Window{}, fmt.Errorf("schedule timezone is required")
	}
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 {
		return Window{}, fmt.Errorf("schedule hours must be within 0-23, got %d-%d", startHour, endHour)
	}
	return Window{loc: loc, start: startHour, end: endHour}, nil
}

func (w Window) Location() *time.Location {
	return w.loc
}

// IsWithin reports whether now falls inside the window.
func (w Window) IsWithin(now time.Time) bool {
	hour := now.In(w.loc).Hour()
	if w.start == w.end {
		return true
	}
	if w.start < w.end {
		return hour >= w.start && hour < w.end
	}
	return hour >= w.start || hour < w.end
}

// NextRun returns the next instant the sync is expected to fire: the top of
// the next hour while inside the window, otherwise the next opening.
func (w Window) NextRun(now time.Time) time.Time {
	local := now.In(w.loc)
	if w.IsWithin(now) {
		top := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, w.loc)
		return top.Add(time.Hour)
	}
	opening := time.Date(local.Year(), local.Month(), local.Day(), w.start, 0, 0, 0, w.loc)
	if !opening.After(local) {
		opening = opening.AddDate(0, 0, 1)
	}
	return opening
}

// Format renders t in the window's timezone for log lines.
func (w Window) Format(t time.Time) string {
	local := t.In(w.loc)
	return local.Format(displayLayout) + " " + local.Format("MST")
}
