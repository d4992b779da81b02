package calendar

import (
	"errors"
	"time"
	_ "time/tzdata" // library zone must resolve without host zoneinfo
)

// DefaultZone is the library's local time zone.
const DefaultZone = "Asia/Manila"

// ErrInvalidDays is returned for a negative loan length.
var ErrInvalidDays = errors.New("business days must not be negative")

// Clock anchors all date computation to a single location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock loads the named zone. An empty name selects DefaultZone.
func NewClock(zone string) (*Clock, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// FixedClock returns a clock that always reports at, converted to loc.
func FixedClock(loc *time.Location, at time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return at }}
}

// Location returns the library zone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current moment in the library zone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Today returns midnight of the current library-local day.
func (c *Clock) Today() time.Time { return DateOf(c.Now(), c.loc) }

// Tomorrow returns midnight of the next library-local day.
func (c *Clock) Tomorrow() time.Time { return c.Today().AddDate(0, 0, 1) }

// Yesterday returns midnight of the previous library-local day.
func (c *Clock) Yesterday() time.Time { return c.Today().AddDate(0, 0, -1) }

// DateOf re-anchors the calendar date of t (as seen in t's own location) to midnight in loc.
// Dates read back from the store come out as UTC midnight and go through here.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ReturnDate advances from start one calendar day at a time and stops once businessDays
// non-weekend days have been passed. The start date itself never counts.
func ReturnDate(start time.Time, businessDays int) (time.Time, error) {
	if businessDays < 0 {
		return time.Time{}, ErrInvalidDays
	}
	day := DateOf(start, start.Location())
	for counted := 0; counted < businessDays; {
		day = day.AddDate(0, 0, 1)
		if !IsWeekend(day) {
			counted++
		}
	}
	return day, nil
}

// FormatDate renders a date the way the store and mail templates expect.
func FormatDate(t time.Time) string { return t.Format(time.DateOnly) }
