// Package sla holds the business-time arithmetic behind ticket SLAs: calendars,
// elapsed business time, policy resolution, status evaluation and escalation planning.
// Nothing in this package performs I/O; callers load the rows and pass them in.
package sla

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// searchHorizonDays bounds forward searches over the calendar.
const searchHorizonDays = 2 * 366

const secondsPerDay = 24 * 60 * 60

var (
	// ErrMalformedWindow reports a business-hours row that cannot be used.
	ErrMalformedWindow = errors.New("sla: malformed business hours window")
	// ErrNoBusinessHours reports a calendar without any usable window.
	ErrNoBusinessHours = errors.New("sla: no active business hours")
)

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the interval length, zero when empty.
func (i Interval) Duration() time.Duration {
	if !i.End.After(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

func (i Interval) empty() bool {
	return !i.End.After(i.Start)
}

func (i Interval) clip(start, end time.Time) Interval {
	if i.Start.Before(start) {
		i.Start = start
	}
	if i.End.After(end) {
		i.End = end
	}
	return i
}

// window is an opening range in seconds since local midnight.
type window struct {
	start int
	end   int
}

type holiday struct {
	year      int
	month     time.Month
	day       int
	recurring bool
}

// Calendar answers business-time questions for one sector in one time zone.
type Calendar struct {
	loc        *time.Location
	week       [7][]window
	holidays   []holiday
	alwaysOpen bool
	problems   []error
}

// NewCalendar builds a calendar from already selected business hours and holidays.
// Unusable windows are dropped and reported by Problems. When no usable window remains
// on any weekday the calendar is always open, so consumption keeps accruing.
func NewCalendar(loc *time.Location, hours []domain.BusinessHours, holidays []domain.Holiday) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	cal := &Calendar{loc: loc}

	for _, h := range hours {
		if !h.IsActive {
			continue
		}
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			cal.problems = append(cal.problems, fmt.Errorf("%w: day_of_week %d", ErrMalformedWindow, h.DayOfWeek))
			continue
		}
		start, err := parseClock(h.StartTime)
		if err != nil {
			cal.problems = append(cal.problems, fmt.Errorf("%w: start_time %q", ErrMalformedWindow, h.StartTime))
			continue
		}
		end, err := parseClock(h.EndTime)
		if err != nil {
			cal.problems = append(cal.problems, fmt.Errorf("%w: end_time %q", ErrMalformedWindow, h.EndTime))
			continue
		}
		if end <= start {
			cal.problems = append(cal.problems, fmt.Errorf("%w: %s-%s on day %d does not end after it starts",
				ErrMalformedWindow, h.StartTime, h.EndTime, h.DayOfWeek))
			continue
		}
		cal.week[h.DayOfWeek] = append(cal.week[h.DayOfWeek], window{start: start, end: end})
	}

	usable := false
	for day := range cal.week {
		cal.week[day] = mergeWindows(cal.week[day])
		if len(cal.week[day]) > 0 {
			usable = true
		}
	}
	if !usable {
		cal.alwaysOpen = true
		cal.problems = append(cal.problems, ErrNoBusinessHours)
	}

	for _, h := range holidays {
		cal.holidays = append(cal.holidays, holiday{
			year:      h.Date.Year(),
			month:     h.Date.Month(),
			day:       h.Date.Day(),
			recurring: h.IsRecurring,
		})
	}
	return cal
}

// Location returns the time zone wall-clock comparisons happen in.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Problems lists configuration issues found while building the calendar.
func (c *Calendar) Problems() []error {
	return c.problems
}

// AlwaysOpen reports whether the calendar fell back to 24x7 accrual.
func (c *Calendar) AlwaysOpen() bool {
	return c.alwaysOpen
}

// IsBusinessTime reports whether t falls inside an opening window.
func (c *Calendar) IsBusinessTime(t time.Time) bool {
	for _, iv := range c.dayIntervals(c.midnight(t)) {
		if !t.Before(iv.Start) && t.Before(iv.End) {
			return true
		}
	}
	return false
}

// NextBusinessInstant returns t itself when it is business time, otherwise the start of
// the next opening window. The boolean is false when nothing opens within the search horizon.
func (c *Calendar) NextBusinessInstant(t time.Time) (time.Time, bool) {
	day := c.midnight(t)
	for i := 0; i < searchHorizonDays; i++ {
		for _, iv := range c.dayIntervals(day) {
			if !iv.End.After(t) {
				continue
			}
			if iv.Start.After(t) {
				return iv.Start, true
			}
			return t, true
		}
		day = c.nextDay(day)
	}
	return time.Time{}, false
}

// IsHoliday reports whether the local date of t is a holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	local := t.In(c.loc)
	for _, h := range c.holidays {
		if h.month != local.Month() || h.day != local.Day() {
			continue
		}
		if h.recurring || h.year == local.Year() {
			return true
		}
	}
	return false
}

// dayIntervals materialises the opening windows of the local day starting at day.
func (c *Calendar) dayIntervals(day time.Time) []Interval {
	if c.IsHoliday(day) {
		return nil
	}
	next := c.nextDay(day)
	if c.alwaysOpen {
		return []Interval{{Start: day, End: next}}
	}
	windows := c.week[int(day.Weekday())]
	if len(windows) == 0 {
		return nil
	}
	y, m, d := day.Date()
	out := make([]Interval, 0, len(windows))
	for _, w := range windows {
		out = append(out, Interval{
			Start: time.Date(y, m, d, 0, 0, w.start, 0, c.loc),
			End:   time.Date(y, m, d, 0, 0, w.end, 0, c.loc),
		})
	}
	return out
}

func (c *Calendar) midnight(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

func (c *Calendar) nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}

func mergeWindows(windows []window) []window {
	if len(windows) < 2 {
		return windows
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })
	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// parseClock converts "HH:MM" or "HH:MM:SS" into seconds since midnight. "24:00" is accepted.
func parseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	var fields [3]int
	for i, part := range parts {
		// Postgres may render fractional seconds.
		if i == 2 {
			part, _, _ = strings.Cut(part, ".")
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock value %q", value)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	seconds := fields[0]*3600 + fields[1]*60 + fields[2]
	if seconds > secondsPerDay {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return seconds, nil
}

// SelectBusinessHours returns the sector's own rows, or the global rows when the
// sector has none.
func SelectBusinessHours(sectorID *string, rows []domain.BusinessHours) []domain.BusinessHours {
	var sector, global []domain.BusinessHours
	for _, row := range rows {
		switch {
		case row.SectorID == nil:
			global = append(global, row)
		case sectorID != nil && *row.SectorID == *sectorID:
			sector = append(sector, row)
		}
	}
	if len(sector) > 0 {
		return sector
	}
	return global
}

// SelectHolidays keeps global holidays plus the ones scoped to the sector.
func SelectHolidays(sectorID *string, rows []domain.Holiday) []domain.Holiday {
	out := make([]domain.Holiday, 0, len(rows))
	for _, row := range rows {
		if row.SectorID == nil || (sectorID != nil && *row.SectorID == *sectorID) {
			out = append(out, row)
		}
	}
	return out
}
