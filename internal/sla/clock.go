package sla

import (
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// BusinessTimeBetween returns the business time inside [start, end) minus the union of
// pauses. Open pauses are treated as lasting until end. The result is never negative.
func BusinessTimeBetween(cal *Calendar, start, end time.Time, pauses []domain.SLAPause) time.Duration {
	if !end.After(start) {
		return 0
	}
	paused := mergePauses(pauses, start, end)

	var total time.Duration
	for day := cal.midnight(start); day.Before(end); day = cal.nextDay(day) {
		for _, iv := range cal.dayIntervals(day) {
			iv = iv.clip(start, end)
			if iv.empty() {
				continue
			}
			for _, free := range subtract(iv, paused) {
				total += free.Duration()
			}
		}
	}
	return total
}

// AddBusinessTime returns the instant at which budget business time has elapsed since
// start, skipping pauses. An open pause never ends, so a budget that is not used up before
// it starts has no due date. The boolean is false when no due date exists within the
// search horizon.
func AddBusinessTime(cal *Calendar, start time.Time, budget time.Duration, pauses []domain.SLAPause) (time.Time, bool) {
	if budget <= 0 {
		return start, true
	}
	horizon := cal.midnight(start).AddDate(0, 0, searchHorizonDays)
	paused := mergePauses(pauses, start, horizon)

	remaining := budget
	for day := cal.midnight(start); day.Before(horizon); day = cal.nextDay(day) {
		for _, iv := range cal.dayIntervals(day) {
			iv = iv.clip(start, horizon)
			if iv.empty() {
				continue
			}
			for _, free := range subtract(iv, paused) {
				length := free.Duration()
				if remaining <= length {
					return free.Start.Add(remaining), true
				}
				remaining -= length
			}
		}
	}
	return time.Time{}, false
}

// ClosePausesAt returns a copy of pauses with every open pause resumed at t.
func ClosePausesAt(pauses []domain.SLAPause, t time.Time) []domain.SLAPause {
	out := make([]domain.SLAPause, len(pauses))
	copy(out, pauses)
	for i := range out {
		if out[i].ResumedAt == nil {
			resumed := t
			out[i].ResumedAt = &resumed
		}
	}
	return out
}

// mergePauses clips pauses to [start, end] and unions overlapping ones.
func mergePauses(pauses []domain.SLAPause, start, end time.Time) []Interval {
	spans := make([]Interval, 0, len(pauses))
	for _, p := range pauses {
		iv := Interval{Start: p.PausedAt, End: end}
		if p.ResumedAt != nil {
			iv.End = *p.ResumedAt
		}
		iv = iv.clip(start, end)
		if iv.empty() {
			continue
		}
		spans = append(spans, iv)
	}
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })
	merged := []Interval{spans[0]}
	for _, iv := range spans[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtract removes the sorted, disjoint holes from iv.
func subtract(iv Interval, holes []Interval) []Interval {
	out := []Interval{}
	cursor := iv.Start
	for _, h := range holes {
		if !h.End.After(cursor) {
			continue
		}
		if !h.Start.Before(iv.End) {
			break
		}
		if h.Start.After(cursor) {
			out = append(out, Interval{Start: cursor, End: h.Start})
		}
		cursor = h.End
		if !cursor.Before(iv.End) {
			return out
		}
	}
	if iv.End.After(cursor) {
		out = append(out, Interval{Start: cursor, End: iv.End})
	}
	return out
}
