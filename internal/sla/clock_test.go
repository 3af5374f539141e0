package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

func pause(from, to time.Time) domain.SLAPause {
	return domain.SLAPause{PausedAt: from, ResumedAt: &to}
}

func TestBusinessTimeAcrossWeekend(t *testing.T) {
	cal := officeCalendar()
	created := at(7, 16, 0)

	assert.Equal(t, 2*time.Hour, BusinessTimeBetween(cal, created, at(7, 18, 0), nil))
	assert.Equal(t, 2*time.Hour, BusinessTimeBetween(cal, created, at(9, 23, 0), nil))
	assert.Equal(t, 8*time.Hour, BusinessTimeBetween(cal, created, at(10, 15, 0), nil))
}

func TestBusinessTimeSubtractsPause(t *testing.T) {
	cal := officeCalendar()
	created := at(7, 16, 0)
	pauses := []domain.SLAPause{pause(at(7, 17, 0), at(7, 17, 30))}

	assert.Equal(t, 90*time.Minute, BusinessTimeBetween(cal, created, at(7, 18, 0), pauses))
	assert.Equal(t, 7*time.Hour+30*time.Minute, BusinessTimeBetween(cal, created, at(10, 15, 0), pauses))
	assert.Equal(t, 8*time.Hour, BusinessTimeBetween(cal, created, at(10, 15, 30), pauses))
}

func TestBusinessTimeInsidePauseIsZero(t *testing.T) {
	cal := officeCalendar()
	pauses := []domain.SLAPause{pause(at(10, 8, 0), at(10, 19, 0))}

	assert.Zero(t, BusinessTimeBetween(cal, at(10, 9, 0), at(10, 18, 0), pauses))
	assert.Zero(t, BusinessTimeBetween(cal, at(10, 11, 0), at(10, 12, 0), pauses))
}

func TestOverlappingPausesAreCountedOnce(t *testing.T) {
	cal := officeCalendar()
	pauses := []domain.SLAPause{
		pause(at(10, 10, 0), at(10, 12, 0)),
		pause(at(10, 11, 0), at(10, 13, 0)),
		pause(at(10, 11, 30), at(10, 11, 45)),
	}

	assert.Equal(t, 6*time.Hour, BusinessTimeBetween(cal, at(10, 9, 0), at(10, 18, 0), pauses))
}

func TestOpenPauseRunsUntilEnd(t *testing.T) {
	cal := officeCalendar()
	pauses := []domain.SLAPause{{PausedAt: at(10, 12, 0)}}

	assert.Equal(t, 3*time.Hour, BusinessTimeBetween(cal, at(10, 9, 0), at(10, 15, 0), pauses))
	assert.Equal(t, 3*time.Hour, BusinessTimeBetween(cal, at(10, 9, 0), at(12, 15, 0), pauses))
}

func TestBusinessTimeNeverNegative(t *testing.T) {
	cal := officeCalendar()

	assert.Zero(t, BusinessTimeBetween(cal, at(10, 15, 0), at(10, 9, 0), nil))
	assert.Zero(t, BusinessTimeBetween(cal, at(10, 15, 0), at(10, 15, 0), nil))
}

func TestHolidayAccruesNothing(t *testing.T) {
	cal := officeCalendar(domain.Holiday{Date: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)})

	assert.Zero(t, BusinessTimeBetween(cal, at(10, 0, 0), at(11, 0, 0), nil))
	assert.Equal(t, 2*time.Hour+time.Hour, BusinessTimeBetween(cal, at(7, 16, 0), at(11, 10, 0), nil))
}

func TestAddBusinessTime(t *testing.T) {
	cal := officeCalendar()
	created := at(7, 16, 0)

	due, ok := AddBusinessTime(cal, created, 8*time.Hour, nil)
	require.True(t, ok)
	assert.True(t, due.Equal(at(10, 15, 0)), "got %s", due)

	due, ok = AddBusinessTime(cal, created, 8*time.Hour, []domain.SLAPause{pause(at(7, 17, 0), at(7, 17, 30))})
	require.True(t, ok)
	assert.True(t, due.Equal(at(10, 15, 30)), "got %s", due)

	due, ok = AddBusinessTime(cal, created, 0, nil)
	require.True(t, ok)
	assert.True(t, due.Equal(created))
}

func TestAddBusinessTimeStartingOutsideHours(t *testing.T) {
	cal := officeCalendar()

	due, ok := AddBusinessTime(cal, at(8, 11, 0), 4*time.Hour, nil)
	require.True(t, ok)
	assert.True(t, due.Equal(at(10, 13, 0)), "got %s", due)
}

func TestAddBusinessTimeWithOpenPauseHasNoDueDate(t *testing.T) {
	cal := officeCalendar()

	_, ok := AddBusinessTime(cal, at(7, 16, 0), 8*time.Hour, []domain.SLAPause{{PausedAt: at(7, 17, 0)}})
	assert.False(t, ok)
}

func TestClosePausesAtLeavesInputUntouched(t *testing.T) {
	pauses := []domain.SLAPause{{PausedAt: at(7, 17, 0)}, pause(at(7, 10, 0), at(7, 11, 0))}

	closed := ClosePausesAt(pauses, at(7, 18, 0))

	require.NotNil(t, closed[0].ResumedAt)
	assert.True(t, closed[0].ResumedAt.Equal(at(7, 18, 0)))
	assert.True(t, closed[1].ResumedAt.Equal(at(7, 11, 0)))
	assert.Nil(t, pauses[0].ResumedAt)
}

func TestBusinessTimeAgreesWithAddBusinessTime(t *testing.T) {
	cal := officeCalendar(domain.Holiday{Date: time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)})
	pauses := []domain.SLAPause{pause(at(11, 10, 0), at(11, 14, 0))}
	created := at(7, 16, 0)

	for _, budget := range []time.Duration{time.Hour, 9 * time.Hour, 17*time.Hour + 30*time.Minute, 40 * time.Hour} {
		due, ok := AddBusinessTime(cal, created, budget, pauses)
		require.True(t, ok)
		assert.Equal(t, budget, BusinessTimeBetween(cal, created, due, pauses), "budget %s", budget)
	}
}
