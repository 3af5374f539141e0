package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func errorCode(err error) string {
	return apperrors.ToDomainError(err).Code
}

func TestEvaluateTicket(t *testing.T) {
	h := newHarness(at(10, 14, 0, 0), openTicket("t-1", at(7, 16, 0, 0)))

	ticket, eval, err := h.sla.EvaluateTicket(context.Background(), "t-1")
	require.NoError(t, err)

	assert.Equal(t, "t-1", ticket.ID)
	assert.True(t, eval.Applies)
	assert.Equal(t, sla.StatusWarning, eval.Status)
	assert.InDelta(t, 87.5, eval.Percentage, 1e-9)
	assert.True(t, eval.EvaluatedAt.Equal(at(10, 14, 0, 0)))
}

func TestEvaluateTicketNotFound(t *testing.T) {
	h := newHarness(at(10, 14, 0, 0))

	_, _, err := h.sla.EvaluateTicket(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}

func TestEvaluateWithoutPolicyIsNotApplicable(t *testing.T) {
	ticket := openTicket("t-1", at(7, 16, 0, 0))
	ticket.Priority = "urgente"
	h := newHarness(at(10, 14, 0, 0), ticket)

	_, eval, err := h.sla.EvaluateTicket(context.Background(), "t-1")
	require.NoError(t, err)

	assert.False(t, eval.Applies)
	assert.Contains(t, eval.Reason, "policy not found")
}

func TestPauseAndResumeMoveDueDate(t *testing.T) {
	h := newHarness(at(7, 17, 0, 0), openTicket("t-1", at(7, 16, 0, 0)))
	ctx := context.Background()

	pause, err := h.sla.PauseTicket(ctx, "t-1", "agent-1", "  waiting for customer ")
	require.NoError(t, err)
	assert.Equal(t, "waiting for customer", pause.Reason)
	assert.True(t, pause.PausedAt.Equal(at(7, 17, 0, 0)))

	_, err = h.sla.PauseTicket(ctx, "t-1", "agent-1", "again")
	assert.Equal(t, "CONFLICT", errorCode(err))

	h.clock.Set(at(10, 9, 0, 0))
	resumed, err := h.sla.ResumeTicket(ctx, "t-1", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, resumed.ResumedAt)

	// The hour lost on Friday 17:00-18:00 pushes the due date from 15:00 to 16:00.
	ticket := h.tickets.get("t-1")
	require.NotNil(t, ticket.SLADueDate)
	assert.True(t, ticket.SLADueDate.Equal(at(10, 16, 0, 0)), "got %s", ticket.SLADueDate)

	assert.Equal(t, []domain.TicketChangeType{domain.ChangeTypeSLAPaused, domain.ChangeTypeSLAResumed}, h.history.changes("t-1"))
	for _, row := range h.history.rows {
		assert.Equal(t, domain.ActorUser, row.ChangedByType)
		assert.Equal(t, "agent-1", *row.ChangedByID)
	}
}

func TestPauseSucceedsWhenHistoryFails(t *testing.T) {
	h := newHarness(at(7, 17, 0, 0), openTicket("t-1", at(7, 16, 0, 0)))
	h.history.err = errBoom

	_, err := h.sla.PauseTicket(context.Background(), "t-1", "", "")
	require.NoError(t, err)
	assert.Len(t, h.pauses.rows, 1)
}

func TestResumeWithoutOpenPauseConflicts(t *testing.T) {
	h := newHarness(at(7, 17, 0, 0), openTicket("t-1", at(7, 16, 0, 0)))

	_, err := h.sla.ResumeTicket(context.Background(), "t-1", "")
	assert.Equal(t, "CONFLICT", errorCode(err))
}

func TestPauseClosedTicketConflicts(t *testing.T) {
	ticket := openTicket("t-1", at(7, 16, 0, 0))
	ticket.Status = domain.TicketStatusClosed
	h := newHarness(at(7, 17, 0, 0), ticket)

	_, err := h.sla.PauseTicket(context.Background(), "t-1", "", "")
	assert.Equal(t, "CONFLICT", errorCode(err))
	assert.Empty(t, h.pauses.rows)
}

func TestRefreshDueDateStoresProjection(t *testing.T) {
	h := newHarness(at(7, 17, 0, 0), openTicket("t-1", at(7, 16, 0, 0)))

	due, err := h.sla.RefreshDueDate(context.Background(), "t-1")
	require.NoError(t, err)

	require.NotNil(t, due)
	assert.True(t, due.Equal(at(10, 15, 0, 0)))
	assert.True(t, h.tickets.get("t-1").SLADueDate.Equal(*due))
}

func TestCalendarForSectorUsesSectorTimeZone(t *testing.T) {
	sectors := fakeSectors{
		"utc":    {ID: "utc", TimeZone: strPtr("UTC")},
		"bogus":  {ID: "bogus", TimeZone: strPtr("Mars/Olympus_Mons")},
		"manaus": {ID: "manaus", TimeZone: strPtr("America/Manaus")},
	}
	svc := NewSLAService(SLADependencies{
		SectorRepo:   sectors,
		CalendarRepo: officeHours(),
		Location:     brt,
	})
	ctx := context.Background()

	cases := []struct {
		sector *string
		want   string
	}{
		{strPtr("utc"), "UTC"},
		{strPtr("manaus"), "America/Manaus"},
		{strPtr("bogus"), brt.String()},
		{strPtr("unknown"), brt.String()},
		{nil, brt.String()},
	}
	for _, tc := range cases {
		cal, err := svc.CalendarForSector(ctx, tc.sector)
		require.NoError(t, err)
		assert.Equal(t, tc.want, cal.Location().String())
	}

	cal, err := svc.CalendarForSector(ctx, strPtr("utc"))
	require.NoError(t, err)
	// Windows are read in the sector zone.
	assert.True(t, cal.IsBusinessTime(time.Date(2025, time.March, 10, 12, 30, 0, 0, time.UTC)))
	assert.False(t, cal.IsBusinessTime(time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)))
}

func TestListEscalations(t *testing.T) {
	h := newHarness(justPastBreach, openTicket("t-1", at(7, 16, 0, 0)))
	_, err := h.escalation.Sweep(context.Background())
	require.NoError(t, err)

	rows, err := h.sla.ListEscalations(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].EscalationLevel)
	assert.Contains(t, rows[0].Reason, "100%")

	_, err = h.sla.ListEscalations(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}
