package sla

import (
	"math"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// Status is the SLA verdict shown to users.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusOverdue Status = "overdue"
)

// DefaultWarningPercent is the consumption at which a ticket turns to warning.
const DefaultWarningPercent = 80.0

// Evaluation is the per-ticket SLA verdict.
type Evaluation struct {
	TicketID       string
	Applies        bool
	Status         Status
	Percentage     float64
	ConsumedHours  float64
	SLAHours       float64
	HoursRemaining *float64
	HoursOverdue   *float64
	DueDate        *time.Time
	EvaluatedAt    time.Time
	// Reason explains why the SLA does not apply.
	Reason string
}

// Evaluator turns consumption into a Status.
type Evaluator struct {
	WarningPercent float64
}

// NewEvaluator returns an evaluator; thresholds outside (0, 100) fall back to the default.
func NewEvaluator(warningPercent float64) Evaluator {
	if warningPercent <= 0 || warningPercent >= 100 {
		warningPercent = DefaultWarningPercent
	}
	return Evaluator{WarningPercent: warningPercent}
}

// Evaluate computes the verdict of ticket at now. Closed tickets stop accruing at UpdatedAt.
func (e Evaluator) Evaluate(ticket domain.Ticket, policy Policy, cal *Calendar, pauses []domain.SLAPause, now time.Time) Evaluation {
	end := now
	if ticket.Status.IsClosed() {
		end = ticket.UpdatedAt
	}

	consumed := BusinessTimeBetween(cal, ticket.CreatedAt, end, pauses).Hours()
	percentage := consumed / policy.SLAHours * 100

	eval := Evaluation{
		TicketID:      ticket.ID,
		Applies:       true,
		Percentage:    percentage,
		ConsumedHours: consumed,
		SLAHours:      policy.SLAHours,
		EvaluatedAt:   now,
	}

	warning := e.WarningPercent
	if warning <= 0 {
		warning = DefaultWarningPercent
	}
	switch {
	case percentage >= 100:
		eval.Status = StatusOverdue
		eval.HoursOverdue = floatPtr(math.Max(consumed-policy.SLAHours, 0))
	case percentage >= warning:
		eval.Status = StatusWarning
		eval.HoursRemaining = floatPtr(policy.SLAHours - consumed)
	default:
		eval.Status = StatusOK
		eval.HoursRemaining = floatPtr(policy.SLAHours - consumed)
	}

	budget := time.Duration(policy.SLAHours * float64(time.Hour))
	if due, ok := AddBusinessTime(cal, ticket.CreatedAt, budget, ClosePausesAt(pauses, end)); ok {
		eval.DueDate = &due
	}
	return eval
}

// NotApplicable is the verdict for tickets no policy covers.
func NotApplicable(ticket domain.Ticket, reason string, now time.Time) Evaluation {
	return Evaluation{
		TicketID:    ticket.ID,
		Applies:     false,
		Status:      StatusOK,
		EvaluatedAt: now,
		Reason:      reason,
	}
}

// PlanEscalation returns the levels whose boundary (escalationHours * level) has been
// reached and that are above the highest level already recorded, capped at maxLevel.
func PlanEscalation(consumedHours, escalationHours float64, highestRecorded, maxLevel int) []int {
	if escalationHours <= 0 || consumedHours < escalationHours {
		return nil
	}
	reached := int(math.Floor(consumedHours / escalationHours))
	if maxLevel > 0 && reached > maxLevel {
		reached = maxLevel
	}
	var levels []int
	for level := highestRecorded + 1; level <= reached; level++ {
		levels = append(levels, level)
	}
	return levels
}

func floatPtr(v float64) *float64 {
	return &v
}
