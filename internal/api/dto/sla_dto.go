package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// SLAStatusResponse is the SLA verdict of one ticket. Hour and percentage values carry two decimals.
type SLAStatusResponse struct {
	TicketID       string                `json:"ticket_id"`
	Priority       domain.TicketPriority `json:"priority"`
	TicketStatus   domain.TicketStatus   `json:"ticket_status"`
	Applies        bool                  `json:"applies"`
	Status         string                `json:"status"`
	Percentage     float64               `json:"percentage"`
	ConsumedHours  float64               `json:"consumed_hours"`
	SLAHours       float64               `json:"sla_hours"`
	HoursRemaining *float64              `json:"hours_remaining"`
	HoursOverdue   *float64              `json:"hours_overdue"`
	DueDate        *time.Time            `json:"due_date"`
	EvaluatedAt    time.Time             `json:"evaluated_at"`
	Reason         string                `json:"reason,omitempty"`
}

// EscalationResponse is one row of the escalation log.
type EscalationResponse struct {
	ID            string    `json:"id"`
	Level         int       `json:"escalation_level"`
	EscalatedFrom *string   `json:"escalated_from"`
	EscalatedTo   *string   `json:"escalated_to"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// PauseRequest payload.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// PauseResponse describes a pause interval.
type PauseResponse struct {
	ID        string     `json:"id"`
	TicketID  string     `json:"ticket_id"`
	Reason    string     `json:"reason"`
	PausedAt  time.Time  `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at"`
}

// TriggerResponse is returned by scheduler-facing endpoints.
type TriggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}
