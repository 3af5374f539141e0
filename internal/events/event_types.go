package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAWarning       EventType = "sla_warning"
	EventSLAEscalated     EventType = "sla_escalated"
	EventTicketNoResponse EventType = "ticket_no_response"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLAWarningPayload payload.
type SLAWarningPayload struct {
	Title          string     `json:"title"`
	Percentage     float64    `json:"percentage"`
	HoursRemaining float64    `json:"hours_remaining"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
}

// SLAEscalatedPayload payload.
type SLAEscalatedPayload struct {
	Title         string  `json:"title"`
	Level         int     `json:"level"`
	Reason        string  `json:"reason"`
	Percentage    float64 `json:"percentage"`
	EscalatedFrom *string `json:"escalated_from,omitempty"`
	EscalatedTo   *string `json:"escalated_to,omitempty"`
}

// TicketNoResponsePayload payload.
type TicketNoResponsePayload struct {
	Title           string     `json:"title"`
	HoursSinceReply float64    `json:"hours_since_update"`
	LastActivity    time.Time  `json:"last_activity"`
	AssignedTo      *string    `json:"assigned_to,omitempty"`
	CreatedBy       *string    `json:"created_by,omitempty"`
	SLADueDate      *time.Time `json:"sla_due_date,omitempty"`
}
