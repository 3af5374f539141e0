package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "aberto"
	TicketStatusInProgress TicketStatus = "em_atendimento"
	TicketStatusWaiting    TicketStatus = "aguardando"
	TicketStatusClosed     TicketStatus = "fechado"
)

// OpenTicketStatuses lists the states in which SLA keeps accruing.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaiting,
}

// IsClosed reports whether SLA accrual stopped for the status.
func (s TicketStatus) IsClosed() bool {
	return s == TicketStatusClosed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaiting, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "baixa"
	TicketPriorityMedium   TicketPriority = "media"
	TicketPriorityHigh     TicketPriority = "alta"
	TicketPriorityCritical TicketPriority = "critica"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the subset of a help-desk ticket the SLA engine reads.
type Ticket struct {
	ID         string
	Title      string
	SectorID   *string
	Priority   TicketPriority
	Status     TicketStatus
	AssignedTo *string
	CreatedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	SLADueDate *time.Time
}
