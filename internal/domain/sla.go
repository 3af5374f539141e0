package domain

import "time"

// SectorSLAConfig overrides the SLA budget for one (sector, priority) pair.
type SectorSLAConfig struct {
	ID              string
	SectorID        string
	Priority        TicketPriority
	SLAHours        float64
	EscalationHours *float64
	EscalationTo    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BusinessHours is one weekly opening window. SectorID nil means global.
// StartTime and EndTime use the "15:04" or "15:04:05" layout.
type BusinessHours struct {
	ID        string
	SectorID  *string
	DayOfWeek int
	StartTime string
	EndTime   string
	IsActive  bool
}

// Holiday marks a full non-business day. SectorID nil means global.
type Holiday struct {
	ID          string
	Name        string
	Date        time.Time
	IsRecurring bool
	SectorID    *string
}

// SLAPause is an interval excluded from SLA consumption. ResumedAt nil means still paused.
type SLAPause struct {
	ID        string
	TicketID  string
	Reason    string
	PausedAt  time.Time
	ResumedAt *time.Time
}

// TicketEscalation is an append-only escalation log entry.
type TicketEscalation struct {
	ID              string
	TicketID        string
	EscalatedFrom   *string
	EscalatedTo     *string
	Reason          string
	EscalationLevel int
	CreatedAt       time.Time
}
