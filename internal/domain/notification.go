package domain

import "time"

// NotificationType classifies user-facing notifications.
type NotificationType string

const (
	NotificationSLAWarning   NotificationType = "sla_warning"
	NotificationSLAEscalated NotificationType = "sla_escalated"
	NotificationNoResponse   NotificationType = "ticket_no_response"
)

// Notification is a persisted user-facing message.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	TicketID  *string
	IsRead    bool
	CreatedAt time.Time
}
