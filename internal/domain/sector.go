package domain

import "time"

// Sector represents a support area tickets are routed to.
type Sector struct {
	ID        string
	Name      string
	TimeZone  *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
