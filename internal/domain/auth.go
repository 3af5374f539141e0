package domain

// Role enumerates caller roles carried in access tokens.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAgent     Role = "agent"
	RoleUser      Role = "user"
	RoleScheduler Role = "scheduler"
)
