package sla

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

var (
	// ErrPolicyNotFound means neither a sector override nor a default exists.
	ErrPolicyNotFound = errors.New("sla: policy not found")
	// ErrInvalidPolicy means a configured policy carries an unusable budget.
	ErrInvalidPolicy = errors.New("sla: invalid policy")
)

// PolicySource tells where a resolved policy came from.
type PolicySource string

const (
	PolicySourceSector  PolicySource = "sector"
	PolicySourceDefault PolicySource = "default"
)

// Policy is the SLA budget that applies to a ticket.
// EscalationHours defaults to SLAHours, so the first escalation fires exactly at breach.
type Policy struct {
	SLAHours        float64
	EscalationHours float64
	EscalationTo    *string
	Source          PolicySource
}

// DefaultPolicies is the system-wide SLA budget in hours keyed by priority.
type DefaultPolicies map[domain.TicketPriority]float64

// ConfigLookup finds a sector override. It returns nil, nil when no row exists.
type ConfigLookup interface {
	FindSectorSLAConfig(ctx context.Context, sectorID string, priority domain.TicketPriority) (*domain.SectorSLAConfig, error)
}

// PolicyResolver maps (sector, priority) to a Policy.
type PolicyResolver struct {
	lookup   ConfigLookup
	defaults DefaultPolicies
}

// NewPolicyResolver builds a resolver. lookup may be nil to use defaults only.
func NewPolicyResolver(lookup ConfigLookup, defaults DefaultPolicies) *PolicyResolver {
	return &PolicyResolver{lookup: lookup, defaults: defaults}
}

// Resolve returns the sector override for the priority, else the default for the priority.
func (r *PolicyResolver) Resolve(ctx context.Context, sectorID *string, priority domain.TicketPriority) (Policy, error) {
	if sectorID != nil && r.lookup != nil {
		cfg, err := r.lookup.FindSectorSLAConfig(ctx, *sectorID, priority)
		if err != nil {
			return Policy{}, fmt.Errorf("lookup sector sla config: %w", err)
		}
		if cfg != nil {
			return policyFromConfig(cfg)
		}
	}

	hours, ok := r.defaults[priority]
	if !ok {
		return Policy{}, fmt.Errorf("%w: sector=%s priority=%s", ErrPolicyNotFound, derefOr(sectorID, "<none>"), priority)
	}
	if hours <= 0 {
		return Policy{}, fmt.Errorf("%w: default for priority %s has %.2f hours", ErrInvalidPolicy, priority, hours)
	}
	return Policy{
		SLAHours:        hours,
		EscalationHours: hours,
		Source:          PolicySourceDefault,
	}, nil
}

func policyFromConfig(cfg *domain.SectorSLAConfig) (Policy, error) {
	if cfg.SLAHours <= 0 {
		return Policy{}, fmt.Errorf("%w: sector=%s priority=%s has %.2f hours",
			ErrInvalidPolicy, cfg.SectorID, cfg.Priority, cfg.SLAHours)
	}
	policy := Policy{
		SLAHours:        cfg.SLAHours,
		EscalationHours: cfg.SLAHours,
		EscalationTo:    cfg.EscalationTo,
		Source:          PolicySourceSector,
	}
	if cfg.EscalationHours != nil && *cfg.EscalationHours > 0 {
		policy.EscalationHours = *cfg.EscalationHours
	}
	return policy, nil
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
