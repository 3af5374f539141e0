package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/automation"
	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/notify"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// NoResponseResult summarizes a no-response check.
type NoResponseResult struct {
	Days     int `json:"days"`
	Checked  int `json:"checked"`
	Matched  int `json:"matched"`
	Notified int `json:"notified"`
}

// AutomationService runs ticket automation rules outside the SLA sweep.
type AutomationService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	deduper    notify.Deduper
	clock      clock.Clock
	logger     *zap.Logger
	extra      []automation.Condition
	batchSize  int
	dedupTTL   time.Duration
}

// AutomationDependencies bundles collaborators for AutomationService.
type AutomationDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Deduper    notify.Deduper
	Clock      clock.Clock
	Logger     *zap.Logger
	// ExtraConditions narrow the built-in no-response rule.
	ExtraConditions []automation.Condition
	BatchSize       int
	DedupTTL        time.Duration
}

// NewAutomationService constructs the service.
func NewAutomationService(deps AutomationDependencies) *AutomationService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultSweepBatchSize
	}
	if deps.DedupTTL <= 0 {
		deps.DedupTTL = 24 * time.Hour
	}
	return &AutomationService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		deduper:    deps.Deduper,
		clock:      deps.Clock,
		logger:     deps.Logger,
		extra:      deps.ExtraConditions,
		batchSize:  deps.BatchSize,
		dedupTTL:   deps.DedupTTL,
	}
}

// CheckNoResponse publishes a no-response event for every open ticket idle for more than days.
func (s *AutomationService) CheckNoResponse(ctx context.Context, days int) (NoResponseResult, error) {
	if days <= 0 {
		return NoResponseResult{}, apperrors.NewValidationError("days must be positive", map[string]any{"days": days})
	}
	now := s.clock.Now()
	rule := automation.NoResponseRule(days, s.extra...)
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	result := NoResponseResult{Days: days}

	var afterID *string
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
			Statuses:      domain.OpenTicketStatuses,
			UpdatedBefore: &cutoff,
			AfterID:       afterID,
			Limit:         s.batchSize,
		})
		if err != nil {
			return result, fmt.Errorf("list idle tickets: %w", err)
		}
		for _, ticket := range batch {
			result.Checked++
			if !rule.Matches(ticket, now) {
				continue
			}
			result.Matched++
			if s.notifyNoResponse(ctx, ticket, days, now) {
				result.Notified++
			}
		}
		if len(batch) < s.batchSize {
			break
		}
		last := batch[len(batch)-1].ID
		afterID = &last
	}

	s.logger.Info("no-response check finished",
		zap.Int("days", days),
		zap.Int("checked", result.Checked),
		zap.Int("matched", result.Matched),
		zap.Int("notified", result.Notified))
	return result, nil
}

func (s *AutomationService) notifyNoResponse(ctx context.Context, ticket domain.Ticket, days int, now time.Time) bool {
	if s.deduper != nil {
		first, err := s.deduper.FirstSeen(ctx, "no_response:"+strconv.Itoa(days)+":"+ticket.ID, s.dedupTTL)
		if err != nil {
			s.logger.Warn("no-response dedup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return false
		}
		if !first {
			return false
		}
	}
	if s.dispatcher == nil {
		return false
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketNoResponse,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketNoResponsePayload{
			Title:           ticket.Title,
			HoursSinceReply: now.Sub(ticket.UpdatedAt).Hours(),
			LastActivity:    ticket.UpdatedAt,
			AssignedTo:      ticket.AssignedTo,
			CreatedBy:       ticket.CreatedBy,
			SLADueDate:      ticket.SLADueDate,
		},
	})
	return true
}
