package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/notify"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

const defaultSweepBatchSize = 200

// SweepResult summarizes one escalation sweep.
type SweepResult struct {
	Processed int           `json:"processed"`
	Escalated int           `json:"escalated"`
	Warnings  int           `json:"warnings"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
}

// EscalationService walks open tickets and records escalations once per level.
type EscalationService struct {
	tickets     repository.TicketRepository
	pauses      repository.SLAPauseRepository
	escalations repository.EscalationRepository
	history     repository.TicketHistoryRepository
	sla         *SLAService
	dispatcher  events.Dispatcher
	deduper     notify.Deduper
	metrics     *observability.Metrics
	clock       clock.Clock
	logger      *zap.Logger

	batchSize       int
	maxLevel        int
	warningDedupTTL time.Duration
}

// EscalationDependencies bundles collaborators for EscalationService.
type EscalationDependencies struct {
	TicketRepo      repository.TicketRepository
	PauseRepo       repository.SLAPauseRepository
	EscalationRepo  repository.EscalationRepository
	HistoryRepo     repository.TicketHistoryRepository
	SLA             *SLAService
	Dispatcher      events.Dispatcher
	Deduper         notify.Deduper
	Metrics         *observability.Metrics
	Clock           clock.Clock
	Logger          *zap.Logger
	BatchSize       int
	MaxLevel        int
	WarningDedupTTL time.Duration
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultSweepBatchSize
	}
	if deps.WarningDedupTTL <= 0 {
		deps.WarningDedupTTL = 24 * time.Hour
	}
	return &EscalationService{
		tickets:         deps.TicketRepo,
		pauses:          deps.PauseRepo,
		escalations:     deps.EscalationRepo,
		history:         deps.HistoryRepo,
		sla:             deps.SLA,
		dispatcher:      deps.Dispatcher,
		deduper:         deps.Deduper,
		metrics:         deps.Metrics,
		clock:           deps.Clock,
		logger:          deps.Logger,
		batchSize:       deps.BatchSize,
		maxLevel:        deps.MaxLevel,
		warningDedupTTL: deps.WarningDedupTTL,
	}
}

type sweepOutcome int

const (
	outcomeUnchanged sweepOutcome = iota
	outcomeSkipped
	outcomeWarned
	outcomeEscalated
)

// Sweep evaluates every open ticket. Failures on one ticket are logged and counted; only failures
// to read the ticket list abort the sweep.
func (s *EscalationService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	started := time.Now()
	result := SweepResult{StartedAt: now}
	calendars := make(map[string]*sla.Calendar)

	defer func() {
		result.Duration = time.Since(started)
		s.metrics.RecordSweep(map[string]int{
			"processed": result.Processed,
			"escalated": result.Escalated,
			"warned":    result.Warnings,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
		}, result.Duration)
	}()

	var afterID *string
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
			Statuses: domain.OpenTicketStatuses,
			AfterID:  afterID,
			Limit:    s.batchSize,
		})
		if err != nil {
			return result, fmt.Errorf("list open tickets: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		ids := make([]string, len(batch))
		for i, ticket := range batch {
			ids[i] = ticket.ID
		}
		pauses, err := s.pauses.ListByTickets(ctx, ids)
		if err != nil {
			return result, fmt.Errorf("list pauses: %w", err)
		}

		for _, ticket := range batch {
			result.Processed++
			outcome, err := s.sweepTicket(ctx, ticket, pauses[ticket.ID], calendars, now)
			if err != nil {
				result.Failed++
				s.logger.Error("sla sweep failed for ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
				continue
			}
			switch outcome {
			case outcomeEscalated:
				result.Escalated++
			case outcomeWarned:
				result.Warnings++
			case outcomeSkipped:
				result.Skipped++
			}
		}

		last := batch[len(batch)-1].ID
		afterID = &last
		if len(batch) < s.batchSize {
			break
		}
	}

	s.logger.Info("sla sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("escalated", result.Escalated),
		zap.Int("warnings", result.Warnings),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *EscalationService) sweepTicket(ctx context.Context, ticket domain.Ticket, pauses []domain.SLAPause, calendars map[string]*sla.Calendar, now time.Time) (sweepOutcome, error) {
	cal, err := s.calendarFor(ctx, ticket.SectorID, calendars)
	if err != nil {
		return outcomeUnchanged, err
	}
	eval, policy, err := s.sla.evaluateWith(ctx, ticket, cal, pauses, now)
	if err != nil {
		return outcomeUnchanged, err
	}
	if !eval.Applies {
		return outcomeSkipped, nil
	}

	if !sameInstant(eval.DueDate, ticket.SLADueDate) {
		if err := s.tickets.UpdateSLADueDate(ctx, ticket.ID, eval.DueDate); err != nil {
			s.logger.Warn("update sla due date failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	highest, err := s.escalations.HighestLevel(ctx, ticket.ID)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("highest escalation level: %w", err)
	}
	levels := sla.PlanEscalation(eval.ConsumedHours, policy.EscalationHours, highest, s.maxLevel)
	if len(levels) > 0 {
		escalated, err := s.escalate(ctx, ticket, policy, eval, levels)
		if err != nil {
			return outcomeUnchanged, err
		}
		if escalated {
			return outcomeEscalated, nil
		}
	}

	if eval.Status == sla.StatusWarning && s.warn(ctx, ticket, eval) {
		return outcomeWarned, nil
	}
	return outcomeUnchanged, nil
}

func (s *EscalationService) calendarFor(ctx context.Context, sectorID *string, cache map[string]*sla.Calendar) (*sla.Calendar, error) {
	key := derefString(sectorID)
	if cal, ok := cache[key]; ok {
		return cal, nil
	}
	cal, err := s.sla.CalendarForSector(ctx, sectorID)
	if err != nil {
		return nil, err
	}
	cache[key] = cal
	return cal, nil
}

// escalate records the planned levels and acts on the highest one that this call inserted.
// A level already recorded by a concurrent sweep is skipped silently.
func (s *EscalationService) escalate(ctx context.Context, ticket domain.Ticket, policy sla.Policy, eval sla.Evaluation, levels []int) (bool, error) {
	inserted := 0
	var top *domain.TicketEscalation
	for _, level := range levels {
		row := &domain.TicketEscalation{
			TicketID:        ticket.ID,
			EscalatedFrom:   ticket.AssignedTo,
			EscalatedTo:     policy.EscalationTo,
			Reason:          escalationReason(eval, level),
			EscalationLevel: level,
		}
		if err := s.escalations.Create(ctx, row); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return inserted > 0, fmt.Errorf("record escalation level %d: %w", level, err)
		}
		inserted++
		top = row
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangedByType: domain.ActorSystem,
			ChangeType:    domain.ChangeTypeEscalation,
			NewValue:      map[string]any{"level": level, "reason": row.Reason, "escalated_to": row.EscalatedTo},
		})
		s.metrics.RecordEscalation(level)
		s.logger.Info("ticket escalated",
			zap.String("ticket_id", ticket.ID),
			zap.Int("level", level),
			zap.Float64("percentage", eval.Percentage))
	}
	if top == nil {
		return false, nil
	}

	if target := policy.EscalationTo; target != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *target) {
		if err := s.tickets.Reassign(ctx, ticket.ID, *target); err != nil {
			s.logger.Warn("escalation reassignment failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("escalated_to", *target),
				zap.Error(err))
		} else {
			recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
				TicketID:      ticket.ID,
				ChangedByType: domain.ActorSystem,
				ChangeType:    domain.ChangeTypeAssignee,
				OldValue:      map[string]any{"assigned_to": ticket.AssignedTo},
				NewValue:      map[string]any{"assigned_to": *target},
			})
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventSLAEscalated,
		TicketID: ticket.ID,
		Payload: events.SLAEscalatedPayload{
			Title:         ticket.Title,
			Level:         top.EscalationLevel,
			Reason:        top.Reason,
			Percentage:    eval.Percentage,
			EscalatedFrom: top.EscalatedFrom,
			EscalatedTo:   top.EscalatedTo,
		},
	})
	return true, nil
}

// warn publishes one warning per ticket per dedup window. Without a working deduper no warning
// is sent, so a Redis outage cannot turn every sweep into a notification burst.
func (s *EscalationService) warn(ctx context.Context, ticket domain.Ticket, eval sla.Evaluation) bool {
	if s.deduper == nil {
		return false
	}
	first, err := s.deduper.FirstSeen(ctx, "warning:"+ticket.ID, s.warningDedupTTL)
	if err != nil {
		s.logger.Warn("warning dedup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return false
	}
	if !first {
		return false
	}

	remaining := 0.0
	if eval.HoursRemaining != nil {
		remaining = *eval.HoursRemaining
	}
	s.publish(ctx, events.Event{
		Type:     events.EventSLAWarning,
		TicketID: ticket.ID,
		Payload: events.SLAWarningPayload{
			Title:          ticket.Title,
			Percentage:     eval.Percentage,
			HoursRemaining: remaining,
			DueDate:        eval.DueDate,
			AssignedTo:     ticket.AssignedTo,
		},
	})
	return true
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func escalationReason(eval sla.Evaluation, level int) string {
	return fmt.Sprintf("SLA level %d: %.0f%% consumed (%.2fh of %.2fh)",
		level, math.Floor(eval.Percentage), eval.ConsumedHours, eval.SLAHours)
}
