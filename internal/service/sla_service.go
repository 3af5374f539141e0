package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// SLAService answers SLA questions for single tickets and manages pauses.
type SLAService struct {
	tickets     repository.TicketRepository
	sectors     repository.SectorRepository
	calendars   repository.CalendarRepository
	pauses      repository.SLAPauseRepository
	escalations repository.EscalationRepository
	history     repository.TicketHistoryRepository
	resolver    *sla.PolicyResolver
	evaluator   sla.Evaluator
	clock       clock.Clock
	location    *time.Location
	logger      *zap.Logger
}

// SLADependencies bundles collaborators for SLAService.
type SLADependencies struct {
	TicketRepo     repository.TicketRepository
	SectorRepo     repository.SectorRepository
	CalendarRepo   repository.CalendarRepository
	PauseRepo      repository.SLAPauseRepository
	EscalationRepo repository.EscalationRepository
	HistoryRepo    repository.TicketHistoryRepository
	Resolver       *sla.PolicyResolver
	Evaluator      sla.Evaluator
	Clock          clock.Clock
	// Location is used for sectors without a time zone of their own.
	Location *time.Location
	Logger   *zap.Logger
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SLAService{
		tickets:     deps.TicketRepo,
		sectors:     deps.SectorRepo,
		calendars:   deps.CalendarRepo,
		pauses:      deps.PauseRepo,
		escalations: deps.EscalationRepo,
		history:     deps.HistoryRepo,
		resolver:    deps.Resolver,
		evaluator:   deps.Evaluator,
		clock:       deps.Clock,
		location:    deps.Location,
		logger:      deps.Logger,
	}
}

// CalendarForSector builds the business calendar of a sector. A nil sector uses the global calendar.
func (s *SLAService) CalendarForSector(ctx context.Context, sectorID *string) (*sla.Calendar, error) {
	loc := s.sectorLocation(ctx, sectorID)

	hours, err := s.calendars.ListBusinessHours(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("list business hours: %w", err)
	}
	holidays, err := s.calendars.ListHolidays(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	cal := sla.NewCalendar(loc, sla.SelectBusinessHours(sectorID, hours), sla.SelectHolidays(sectorID, holidays))
	for _, problem := range cal.Problems() {
		s.logger.Warn("business calendar problem",
			zap.String("sector_id", derefString(sectorID)),
			zap.Error(problem))
	}
	return cal, nil
}

func (s *SLAService) sectorLocation(ctx context.Context, sectorID *string) *time.Location {
	if sectorID == nil || s.sectors == nil {
		return s.location
	}
	sector, err := s.sectors.GetByID(ctx, *sectorID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("load sector failed, using default time zone", zap.String("sector_id", *sectorID), zap.Error(err))
		}
		return s.location
	}
	if sector.TimeZone == nil || strings.TrimSpace(*sector.TimeZone) == "" {
		return s.location
	}
	loc, err := time.LoadLocation(*sector.TimeZone)
	if err != nil {
		s.logger.Warn("unknown sector time zone, using default",
			zap.String("sector_id", *sectorID),
			zap.String("time_zone", *sector.TimeZone))
		return s.location
	}
	return loc
}

// ResolvePolicy returns the SLA budget for the ticket's sector and priority.
func (s *SLAService) ResolvePolicy(ctx context.Context, ticket domain.Ticket) (sla.Policy, error) {
	return s.resolver.Resolve(ctx, ticket.SectorID, ticket.Priority)
}

// Evaluate computes the verdict of ticket at now. Tickets without a usable policy are reported as
// not applicable instead of failing.
func (s *SLAService) Evaluate(ctx context.Context, ticket domain.Ticket, now time.Time) (sla.Evaluation, error) {
	cal, err := s.CalendarForSector(ctx, ticket.SectorID)
	if err != nil {
		return sla.Evaluation{}, err
	}
	pauses, err := s.pauses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return sla.Evaluation{}, fmt.Errorf("list pauses: %w", err)
	}
	eval, _, err := s.evaluateWith(ctx, ticket, cal, pauses, now)
	return eval, err
}

// evaluateWith runs the evaluator with preloaded calendar and pauses.
func (s *SLAService) evaluateWith(ctx context.Context, ticket domain.Ticket, cal *sla.Calendar, pauses []domain.SLAPause, now time.Time) (sla.Evaluation, sla.Policy, error) {
	policy, err := s.ResolvePolicy(ctx, ticket)
	if err != nil {
		if errors.Is(err, sla.ErrPolicyNotFound) || errors.Is(err, sla.ErrInvalidPolicy) {
			s.logger.Warn("sla not applicable",
				zap.String("ticket_id", ticket.ID),
				zap.String("priority", string(ticket.Priority)),
				zap.Error(err))
			return sla.NotApplicable(ticket, err.Error(), now), sla.Policy{}, nil
		}
		return sla.Evaluation{}, sla.Policy{}, err
	}
	return s.evaluator.Evaluate(ticket, policy, cal, pauses, now), policy, nil
}

// EvaluateTicket loads a ticket and evaluates it at the current instant.
func (s *SLAService) EvaluateTicket(ctx context.Context, ticketID string) (*domain.Ticket, sla.Evaluation, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, sla.Evaluation{}, err
	}
	eval, err := s.Evaluate(ctx, *ticket, s.clock.Now())
	if err != nil {
		return nil, sla.Evaluation{}, apperrors.MapError(err)
	}
	return ticket, eval, nil
}

// RefreshDueDate recomputes and stores sla_due_date for a ticket.
func (s *SLAService) RefreshDueDate(ctx context.Context, ticketID string) (*time.Time, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	eval, err := s.Evaluate(ctx, *ticket, s.clock.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !eval.Applies || sameInstant(eval.DueDate, ticket.SLADueDate) {
		return ticket.SLADueDate, nil
	}
	if err := s.tickets.UpdateSLADueDate(ctx, ticket.ID, eval.DueDate); err != nil {
		return nil, apperrors.MapError(err)
	}
	return eval.DueDate, nil
}

// PauseTicket stops the SLA clock of an open ticket. An empty actorID records the change as a system one.
func (s *SLAService) PauseTicket(ctx context.Context, ticketID, actorID, reason string) (*domain.SLAPause, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsClosed() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID})
	}

	pause := &domain.SLAPause{
		TicketID: ticket.ID,
		Reason:   strings.TrimSpace(reason),
		PausedAt: s.clock.Now(),
	}
	if err := s.pauses.Create(ctx, pause); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("ticket already paused", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	actorType, actor := actorFor(actorID)
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: actorType,
		ChangedByID:   actor,
		ChangeType:    domain.ChangeTypeSLAPaused,
		NewValue:      map[string]any{"pause_id": pause.ID, "reason": pause.Reason},
	})
	s.logger.Info("sla paused", zap.String("ticket_id", ticket.ID), zap.String("reason", pause.Reason))
	return pause, nil
}

// ResumeTicket restarts the SLA clock and pushes the due date out by the paused time.
func (s *SLAService) ResumeTicket(ctx context.Context, ticketID, actorID string) (*domain.SLAPause, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	pause, err := s.pauses.Resume(ctx, ticket.ID, s.clock.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket is not paused", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	due, err := s.RefreshDueDate(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("refresh due date after resume failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		due = ticket.SLADueDate
	}
	actorType, actor := actorFor(actorID)
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: actorType,
		ChangedByID:   actor,
		ChangeType:    domain.ChangeTypeSLAResumed,
		OldValue:      map[string]any{"sla_due_date": ticket.SLADueDate},
		NewValue:      map[string]any{"pause_id": pause.ID, "sla_due_date": due},
	})
	s.logger.Info("sla resumed", zap.String("ticket_id", ticket.ID))
	return pause, nil
}

// ListEscalations returns the escalation log of a ticket, oldest first.
func (s *SLAService) ListEscalations(ctx context.Context, ticketID string) ([]domain.TicketEscalation, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	rows, err := s.escalations.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

func (s *SLAService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
