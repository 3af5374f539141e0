package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/auth"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// SLAService is the part of the SLA service the ticket endpoints need.
type SLAService interface {
	EvaluateTicket(ctx context.Context, ticketID string) (*domain.Ticket, sla.Evaluation, error)
	ListEscalations(ctx context.Context, ticketID string) ([]domain.TicketEscalation, error)
	PauseTicket(ctx context.Context, ticketID, actorID, reason string) (*domain.SLAPause, error)
	ResumeTicket(ctx context.Context, ticketID, actorID string) (*domain.SLAPause, error)
}

// SLAHandler exposes per-ticket SLA endpoints.
type SLAHandler struct {
	service SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// GetStatus GET /tickets/:id/sla.
func (h *SLAHandler) GetStatus(c *fiber.Ctx) error {
	ticket, eval, err := h.service.EvaluateTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaStatus(ticket, eval)})
}

// ListEscalations GET /tickets/:id/escalations.
func (h *SLAHandler) ListEscalations(c *fiber.Ctx) error {
	rows, err := h.service.ListEscalations(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.EscalationResponse{
			ID:            row.ID,
			Level:         row.EscalationLevel,
			EscalatedFrom: row.EscalatedFrom,
			EscalatedTo:   row.EscalatedTo,
			Reason:        row.Reason,
			CreatedAt:     row.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Pause POST /tickets/:id/sla/pause.
func (h *SLAHandler) Pause(c *fiber.Ctx) error {
	var req dto.PauseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	pause, err := h.service.PauseTicket(c.UserContext(), c.Params("id"), actorID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": pauseResponse(pause)})
}

// Resume POST /tickets/:id/sla/resume.
func (h *SLAHandler) Resume(c *fiber.Ctx) error {
	pause, err := h.service.ResumeTicket(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pauseResponse(pause)})
}

func actorID(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.SubjectID
	}
	return ""
}

func slaStatus(ticket *domain.Ticket, eval sla.Evaluation) dto.SLAStatusResponse {
	return dto.SLAStatusResponse{
		TicketID:       ticket.ID,
		Priority:       ticket.Priority,
		TicketStatus:   ticket.Status,
		Applies:        eval.Applies,
		Status:         string(eval.Status),
		Percentage:     round2(eval.Percentage),
		ConsumedHours:  round2(eval.ConsumedHours),
		SLAHours:       round2(eval.SLAHours),
		HoursRemaining: round2Ptr(eval.HoursRemaining),
		HoursOverdue:   round2Ptr(eval.HoursOverdue),
		DueDate:        eval.DueDate,
		EvaluatedAt:    eval.EvaluatedAt,
		Reason:         eval.Reason,
	}
}

func pauseResponse(p *domain.SLAPause) dto.PauseResponse {
	return dto.PauseResponse{
		ID:        p.ID,
		TicketID:  p.TicketID,
		Reason:    p.Reason,
		PausedAt:  p.PausedAt,
		ResumedAt: p.ResumedAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
