package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// EscalationSweeper runs the SLA escalation sweep.
type EscalationSweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// NoResponseChecker runs the no-response automation.
type NoResponseChecker interface {
	CheckNoResponse(ctx context.Context, days int) (service.NoResponseResult, error)
}

// TriggerHandler serves the endpoints an external scheduler calls.
type TriggerHandler struct {
	sweeper     EscalationSweeper
	checker     NoResponseChecker
	defaultDays int
	logger      *zap.Logger
}

// NewTriggerHandler constructs handler.
func NewTriggerHandler(sweeper EscalationSweeper, checker NoResponseChecker, defaultDays int, logger *zap.Logger) *TriggerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerHandler{sweeper: sweeper, checker: checker, defaultDays: defaultDays, logger: logger}
}

// CheckEscalations GET|POST /sla/escalations/check.
func (h *TriggerHandler) CheckEscalations(c *fiber.Ctx) error {
	result, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		h.logger.Error("escalation check failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(dto.TriggerResponse{
			Success: false,
			Error:   "escalation check failed: " + apperrors.ToDomainError(err).Message,
		})
	}
	return c.JSON(dto.TriggerResponse{
		Success: true,
		Message: fmt.Sprintf("escalation check finished: %d processed, %d escalated, %d warned",
			result.Processed, result.Escalated, result.Warnings),
		Result: result,
	})
}

// CheckNoResponse GET|POST /automation/no-response/check?days=N.
func (h *TriggerHandler) CheckNoResponse(c *fiber.Ctx) error {
	days := h.defaultDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(http.StatusBadRequest).JSON(dto.TriggerResponse{
				Success: false,
				Error:   "days must be a positive integer",
			})
		}
		days = parsed
	}

	result, err := h.checker.CheckNoResponse(c.UserContext(), days)
	if err != nil {
		de := apperrors.ToDomainError(err)
		h.logger.Error("no-response check failed", zap.Int("days", days), zap.Error(err))
		return c.Status(de.HTTPStatus).JSON(dto.TriggerResponse{Success: false, Error: de.Message})
	}
	return c.JSON(dto.TriggerResponse{
		Success: true,
		Message: fmt.Sprintf("%d tickets without response for %d days, %d notified", result.Matched, days, result.Notified),
		Result:  result,
	})
}
