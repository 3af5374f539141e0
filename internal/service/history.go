package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
)

// recordHistory appends an audit entry. Failures are logged and never undo the change itself.
func recordHistory(ctx context.Context, repo repository.TicketHistoryRepository, logger *zap.Logger, entry *domain.TicketHistory) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil {
		logger.Warn("record ticket history failed",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func actorFor(actorID string) (domain.ActorType, *string) {
	if actorID == "" {
		return domain.ActorSystem, nil
	}
	return domain.ActorUser, &actorID
}
