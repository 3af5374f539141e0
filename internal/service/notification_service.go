package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/notify"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
)

// NotificationService turns SLA events into stored notifications and pushes.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	pusher        notify.Pusher
	clock         clock.Clock
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifications repository.NotificationRepository, pusher notify.Pusher, clk clock.Clock, logger *zap.Logger) *NotificationService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		pusher:        pusher,
		clock:         clk,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAWarning, n.handleSLAWarning)
	n.dispatcher.Subscribe(events.EventSLAEscalated, n.handleSLAEscalated)
	n.dispatcher.Subscribe(events.EventTicketNoResponse, n.handleTicketNoResponse)
}

func (n *NotificationService) handleSLAWarning(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAWarningPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	message := fmt.Sprintf("Ticket %q consumed %.0f%% of its SLA; %.1fh remaining.",
		payload.Title, payload.Percentage, payload.HoursRemaining)
	return n.deliver(ctx, event, domain.NotificationSLAWarning, "SLA close to breach", message, payload.AssignedTo)
}

func (n *NotificationService) handleSLAEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAEscalatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	title := fmt.Sprintf("Ticket escalated (level %d)", payload.Level)
	message := fmt.Sprintf("Ticket %q was escalated: %s.", payload.Title, payload.Reason)
	return n.deliver(ctx, event, domain.NotificationSLAEscalated, title, message, payload.EscalatedTo, payload.EscalatedFrom)
}

func (n *NotificationService) handleTicketNoResponse(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketNoResponsePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	recipient := payload.AssignedTo
	if recipient == nil {
		recipient = payload.CreatedBy
	}
	message := fmt.Sprintf("Ticket %q has had no activity for %.0f hours.", payload.Title, payload.HoursSinceReply)
	return n.deliver(ctx, event, domain.NotificationNoResponse, "Ticket without response", message, recipient)
}

// deliver stores and pushes one notification per distinct recipient. A failing recipient does not
// stop the others.
func (n *NotificationService) deliver(ctx context.Context, event events.Event, kind domain.NotificationType, title, message string, recipients ...*string) error {
	ticketID := event.TicketID
	seen := make(map[string]struct{}, len(recipients))
	var errs []error

	for _, recipient := range recipients {
		if recipient == nil || *recipient == "" {
			continue
		}
		if _, dup := seen[*recipient]; dup {
			continue
		}
		seen[*recipient] = struct{}{}

		record := &domain.Notification{
			UserID:    *recipient,
			Type:      kind,
			Title:     title,
			Message:   message,
			TicketID:  &ticketID,
			CreatedAt: n.clock.Now(),
		}
		if n.notifications != nil {
			if err := n.notifications.Create(ctx, record); err != nil {
				errs = append(errs, fmt.Errorf("store notification for %s: %w", *recipient, err))
				continue
			}
		}
		if n.pusher != nil {
			err := n.pusher.Push(ctx, *recipient, notify.Message{
				NotificationID: record.ID,
				Type:           string(kind),
				Title:          title,
				Body:           message,
				TicketID:       &ticketID,
				CreatedAt:      record.CreatedAt,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("push notification to %s: %w", *recipient, err))
				continue
			}
		}
		n.logger.Debug("notification delivered",
			zap.String("ticket_id", ticketID),
			zap.String("user_id", *recipient),
			zap.String("type", string(kind)))
	}
	return errors.Join(errs...)
}
