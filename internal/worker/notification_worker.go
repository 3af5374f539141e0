package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/service"
)

// StartNotificationWorker subscribes the notification service to SLA events. Delivery runs on the
// publisher's goroutine, so there is nothing to stop on shutdown.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		logger.Warn("notification worker disabled")
		return
	}
	notifications.RegisterHandlers()
	logger.Info("notification worker subscribed")
}
