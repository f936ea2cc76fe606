package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/config"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
}

// NotifiedEvents lists the event types the service reacts to.
func NotifiedEvents() []events.EventType {
	return []events.EventType{
		events.EventGatekeeperStateChanged,
		events.EventAssessmentSubmitted,
		events.EventPlanActivated,
		events.EventTierChanged,
		events.EventPlanReplaced,
	}
}

// Handle routes one event to its notification handler.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventGatekeeperStateChanged:
		return n.handleStateChanged(ctx, event)
	case events.EventAssessmentSubmitted:
		return n.handleAssessmentSubmitted(ctx, event)
	case events.EventPlanActivated:
		return n.handlePlanActivated(ctx, event)
	case events.EventTierChanged:
		return n.handleTierChanged(ctx, event)
	case events.EventPlanReplaced:
		return n.handlePlanReplaced(ctx, event)
	}
	return nil
}

func (n *NotificationService) handleStateChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("GatekeeperStateChanged", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleAssessmentSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("AssessmentSubmitted", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePlanActivated(ctx context.Context, event events.Event) error {
	n.logger.Info("PlanActivated", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTierChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TierChanged", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePlanReplaced(ctx context.Context, event events.Event) error {
	n.logger.Info("PlanReplaced", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}
