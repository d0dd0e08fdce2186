package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/config"
	"github.com/spec-kit/entitlement-service/internal/events"
)

// FanoutService pushes entitlement changes out to clients. Delivery is
// fire-and-forget with no acknowledgment contract.
type FanoutService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.FanoutConfig
}

// NewFanoutService creates the service.
func NewFanoutService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.FanoutConfig) *FanoutService {
	return &FanoutService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (f *FanoutService) RegisterHandlers() {
	if f.dispatcher == nil {
		return
	}
	f.dispatcher.Subscribe(events.EventRolesChanged, f.handleRolesChanged)
	f.dispatcher.Subscribe(events.EventExchangeTokenCreated, f.handleTokenCreated)
	f.dispatcher.Subscribe(events.EventSubscriptionRecorded, f.handleSubscriptionRecorded)
}

func (f *FanoutService) handleRolesChanged(ctx context.Context, event events.Event) error {
	f.logger.Info("RolesChanged", zap.String("identity", event.Identity), zap.Any("payload", event.Payload))
	f.sendWebhookStub(ctx, event)
	return nil
}

func (f *FanoutService) handleTokenCreated(ctx context.Context, event events.Event) error {
	f.logger.Info("ExchangeTokenCreated", zap.String("identity", event.Identity))
	f.sendEmailStub(ctx, event)
	return nil
}

func (f *FanoutService) handleSubscriptionRecorded(ctx context.Context, event events.Event) error {
	f.logger.Info("SubscriptionRecorded", zap.String("identity", event.Identity), zap.Any("payload", event.Payload))
	f.sendWebhookStub(ctx, event)
	return nil
}

func (f *FanoutService) sendEmailStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(f.cfg.EmailFrom) == "" {
		return
	}
	f.logger.Debug("sendEmailStub",
		zap.String("from", f.cfg.EmailFrom),
		zap.String("identity", event.Identity),
		zap.String("event_type", string(event.Type)))
}

func (f *FanoutService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(f.cfg.WebhookURL) == "" {
		return
	}
	f.logger.Debug("sendWebhookStub",
		zap.String("url", f.cfg.WebhookURL),
		zap.String("identity", event.Identity),
		zap.String("event_type", string(event.Type)))
}
