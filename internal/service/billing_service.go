package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/entitlement"
	"github.com/spec-kit/entitlement-service/internal/events"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// BillingEventType enumerates inbound billing notifications.
type BillingEventType string

const (
	BillingPurchased BillingEventType = "purchased"
	BillingCancelled BillingEventType = "cancelled"
	BillingRefunded  BillingEventType = "refunded"
)

// BillingEvent is the upstream notification driving role reconciliation.
// ExpiresAt is the subscription expiry in epoch microseconds as reported
// by the billing collaborator.
type BillingEvent struct {
	Type      BillingEventType
	Email     string
	Plan      string
	ExpiresAt int64
}

// BillingService translates billing events into subscription records and
// role reconciliation. Identities without a registered account are kept
// as offline, email-keyed subscriptions.
type BillingService struct {
	accounts      repository.AccountRepository
	subscriptions repository.SubscriptionRepository
	offline       repository.OfflineSubscriptionRepository
	reconciler    *entitlement.RoleReconciler
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// BillingDependencies encapsulates collaborator requirements.
type BillingDependencies struct {
	AccountRepo      repository.AccountRepository
	SubscriptionRepo repository.SubscriptionRepository
	OfflineRepo      repository.OfflineSubscriptionRepository
	Reconciler       *entitlement.RoleReconciler
	Dispatcher       events.Dispatcher
}

// NewBillingService builds the service.
func NewBillingService(deps BillingDependencies, logger *zap.Logger) *BillingService {
	return &BillingService{
		accounts:      deps.AccountRepo,
		subscriptions: deps.SubscriptionRepo,
		offline:       deps.OfflineRepo,
		reconciler:    deps.Reconciler,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// HandleEvent applies one billing event.
func (s *BillingService) HandleEvent(ctx context.Context, evt BillingEvent) error {
	switch evt.Type {
	case BillingPurchased:
		return s.handlePurchased(ctx, evt)
	case BillingCancelled, BillingRefunded:
		return s.handleRevoked(ctx, evt)
	default:
		return fmt.Errorf("unknown billing event type %q", evt.Type)
	}
}

func (s *BillingService) handlePurchased(ctx context.Context, evt BillingEvent) error {
	account, err := s.accounts.GetByEmail(ctx, evt.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.handleOfflinePurchase(ctx, evt)
		}
		return err
	}

	sub := &domain.Subscription{
		AccountID: account.ID,
		Plan:      evt.Plan,
		ExpiresAt: evt.ExpiresAt,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return err
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventSubscriptionRecorded, account.ID,
		events.SubscriptionRecordedPayload{Plan: evt.Plan, ExpiresAt: evt.ExpiresAt}))

	_, err = s.reconciler.GrantForPlan(ctx, account, evt.Plan)
	return err
}

func (s *BillingService) handleOfflinePurchase(ctx context.Context, evt BillingEvent) error {
	sub := &domain.OfflineSubscription{
		Email:     evt.Email,
		Plan:      evt.Plan,
		ExpiresAt: evt.ExpiresAt,
	}
	if err := s.offline.Save(ctx, sub); err != nil {
		return err
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventSubscriptionRecorded, evt.Email,
		events.SubscriptionRecordedPayload{Plan: evt.Plan, ExpiresAt: evt.ExpiresAt}))

	_, err := s.reconciler.GrantForOfflineSubscription(ctx, sub, domain.UnixMicros(time.Now()))
	return err
}

func (s *BillingService) handleRevoked(ctx context.Context, evt BillingEvent) error {
	account, err := s.accounts.GetByEmail(ctx, evt.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Offline records keep their expiry; cancellation alone never
			// voids access before it.
			return s.offline.UpdateByPlanAndEmail(ctx, evt.Plan, evt.Email, evt.ExpiresAt, true)
		}
		return err
	}

	_, err = s.reconciler.RevokeForPlan(ctx, account, evt.Plan)
	return err
}
