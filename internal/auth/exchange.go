package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/events"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// ErrInvalidExchangeToken is the single failure surfaced by Authenticate.
// Not-found, expired, mismatched identity and no-active-subscription all
// collapse into it so callers cannot tell the cases apart.
var ErrInvalidExchangeToken = errors.New("invalid exchange token")

const tokenEntropyBytes = 16 // 128 bits

// SubscriptionSource yields every subscription bound to an identity
// (account id or email), active or not.
type SubscriptionSource interface {
	SubscriptionsForIdentity(ctx context.Context, identity string) ([]domain.Subscription, error)
}

// ExchangeTokenService issues and redeems short-lived opaque tokens of a
// single flavor. Redemption is an idempotent read: a valid token keeps
// authenticating until the store's native TTL evicts it.
type ExchangeTokenService struct {
	kind       domain.ExchangeTokenKind
	store      repository.TokenStore
	subs       SubscriptionSource
	dispatcher events.Dispatcher
	ttl        time.Duration
	logger     *zap.Logger
}

// NewExchangeTokenService builds a service for one token flavor.
func NewExchangeTokenService(
	kind domain.ExchangeTokenKind,
	store repository.TokenStore,
	subs SubscriptionSource,
	dispatcher events.Dispatcher,
	ttl time.Duration,
	logger *zap.Logger,
) *ExchangeTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExchangeTokenService{
		kind:       kind,
		store:      store,
		subs:       subs,
		dispatcher: dispatcher,
		ttl:        ttl,
		logger:     logger,
	}
}

// Issue generates an opaque token bound to the identity and persists it
// with a wall-clock expiry. Only a store write failure surfaces an error.
func (s *ExchangeTokenService) Issue(ctx context.Context, identity string) (*domain.ExchangeToken, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	token := &domain.ExchangeToken{
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		Identity:  identity,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	key := s.storeKey(token.Token)
	if err := s.store.Set(ctx, key, identity); err != nil {
		return nil, err
	}
	if err := s.store.ExpireAt(ctx, key, token.ExpiresAt); err != nil {
		return nil, err
	}

	if s.kind == domain.TokenKindDashboard {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventExchangeTokenCreated, identity,
			events.ExchangeTokenCreatedPayload{
				Kind:      s.kind,
				Identity:  identity,
				ExpiresAt: token.ExpiresAt,
			}))
	}

	return token, nil
}

// Authenticate redeems a token against a claimed identity and returns the
// identity's subscriptions that are still active at the supplied instant.
// It fails closed with ErrInvalidExchangeToken on any mismatch.
func (s *ExchangeTokenService) Authenticate(ctx context.Context, token, claimedIdentity string, nowMicros int64) ([]domain.Subscription, error) {
	stored, err := s.store.Get(ctx, s.storeKey(token))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidExchangeToken
		}
		return nil, err
	}
	if stored != claimedIdentity {
		return nil, ErrInvalidExchangeToken
	}

	all, err := s.subs.SubscriptionsForIdentity(ctx, claimedIdentity)
	if err != nil {
		return nil, err
	}

	active := make([]domain.Subscription, 0, len(all))
	for _, sub := range all {
		if sub.Active(nowMicros) {
			active = append(active, sub)
		}
	}
	if len(active) == 0 {
		return nil, ErrInvalidExchangeToken
	}
	return active, nil
}

func (s *ExchangeTokenService) storeKey(token string) string {
	return fmt.Sprintf("exchange:%s:%s", s.kind, token)
}
