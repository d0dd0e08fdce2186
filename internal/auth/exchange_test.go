package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/events"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

type fakeTokenStore struct {
	values   map[string]string
	expiries map[string]time.Time
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		values:   make(map[string]string),
		expiries: make(map[string]time.Time),
	}
}

func (s *fakeTokenStore) Set(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *fakeTokenStore) Get(_ context.Context, key string) (string, error) {
	val, ok := s.values[key]
	if !ok {
		return "", repository.ErrTokenNotFound
	}
	return val, nil
}

func (s *fakeTokenStore) ExpireAt(_ context.Context, key string, at time.Time) error {
	s.expiries[key] = at
	return nil
}

type fakeSubscriptionSource struct {
	byIdentity map[string][]domain.Subscription
}

func (f *fakeSubscriptionSource) SubscriptionsForIdentity(_ context.Context, identity string) ([]domain.Subscription, error) {
	return f.byIdentity[identity], nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func newExchangeFixture(kind domain.ExchangeTokenKind, subs map[string][]domain.Subscription) (*ExchangeTokenService, *fakeTokenStore, *recordingDispatcher) {
	store := newFakeTokenStore()
	dispatcher := &recordingDispatcher{}
	svc := NewExchangeTokenService(kind, store, &fakeSubscriptionSource{byIdentity: subs}, dispatcher, 24*time.Hour, zap.NewNop())
	return svc, store, dispatcher
}

func TestIssueAndAuthenticate_RoundTrip(t *testing.T) {
	now := domain.UnixMicros(time.Now())
	svc, store, _ := newExchangeFixture(domain.TokenKindDashboard, map[string][]domain.Subscription{
		"a@b.com": {{ID: "s1", Plan: "pro", ExpiresAt: now + 1}},
	})

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, "a@b.com", token.Identity)

	key := "exchange:dashboard:" + token.Token
	assert.Equal(t, "a@b.com", store.values[key])
	assert.WithinDuration(t, token.ExpiresAt, store.expiries[key], time.Second)

	subs, err := svc.Authenticate(context.Background(), token.Token, "a@b.com", now)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "pro", subs[0].Plan)
}

func TestAuthenticate_RedemptionIsRepeatable(t *testing.T) {
	now := domain.UnixMicros(time.Now())
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, map[string][]domain.Subscription{
		"a@b.com": {{ID: "s1", Plan: "pro", ExpiresAt: now + 1}},
	})

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(context.Background(), token.Token, "a@b.com", now)
		require.NoError(t, err)
	}
}

func TestAuthenticate_IdentityMismatchFails(t *testing.T) {
	now := domain.UnixMicros(time.Now())
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, map[string][]domain.Subscription{
		"a@b.com":     {{ID: "s1", Plan: "pro", ExpiresAt: now + 1}},
		"other@b.com": {{ID: "s2", Plan: "pro", ExpiresAt: now + 1}},
	})

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token.Token, "other@b.com", now)
	assert.ErrorIs(t, err, ErrInvalidExchangeToken)
}

func TestAuthenticate_NoActiveSubscriptionsFails(t *testing.T) {
	now := domain.UnixMicros(time.Now())
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, map[string][]domain.Subscription{
		"a@b.com": {},
	})

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token.Token, "a@b.com", now)
	assert.ErrorIs(t, err, ErrInvalidExchangeToken)
}

func TestAuthenticate_ExpiryBoundaryIsStrict(t *testing.T) {
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, map[string][]domain.Subscription{
		"a@b.com": {{ID: "s1", Plan: "pro", ExpiresAt: 1000}},
	})

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	// expiry == now is not active
	_, err = svc.Authenticate(context.Background(), token.Token, "a@b.com", 1000)
	assert.ErrorIs(t, err, ErrInvalidExchangeToken)

	subs, err := svc.Authenticate(context.Background(), token.Token, "a@b.com", 999)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestAuthenticate_UnknownTokenFails(t *testing.T) {
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, nil)

	_, err := svc.Authenticate(context.Background(), "no-such-token", "a@b.com", 0)
	assert.ErrorIs(t, err, ErrInvalidExchangeToken)
}

func TestIssue_DashboardPublishesCreationEvent(t *testing.T) {
	svc, _, dispatcher := newExchangeFixture(domain.TokenKindDashboard, nil)

	_, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventExchangeTokenCreated, dispatcher.published[0].Type)
}

func TestIssue_OtherKindsDoNotPublish(t *testing.T) {
	svc, store, dispatcher := newExchangeFixture(domain.TokenKindPurchaseLink, nil)

	token, err := svc.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	assert.Empty(t, dispatcher.published)
	assert.Contains(t, store.values, "exchange:purchase-link:"+token.Token)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	svc, _, _ := newExchangeFixture(domain.TokenKindDashboard, nil)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := svc.Issue(context.Background(), "a@b.com")
		require.NoError(t, err)
		_, dup := seen[token.Token]
		require.False(t, dup)
		seen[token.Token] = struct{}{}
	}
}
