package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/entitlement"
	"github.com/spec-kit/entitlement-service/internal/events"
)

type fakeAccounts struct {
	byEmail map[string]*domain.Account
	saves   int
}

func (f *fakeAccounts) Create(_ context.Context, _ *domain.Account) error { return nil }

func (f *fakeAccounts) Save(_ context.Context, _ *domain.Account) error {
	f.saves++
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, _ string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) LoadRoles(_ context.Context, _ string) ([]domain.Role, error) {
	return nil, nil
}

type fakeRoles struct {
	roles map[string]domain.Role
}

func (f *fakeRoles) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if r, ok := f.roles[name]; ok {
		return &r, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoles) FindAllByNames(_ context.Context, _ []string) ([]domain.Role, error) {
	return nil, nil
}

type fakeSubscriptions struct {
	created []domain.Subscription
}

func (f *fakeSubscriptions) Create(_ context.Context, sub *domain.Subscription) error {
	sub.ID = "sub-1"
	f.created = append(f.created, *sub)
	return nil
}

func (f *fakeSubscriptions) FindByAccountID(_ context.Context, _ string) ([]domain.Subscription, error) {
	return nil, nil
}

func (f *fakeSubscriptions) SubscriptionsForIdentity(_ context.Context, _ string) ([]domain.Subscription, error) {
	return nil, nil
}

type fakeOffline struct {
	saved   []domain.OfflineSubscription
	updates int
}

func (f *fakeOffline) FindByEmail(_ context.Context, _ string) (*domain.OfflineSubscription, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeOffline) FindAllActiveByEmailAfter(_ context.Context, _ string, _ int64) ([]domain.OfflineSubscription, error) {
	return nil, nil
}

func (f *fakeOffline) Save(_ context.Context, sub *domain.OfflineSubscription) error {
	if sub.ID == "" {
		sub.ID = "off-1"
	}
	f.saved = append(f.saved, *sub)
	return nil
}

func (f *fakeOffline) UpdateByPlanAndEmail(_ context.Context, _, _ string, _ int64, _ bool) error {
	f.updates++
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func newBillingFixture(accounts *fakeAccounts) (*BillingService, *fakeSubscriptions, *fakeOffline, *recordingDispatcher) {
	subs := &fakeSubscriptions{}
	offline := &fakeOffline{}
	dispatcher := &recordingDispatcher{}
	roles := &fakeRoles{roles: map[string]domain.Role{
		"pro-user": {ID: "r-pro", Name: "pro-user"},
	}}

	reconciler := entitlement.NewRoleReconciler(entitlement.ReconcilerDependencies{
		Plans:       entitlement.DefaultPlanRoleMap(),
		RoleRepo:    roles,
		AccountRepo: accounts,
		OfflineRepo: offline,
		Dispatcher:  dispatcher,
	}, zap.NewNop())

	svc := NewBillingService(BillingDependencies{
		AccountRepo:      accounts,
		SubscriptionRepo: subs,
		OfflineRepo:      offline,
		Reconciler:       reconciler,
		Dispatcher:       dispatcher,
	}, zap.NewNop())
	return svc, subs, offline, dispatcher
}

func TestHandleEvent_PurchaseForAccount(t *testing.T) {
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{
		"a@b.com": {ID: "a1", Email: "a@b.com"},
	}}
	svc, subs, _, dispatcher := newBillingFixture(accounts)
	expiry := domain.UnixMicros(time.Now().Add(30 * 24 * time.Hour))

	err := svc.HandleEvent(context.Background(), BillingEvent{
		Type:      BillingPurchased,
		Email:     "a@b.com",
		Plan:      "pro",
		ExpiresAt: expiry,
	})
	require.NoError(t, err)

	require.Len(t, subs.created, 1)
	assert.Equal(t, "a1", subs.created[0].AccountID)
	assert.Equal(t, expiry, subs.created[0].ExpiresAt)
	assert.Equal(t, 1, accounts.saves)

	types := make([]events.EventType, 0, len(dispatcher.published))
	for _, e := range dispatcher.published {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.EventSubscriptionRecorded)
	assert.Contains(t, types, events.EventRolesChanged)
}

func TestHandleEvent_PurchaseWithoutAccountGoesOffline(t *testing.T) {
	svc, subs, offline, _ := newBillingFixture(&fakeAccounts{byEmail: map[string]*domain.Account{}})
	expiry := domain.UnixMicros(time.Now().Add(24 * time.Hour))

	err := svc.HandleEvent(context.Background(), BillingEvent{
		Type:      BillingPurchased,
		Email:     "off@b.com",
		Plan:      "pro",
		ExpiresAt: expiry,
	})
	require.NoError(t, err)

	assert.Empty(t, subs.created)
	// saved once on record creation, once more when the role attaches
	require.NotEmpty(t, offline.saved)
	assert.Equal(t, "off@b.com", offline.saved[0].Email)
	last := offline.saved[len(offline.saved)-1]
	require.Len(t, last.Roles, 1)
	assert.Equal(t, "pro-user", last.Roles[0].Name)
}

func TestHandleEvent_RefundRevokesRole(t *testing.T) {
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{
		"a@b.com": {
			ID:    "a1",
			Email: "a@b.com",
			Roles: []domain.Role{{ID: "r-pro", Name: "pro-user"}},
		},
	}}
	svc, _, _, dispatcher := newBillingFixture(accounts)

	err := svc.HandleEvent(context.Background(), BillingEvent{
		Type:  BillingRefunded,
		Email: "a@b.com",
		Plan:  "pro",
	})
	require.NoError(t, err)

	assert.Empty(t, accounts.byEmail["a@b.com"].Roles)
	require.Len(t, dispatcher.published, 1)
	payload := dispatcher.published[0].Payload.(events.RolesChangedPayload)
	assert.Equal(t, events.RoleRevoked, payload.Action)
}

func TestHandleEvent_CancelWithoutAccountMarksOffline(t *testing.T) {
	svc, _, offline, _ := newBillingFixture(&fakeAccounts{byEmail: map[string]*domain.Account{}})

	err := svc.HandleEvent(context.Background(), BillingEvent{
		Type:      BillingCancelled,
		Email:     "off@b.com",
		Plan:      "pro",
		ExpiresAt: 123,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, offline.updates)
}

func TestHandleEvent_UnknownTypeFails(t *testing.T) {
	svc, _, _, _ := newBillingFixture(&fakeAccounts{byEmail: map[string]*domain.Account{}})

	err := svc.HandleEvent(context.Background(), BillingEvent{Type: "upgraded", Email: "a@b.com", Plan: "pro"})
	assert.Error(t, err)
}
