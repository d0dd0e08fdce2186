package entitlement

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/events"
)

type fakeRoleRepo struct {
	roles map[string]domain.Role
}

func (f *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := f.roles[name]; ok {
		return &role, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRoleRepo) FindAllByNames(_ context.Context, names []string) ([]domain.Role, error) {
	var out []domain.Role
	for _, name := range names {
		if role, ok := f.roles[name]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	saves int
	saved *domain.Account
}

func (f *fakeAccountRepo) Create(_ context.Context, _ *domain.Account) error { return nil }

func (f *fakeAccountRepo) Save(_ context.Context, account *domain.Account) error {
	f.saves++
	f.saved = account
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, _ string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, _ string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) LoadRoles(_ context.Context, _ string) ([]domain.Role, error) {
	if f.saved == nil {
		return nil, nil
	}
	return f.saved.Roles, nil
}

type fakeOfflineRepo struct {
	saves int
	saved *domain.OfflineSubscription
}

func (f *fakeOfflineRepo) FindByEmail(_ context.Context, _ string) (*domain.OfflineSubscription, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeOfflineRepo) FindAllActiveByEmailAfter(_ context.Context, _ string, _ int64) ([]domain.OfflineSubscription, error) {
	return nil, nil
}

func (f *fakeOfflineRepo) Save(_ context.Context, sub *domain.OfflineSubscription) error {
	f.saves++
	f.saved = sub
	return nil
}

func (f *fakeOfflineRepo) UpdateByPlanAndEmail(_ context.Context, _, _ string, _ int64, _ bool) error {
	return nil
}

type fakeSubscriptionRepo struct {
	byAccount map[string][]domain.Subscription
}

func (f *fakeSubscriptionRepo) Create(_ context.Context, _ *domain.Subscription) error { return nil }

func (f *fakeSubscriptionRepo) FindByAccountID(_ context.Context, accountID string) ([]domain.Subscription, error) {
	return f.byAccount[accountID], nil
}

func (f *fakeSubscriptionRepo) SubscriptionsForIdentity(_ context.Context, identity string) ([]domain.Subscription, error) {
	return f.byAccount[identity], nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}
