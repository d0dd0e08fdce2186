package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// SubscriptionRepository defines persistence access for account-owned
// subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	FindByAccountID(ctx context.Context, accountID string) ([]domain.Subscription, error)
	// SubscriptionsForIdentity resolves an identity (account id or email)
	// to every subscription bound to it, active or not.
	SubscriptionsForIdentity(ctx context.Context, identity string) ([]domain.Subscription, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository returns a Postgres-backed implementation.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (account_id, plan, expires_at, cancelled)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		sub.AccountID,
		sub.Plan,
		sub.ExpiresAt,
		sub.Cancelled,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *subscriptionRepository) FindByAccountID(ctx context.Context, accountID string) ([]domain.Subscription, error) {
	const query = `
        SELECT id, account_id, plan, expires_at, cancelled, created_at, updated_at
        FROM subscriptions WHERE account_id=$1
        ORDER BY created_at`

	return r.scanAll(ctx, query, accountID)
}

func (r *subscriptionRepository) SubscriptionsForIdentity(ctx context.Context, identity string) ([]domain.Subscription, error) {
	const query = `
        SELECT s.id, s.account_id, s.plan, s.expires_at, s.cancelled, s.created_at, s.updated_at
        FROM subscriptions s
        JOIN accounts a ON a.id = s.account_id
        WHERE a.id::text = $1 OR a.email = $1
        ORDER BY s.created_at`

	return r.scanAll(ctx, query, identity)
}

func (r *subscriptionRepository) scanAll(ctx context.Context, query string, arg any) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(
			&sub.ID,
			&sub.AccountID,
			&sub.Plan,
			&sub.ExpiresAt,
			&sub.Cancelled,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
