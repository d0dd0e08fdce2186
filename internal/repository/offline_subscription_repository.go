package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// OfflineSubscriptionRepository defines persistence access for email-keyed
// subscriptions held without a registered account. Save persists the role
// set transitively with the subscription record.
type OfflineSubscriptionRepository interface {
	// FindByEmail returns the preferred record for the email: not
	// cancelled, longest remaining expiry.
	FindByEmail(ctx context.Context, email string) (*domain.OfflineSubscription, error)
	FindAllActiveByEmailAfter(ctx context.Context, email string, afterMicros int64) ([]domain.OfflineSubscription, error)
	Save(ctx context.Context, sub *domain.OfflineSubscription) error
	// UpdateByPlanAndEmail bulk-rewrites expiry and cancellation for every
	// record matching the plan/email pair.
	UpdateByPlanAndEmail(ctx context.Context, plan, email string, expiresAtMicros int64, cancelled bool) error
}

type offlineSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewOfflineSubscriptionRepository returns a Postgres-backed implementation.
func NewOfflineSubscriptionRepository(pool *pgxpool.Pool) OfflineSubscriptionRepository {
	return &offlineSubscriptionRepository{pool: pool}
}

func (r *offlineSubscriptionRepository) FindByEmail(ctx context.Context, email string) (*domain.OfflineSubscription, error) {
	const query = `
        SELECT id, email, plan, expires_at, cancelled, created_at, updated_at
        FROM offline_subscriptions
        WHERE email=$1 AND cancelled=FALSE
        ORDER BY expires_at DESC
        LIMIT 1`

	var sub domain.OfflineSubscription
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Plan,
		&sub.ExpiresAt,
		&sub.Cancelled,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	roles, err := r.loadRoles(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	sub.Roles = roles
	return &sub, nil
}

func (r *offlineSubscriptionRepository) FindAllActiveByEmailAfter(ctx context.Context, email string, afterMicros int64) ([]domain.OfflineSubscription, error) {
	const query = `
        SELECT id, email, plan, expires_at, cancelled, created_at, updated_at
        FROM offline_subscriptions
        WHERE email=$1 AND expires_at > $2
        ORDER BY expires_at DESC`

	rows, err := r.pool.Query(ctx, query, email, afterMicros)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.OfflineSubscription
	for rows.Next() {
		var sub domain.OfflineSubscription
		if err := rows.Scan(
			&sub.ID,
			&sub.Email,
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

// Save upserts the record and rewrites its role membership list.
func (r *offlineSubscriptionRepository) Save(ctx context.Context, sub *domain.OfflineSubscription) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if sub.ID == "" {
		const insert = `
            INSERT INTO offline_subscriptions (email, plan, expires_at, cancelled)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insert,
			sub.Email, sub.Plan, sub.ExpiresAt, sub.Cancelled,
		).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return err
		}
	} else {
		const update = `
            UPDATE offline_subscriptions
            SET email=$1, plan=$2, expires_at=$3, cancelled=$4, updated_at=NOW()
            WHERE id=$5`
		cmd, err := tx.Exec(ctx, update,
			sub.Email, sub.Plan, sub.ExpiresAt, sub.Cancelled, sub.ID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM offline_subscription_roles WHERE subscription_id=$1`, sub.ID,
	); err != nil {
		return err
	}
	for _, role := range sub.Roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO offline_subscription_roles (subscription_id, role_id) VALUES ($1, $2)`,
			sub.ID, role.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *offlineSubscriptionRepository) UpdateByPlanAndEmail(ctx context.Context, plan, email string, expiresAtMicros int64, cancelled bool) error {
	const query = `
        UPDATE offline_subscriptions
        SET expires_at=$1, cancelled=$2, updated_at=NOW()
        WHERE plan=$3 AND email=$4`

	_, err := r.pool.Exec(ctx, query, expiresAtMicros, cancelled, plan, email)
	return err
}

func (r *offlineSubscriptionRepository) loadRoles(ctx context.Context, subscriptionID string) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name
        FROM roles r
        JOIN offline_subscription_roles osr ON osr.role_id = r.id
        WHERE osr.subscription_id=$1
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// OfflineSubscriptionSource projects offline records into the generic
// subscription shape used by token authentication.
type OfflineSubscriptionSource struct {
	repo OfflineSubscriptionRepository
}

// NewOfflineSubscriptionSource wraps the repository.
func NewOfflineSubscriptionSource(repo OfflineSubscriptionRepository) *OfflineSubscriptionSource {
	return &OfflineSubscriptionSource{repo: repo}
}

// SubscriptionsForIdentity treats the identity as an email and returns
// every offline record bound to it, active or not.
func (s *OfflineSubscriptionSource) SubscriptionsForIdentity(ctx context.Context, identity string) ([]domain.Subscription, error) {
	records, err := s.repo.FindAllActiveByEmailAfter(ctx, identity, 0)
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(records))
	for _, rec := range records {
		subs = append(subs, domain.Subscription{
			ID:        rec.ID,
			Plan:      rec.Plan,
			ExpiresAt: rec.ExpiresAt,
			Cancelled: rec.Cancelled,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return subs, nil
}
