package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// AccountRepository defines persistence access for registered principals.
// Save persists the role set transitively with the account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Save(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	LoadRoles(ctx context.Context, accountID string) ([]domain.Role, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, name, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		account.Email,
		account.Name,
		account.PasswordHash,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

// Save updates account fields and rewrites the role membership list. The
// role records themselves are catalog rows and never touched here.
func (r *accountRepository) Save(ctx context.Context, account *domain.Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE accounts SET email=$1, name=$2, password_hash=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := tx.Exec(ctx, update,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `DELETE FROM account_roles WHERE account_id=$1`, account.ID); err != nil {
		return err
	}
	for _, role := range account.Roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2)`,
			account.ID, role.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, email, name, password_hash, created_at, updated_at
        FROM accounts WHERE id=$1`
	return r.scanOne(ctx, query, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, email, name, password_hash, created_at, updated_at
        FROM accounts WHERE email=$1`
	return r.scanOne(ctx, query, email)
}

func (r *accountRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	roles, err := r.LoadRoles(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles
	return &account, nil
}

// LoadRoles returns the role memberships of an account, without permissions.
func (r *accountRepository) LoadRoles(ctx context.Context, accountID string) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name
        FROM roles r
        JOIN account_roles ar ON ar.role_id = r.id
        WHERE ar.account_id=$1
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query, accountID)
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
