package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// RoleRepository reads the central role catalog. Returned roles carry
// their permission sets.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	FindAllByNames(ctx context.Context, names []string) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name=$1`

	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		return nil, err
	}

	permissions, err := r.loadPermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = permissions
	return &role, nil
}

func (r *roleRepository) FindAllByNames(ctx context.Context, names []string) ([]domain.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = ANY($1) ORDER BY name`

	rows, err := r.pool.Query(ctx, query, names)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		permissions, err := r.loadPermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = permissions
	}
	return roles, nil
}

func (r *roleRepository) loadPermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	const query = `
        SELECT p.id, p.name
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        WHERE rp.role_id=$1
        ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}
