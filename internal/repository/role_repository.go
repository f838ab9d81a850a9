package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/ridewell/benefit-api/internal/models"
)

type RoleRepository interface {
	HasAnyRole(ctx context.Context, userID string, roles []models.UserRole) (bool, error)
	AssignRole(ctx context.Context, userID string, role models.UserRole) error
	ListRoles(ctx context.Context, userID string) ([]models.UserRole, error)
}

type roleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) HasAnyRole(ctx context.Context, userID string, roles []models.UserRole) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM benefit.user_roles
			WHERE user_id = $1 AND role = ANY($2)
		);
	`
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, pq.Array(names)).Scan(&exists)
	return exists, err
}

func (r *roleRepository) AssignRole(ctx context.Context, userID string, role models.UserRole) error {
	const query = `
		INSERT INTO benefit.user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING;
	`
	_, err := r.db.ExecContext(ctx, query, userID, string(role))
	return err
}

func (r *roleRepository) ListRoles(ctx context.Context, userID string) ([]models.UserRole, error) {
	const query = `
		SELECT role
		FROM benefit.user_roles
		WHERE user_id = $1
		ORDER BY role;
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.UserRole
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, models.UserRole(role))
	}
	return models.NormalizeRoles(roles), rows.Err()
}
