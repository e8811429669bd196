package repository

import (
	"context"
	"database/sql"
	"errors"

	"social-auth/backend/internal/db"
	"social-auth/backend/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	var i domain.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_name, email, password_hash, created_at FROM identities WHERE id = $1`, id,
	).Scan(&i.ID, &i.UserName, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, user_name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.UserName, i.Email, i.PasswordHash, i.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return err
}

// Delete removes the identity; its roles go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

// GetRoles returns the roles assigned to the identity.
func (r *PostgresRepository) GetRoles(ctx context.Context, id string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM identity_roles WHERE identity_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AddRole assigns role to the identity. Assigning a role twice is a no-op.
func (r *PostgresRepository) AddRole(ctx context.Context, id, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identity_roles (identity_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, role,
	)
	return err
}

// RemoveRoles removes the given roles from the identity.
func (r *PostgresRepository) RemoveRoles(ctx context.Context, id string, roles []string) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM identity_roles WHERE identity_id = $1 AND role = ANY($2)`, id, roles,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
