package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-auth/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, jti_hash, refresh_token_hash, is_long_session, expires_at, max_expiry, last_seen_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	var (
		sid, userID, jtiHash, refreshHash       string
		isLong                                  bool
		expiresAt, maxExpiry, lastSeen, created time.Time
	)
	if err := row.Scan(&sid, &userID, &jtiHash, &refreshHash, &isLong, &expiresAt, &maxExpiry, &lastSeen, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return domain.Restore(sid, userID, jtiHash, refreshHash, isLong, expiresAt, maxExpiry, lastSeen, created), nil
}

// Add persists a new session. The session must have ID set.
func (r *PostgresRepository) Add(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID(), s.UserID(), s.JtiHash(), s.RefreshTokenHash(), s.IsLongSession(),
		s.ExpiresAt(), s.MaxExpiry(), s.LastSeenAt(), s.CreatedAt(),
	)
	return err
}

// Update stores the rotated hashes and expiry in one statement, guarded by the previous
// refresh token hash. Returns ErrStaleSession when no row matched.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Session, expectedRefreshTokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		    SET jti_hash = $2, refresh_token_hash = $3, expires_at = $4, last_seen_at = $5
		  WHERE id = $1 AND refresh_token_hash = $6`,
		s.ID(), s.JtiHash(), s.RefreshTokenHash(), s.ExpiresAt(), s.LastSeenAt(), expectedRefreshTokenHash,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// Delete removes the session with the given id. Returns an error only if the delete fails.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes sessions that are past their rolling expiry or absolute cap.
// Returns the number of rows removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1 OR max_expiry <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
