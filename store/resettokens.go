package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feedbackloop/identity"
)

// ResetTokenRepository persists password-reset tokens. It implements
// [identity.ResetTokenStore].
type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token *identity.ResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reset_tokens (id, token, user_id, expires_at, used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.Token, token.UserID, token.ExpiresAt, token.Used, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume flips used in the same statement that checks it, so two concurrent
// confirmations of the same token cannot both succeed.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string, now time.Time) (*identity.ResetToken, error) {
	query :=
		`UPDATE reset_tokens SET used = TRUE
		 WHERE token = $1 AND used = FALSE AND expires_at > $2
		 RETURNING id, token, user_id, expires_at, used, created_at`

	var t identity.ResetToken
	err := r.db.QueryRowContext(ctx, query, token, now).
		Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// Nothing matched. Look the token up once more to report a spent token
	// distinctly from an unknown or expired one.
	var used bool
	err = r.db.QueryRowContext(ctx,
		`SELECT used FROM reset_tokens WHERE token = $1`, token).Scan(&used)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, identity.ErrInvalidResetToken
	case err != nil:
		return nil, fmt.Errorf("db error: %w", err)
	case used:
		return nil, identity.ErrResetTokenUsed
	default:
		return nil, identity.ErrInvalidResetToken
	}
}

func (r *ResetTokenRepository) DeleteDeadForUser(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE user_id = $1 AND (used = TRUE OR expires_at <= $2)`,
		userID, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

var _ identity.ResetTokenStore = (*ResetTokenRepository)(nil)
