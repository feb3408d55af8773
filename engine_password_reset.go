package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedbackloop/identity/internal/rate"
	"github.com/feedbackloop/identity/metrics"
	"github.com/feedbackloop/identity/notify"
)

// RequestPasswordReset mints a single-use reset token for the user behind
// the identifier, hands it to the notifier for delivery, and returns it.
// Requesting again before an earlier token expires is allowed; every
// outstanding unexpired token stays valid until used.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) (*ResetToken, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	if err := e.limiter.CheckReset(ctx, identifier); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, ErrResetRateLimited
		}
		return nil, err
	}

	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if recErr := e.limiter.RecordResetFailure(ctx, identifier); recErr != nil {
				if errors.Is(recErr, rate.ErrRateLimited) {
					return nil, ErrResetRateLimited
				}
				e.logger.Warn("reset failure not recorded", zap.Error(recErr))
			}
		}
		return nil, err
	}

	now := e.clock().UTC()

	// Housekeeping; stale tokens are harmless either way.
	if err := e.resets.DeleteDeadForUser(ctx, user.ID, now); err != nil {
		e.logger.Warn("dead reset tokens not removed",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	reset := &ResetToken{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(e.config.PasswordReset.TokenTTL),
		CreatedAt: now,
	}
	if err := e.resets.Create(ctx, reset); err != nil {
		return nil, err
	}

	if err := e.notifier.SendPasswordReset(ctx, notify.PasswordResetNotification{
		Recipient: user.Identifier(),
		Name:      user.FirstName,
		Token:     reset.Token,
		ExpiresAt: reset.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.MetricResetRequest)
	e.audit(ctx, "password_reset_requested", user.ID, true, nil)

	return reset, nil
}

// ConfirmPasswordReset spends the token and replaces the user's password.
// The consume is atomic in the store, so a token confirms at most once even
// under concurrent attempts.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := e.limiter.CheckReset(ctx, tokenStr); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return ErrResetRateLimited
		}
		return err
	}

	consumed, err := e.resets.Consume(ctx, tokenStr, e.clock().UTC())
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) || errors.Is(err, ErrResetTokenUsed) {
			e.metrics.Inc(metrics.MetricResetConfirmFailure)
			e.audit(ctx, "password_reset_rejected", "", false, err)

			if recErr := e.limiter.RecordResetFailure(ctx, tokenStr); recErr != nil {
				if errors.Is(recErr, rate.ErrRateLimited) {
					return ErrResetRateLimited
				}
				e.logger.Warn("reset failure not recorded", zap.Error(recErr))
			}
		}
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, consumed.UserID, hash); err != nil {
		return err
	}

	e.metrics.Inc(metrics.MetricResetConfirmSuccess)
	e.audit(ctx, "password_reset_confirmed", consumed.UserID, true, nil)
	e.logger.Info("password reset", zap.String("user_id", consumed.UserID))

	return nil
}
