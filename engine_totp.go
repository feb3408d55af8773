package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/feedbackloop/identity/metrics"
)

// EnableTwoFactor provisions a TOTP secret and a fresh batch of single-use
// backup codes for the user. The returned setup is the only time the secret
// and the plaintext codes are ever exposed; the store keeps the secret and
// code hashes only. Re-enabling replaces any previous secret and codes.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	codes, records, err := e.totp.GenerateBackupCodes(user.ID)
	if err != nil {
		return nil, err
	}

	if err := e.users.EnableTwoFactor(ctx, user.ID, secret, records); err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.MetricTwoFactorEnabled)
	e.audit(ctx, "two_factor_enabled", user.ID, true, nil)
	e.logger.Info("two-factor enabled", zap.String("user_id", user.ID))

	return &TwoFactorSetup{
		SecretBase32:    secretBase32,
		ProvisioningURI: e.totp.ProvisionURI(secretBase32, user.Identifier()),
		BackupCodes:     codes,
	}, nil
}

// DisableTwoFactor removes the user's TOTP secret and backup codes.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID string) error {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	if err := e.users.DisableTwoFactor(ctx, user.ID); err != nil {
		return err
	}

	e.metrics.Inc(metrics.MetricTwoFactorDisabled)
	e.audit(ctx, "two_factor_disabled", user.ID, true, nil)

	return nil
}
