package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/feedbackloop/identity/internal/rate"
	"github.com/feedbackloop/identity/metrics"
)

// Login authenticates by email-or-contact and password. When the user has a
// second factor enabled the result carries TwoFactorRequired and no token;
// the caller completes the login with [Engine.VerifyTwoFactor].
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*AuthResult, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	if err := e.limiter.CheckLogin(ctx, identifier); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(metrics.MetricLoginRateLimited)
			return nil, ErrLoginRateLimited
		}
		return nil, err
	}

	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown identifiers burn attempts too, so the budget cannot
			// be probed for which accounts exist.
			return nil, e.loginFailure(ctx, identifier, "", ErrUserNotFound)
		}
		return nil, err
	}

	if !e.hasher.Matches(pass, user.PasswordHash) {
		return nil, e.loginFailure(ctx, identifier, user.ID, ErrInvalidPassword)
	}

	if err := e.limiter.ResetLogin(ctx, identifier); err != nil {
		e.logger.Warn("login counter reset failed", zap.Error(err))
	}

	if user.TwoFactorEnabled {
		e.metrics.Inc(metrics.MetricTwoFactorRequired)
		e.audit(ctx, "login_second_factor_pending", user.ID, true, nil)
		return &AuthResult{Profile: user.Profile(), TwoFactorRequired: true}, nil
	}

	tok, err := e.issueToken(user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.MetricLoginSuccess)
	e.audit(ctx, "login_success", user.ID, true, nil)

	return &AuthResult{Profile: user.Profile(), Token: tok}, nil
}

func (e *Engine) loginFailure(ctx context.Context, identifier, userID string, cause error) error {
	e.metrics.Inc(metrics.MetricLoginFailure)
	e.audit(ctx, "login_failure", userID, false, cause)

	if err := e.limiter.RecordLoginFailure(ctx, identifier); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(metrics.MetricLoginRateLimited)
			return ErrLoginRateLimited
		}
		e.logger.Warn("login failure not recorded", zap.Error(err))
	}
	return cause
}

// VerifyTwoFactor completes a login whose first factor already passed. The
// code may be a TOTP code or one of the user's backup codes; a backup code
// is consumed on use.
func (e *Engine) VerifyTwoFactor(ctx context.Context, identifier, code string) (*AuthResult, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if err := e.limiter.CheckTwoFactor(ctx, user.ID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, ErrTwoFactorRateLimited
		}
		return nil, err
	}

	ok, err := e.totp.VerifyCode(user.TOTPSecret, code, e.clock())
	if err != nil {
		return nil, err
	}

	usedBackupCode := false
	if !ok {
		ok, err = e.users.ConsumeBackupCode(ctx, user.ID, backupCodeHash(user.ID, code))
		if err != nil {
			return nil, err
		}
		usedBackupCode = ok
	}

	if !ok {
		e.metrics.Inc(metrics.MetricTwoFactorFailure)
		e.audit(ctx, "two_factor_failure", user.ID, false, ErrInvalidTwoFactorCode)

		if err := e.limiter.RecordTwoFactorFailure(ctx, user.ID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return nil, ErrTwoFactorRateLimited
			}
			e.logger.Warn("two-factor failure not recorded", zap.Error(err))
		}
		return nil, ErrInvalidTwoFactorCode
	}

	if err := e.limiter.ResetTwoFactor(ctx, user.ID); err != nil {
		e.logger.Warn("two-factor counter reset failed", zap.Error(err))
	}

	tok, err := e.issueToken(user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.MetricTwoFactorSuccess)
	if usedBackupCode {
		e.metrics.Inc(metrics.MetricBackupCodeUsed)
		e.audit(ctx, "two_factor_backup_code_used", user.ID, true, nil)
	} else {
		e.audit(ctx, "two_factor_success", user.ID, true, nil)
	}

	return &AuthResult{Profile: user.Profile(), Token: tok}, nil
}
