package identity

import (
	"errors"

	"github.com/feedbackloop/identity/token"
)

var (
	// ErrMissingIdentifier is returned when neither email nor contact is supplied.
	ErrMissingIdentifier = errors.New("email or contact required")
	// ErrMissingTypeField is returned when the subtype field required by the
	// discriminator (occupation for PERSON, location for ORGANIZATION) is empty.
	ErrMissingTypeField = errors.New("missing required subtype field")
	// ErrUserAlreadyExists is returned when the email or contact is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the identifier or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPassword is returned on a password mismatch at login.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrTwoFactorRequired is returned by login when a second factor is outstanding.
	ErrTwoFactorRequired = errors.New("two-factor verification required")
	// ErrTwoFactorNotEnabled is returned when a 2FA operation targets a user
	// without 2FA configured.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrInvalidTwoFactorCode is returned when neither the TOTP engine nor the
	// backup-code set accepts the submitted code.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrInvalidResetToken is returned when no unused, unexpired reset token
	// matches.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrResetTokenUsed is returned when the reset token exists but was
	// already consumed.
	ErrResetTokenUsed = errors.New("reset token already used")
	// ErrLoginRateLimited is returned when the login attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrTwoFactorRateLimited is returned when the 2FA attempt budget is exhausted.
	ErrTwoFactorRateLimited = errors.New("two-factor attempts rate limited")
	// ErrResetRateLimited is returned when the reset attempt budget is exhausted.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrUnknownKind signals an unreachable discriminator value. It marks a
	// programming-invariant violation, never a user-facing condition.
	ErrUnknownKind = errors.New("unknown user kind")
	// ErrNotOwner is returned when a caller acts on a resource it does not own.
	ErrNotOwner = errors.New("caller does not own resource")
	// ErrEngineNotReady is returned when the engine is missing a dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind buckets engine errors for transport mapping (HTTP status codes,
// gRPC codes). Classification is stable: callers may branch on it.
type ErrorKind int

const (
	// KindInternal covers storage and dependency failures.
	KindInternal ErrorKind = iota
	// KindValidation covers malformed or incomplete input.
	KindValidation
	// KindConflict covers uniqueness collisions.
	KindConflict
	// KindNotFound covers absent users and tokens.
	KindNotFound
	// KindAuthentication covers credential and token failures.
	KindAuthentication
	// KindAuthorization covers ownership violations.
	KindAuthorization
	// KindRateLimited covers exhausted attempt budgets.
	KindRateLimited
)

// Classify maps an engine error to its [ErrorKind]. Unrecognized errors are
// KindInternal.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMissingIdentifier),
		errors.Is(err, ErrMissingTypeField):
		return KindValidation
	case errors.Is(err, ErrUserAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrTwoFactorRequired),
		errors.Is(err, ErrTwoFactorNotEnabled),
		errors.Is(err, ErrInvalidTwoFactorCode),
		errors.Is(err, ErrInvalidResetToken),
		errors.Is(err, ErrResetTokenUsed),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrBadSignature),
		errors.Is(err, token.ErrExpired):
		return KindAuthentication
	case errors.Is(err, ErrNotOwner):
		return KindAuthorization
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrTwoFactorRateLimited),
		errors.Is(err, ErrResetRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
