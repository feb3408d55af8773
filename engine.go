package identity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/feedbackloop/identity/audit"
	"github.com/feedbackloop/identity/internal/rate"
	"github.com/feedbackloop/identity/metrics"
	"github.com/feedbackloop/identity/notify"
	"github.com/feedbackloop/identity/password"
	"github.com/feedbackloop/identity/token"
)

// Engine is the credential-lifecycle core: registration, login, two-factor
// verification, and password reset. Construct one through [Builder]; an
// Engine is immutable and safe for concurrent use.
type Engine struct {
	config   Config
	users    UserStore
	resets   ResetTokenStore
	hasher   *password.Argon2
	tokens   *token.Manager
	totp     *totpManager
	limiter  *rate.Limiter
	auditor  *audit.Dispatcher
	metrics  *metrics.Metrics
	notifier notify.Sender
	logger   *zap.Logger

	clock func() time.Time
}

// VerifyToken validates a bearer token and returns its claims. Failures are
// token.ErrMalformed, token.ErrBadSignature, or token.ErrExpired.
func (e *Engine) VerifyToken(tokenStr string) (*token.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.Verify(tokenStr)
}

// CurrentUser resolves a bearer token to the enriched profile of its owner.
func (e *Engine) CurrentUser(ctx context.Context, tokenStr string) (*Profile, error) {
	claims, err := e.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UserByIdentifier returns the enriched profile behind an email-or-contact
// identifier.
func (e *Engine) UserByIdentifier(ctx context.Context, identifier string) (*Profile, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}
	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.auditor.Close()
}

func (e *Engine) issueToken(user *User) (string, error) {
	return e.tokens.Issue(user.ID, string(user.Kind), user.Identifier())
}

func (e *Engine) audit(ctx context.Context, eventType, userID string, success bool, opErr error) {
	event := audit.Event{
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	e.auditor.Emit(ctx, event)
}
