package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedbackloop/identity/metrics"
)

// Register creates a user of the given kind, hashes the password, persists
// the base and subtype records atomically, and returns the profile together
// with a freshly issued bearer token.
func (e *Engine) Register(ctx context.Context, input RegistrationInput) (*AuthResult, error) {
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	if input.Email != "" {
		taken, err := e.users.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			e.metrics.Inc(metrics.MetricRegisterDuplicate)
			return nil, ErrUserAlreadyExists
		}
	}
	if input.Contact != "" {
		taken, err := e.users.ExistsByContact(ctx, input.Contact)
		if err != nil {
			return nil, err
		}
		if taken {
			e.metrics.Inc(metrics.MetricRegisterDuplicate)
			return nil, ErrUserAlreadyExists
		}
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Kind:         input.Kind,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Contact:      input.Contact,
		PasswordHash: hash,
		LogoURL:      input.LogoURL,
		Domain:       input.Domain,
		Description:  input.Description,
		RegisteredAt: e.clock().UTC(),
	}
	switch input.Kind {
	case KindPerson:
		user.Person = &PersonData{Occupation: input.Occupation}
	case KindOrganization:
		user.Organization = &OrganizationData{Location: input.Location}
	}

	// The unique indexes are the real guard; the pre-checks above only give
	// earlier, cheaper failures.
	if err := e.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			e.metrics.Inc(metrics.MetricRegisterDuplicate)
		}
		e.audit(ctx, "register", user.ID, false, err)
		return nil, err
	}

	tok, err := e.issueToken(user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.MetricRegisterSuccess)
	e.audit(ctx, "register", user.ID, true, nil)
	e.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("kind", string(user.Kind)),
	)

	return &AuthResult{Profile: user.Profile(), Token: tok}, nil
}

func validateRegistration(input RegistrationInput) error {
	if !input.Kind.Valid() {
		return ErrUnknownKind
	}
	if input.Email == "" && input.Contact == "" {
		return ErrMissingIdentifier
	}
	switch input.Kind {
	case KindPerson:
		if input.Occupation == "" {
			return ErrMissingTypeField
		}
	case KindOrganization:
		if input.Location == "" {
			return ErrMissingTypeField
		}
	}
	return nil
}
