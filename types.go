package identity

import (
	"context"
	"time"
)

// Kind discriminates which subtype record extends a base [User].
type Kind string

const (
	// KindPerson marks a user backed by a person subtype record.
	KindPerson Kind = "PERSON"
	// KindOrganization marks a user backed by an organization subtype record.
	KindOrganization Kind = "ORGANIZATION"
)

// Valid reports whether k is one of the two known discriminator values.
func (k Kind) Valid() bool {
	return k == KindPerson || k == KindOrganization
}

// PersonData is the subtype payload for PERSON users.
type PersonData struct {
	Occupation string
}

// OrganizationData is the subtype payload for ORGANIZATION users.
type OrganizationData struct {
	Location string
}

// User is the base identity record. Exactly one of Person/Organization is
// non-nil, matching Kind. At least one of Email/Contact is non-empty at all
// times; both are unique across users when present.
type User struct {
	ID           string
	Kind         Kind
	FirstName    string
	LastName     string
	Email        string
	Contact      string
	PasswordHash string
	LogoURL      string
	Domain       string
	Description  string
	Certified    bool
	RegisteredAt time.Time

	TwoFactorEnabled bool
	TOTPSecret       []byte

	Person       *PersonData
	Organization *OrganizationData
}

// Identifier returns the claim subject for the user: email when present,
// contact otherwise.
func (u *User) Identifier() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Contact
}

// Profile returns the externally visible view of the user, enriched with
// the subtype field. The password hash and TOTP secret are never included.
func (u *User) Profile() *Profile {
	p := &Profile{
		ID:               u.ID,
		Kind:             u.Kind,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Contact:          u.Contact,
		LogoURL:          u.LogoURL,
		Domain:           u.Domain,
		Description:      u.Description,
		Certified:        u.Certified,
		RegisteredAt:     u.RegisteredAt,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
	switch {
	case u.Person != nil:
		p.Occupation = u.Person.Occupation
	case u.Organization != nil:
		p.Location = u.Organization.Location
	}
	return p
}

// Profile is the enriched, credential-free user view returned by register,
// login, and current-user lookups.
type Profile struct {
	ID               string    `json:"id"`
	Kind             Kind      `json:"kind"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email,omitempty"`
	Contact          string    `json:"contact,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	Domain           string    `json:"domain,omitempty"`
	Description      string    `json:"description,omitempty"`
	Certified        bool      `json:"certified"`
	RegisteredAt     time.Time `json:"registered_at"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	Occupation       string    `json:"occupation,omitempty"`
	Location         string    `json:"location,omitempty"`
}

// RegistrationInput is the input for [Engine.Register].
type RegistrationInput struct {
	Kind        Kind
	FirstName   string
	LastName    string
	Email       string
	Contact     string
	Password    string
	LogoURL     string
	Domain      string
	Description string

	// Occupation is required when Kind is PERSON.
	Occupation string
	// Location is required when Kind is ORGANIZATION.
	Location string
}

// AuthResult is returned by register, login, and two-factor verification.
// Token is empty while a second factor is still outstanding.
type AuthResult struct {
	Profile *Profile
	Token   string

	TwoFactorRequired bool
}

// TwoFactorSetup is returned by [Engine.EnableTwoFactor]. BackupCodes are
// the only plaintext copy ever produced; the store keeps hashes.
type TwoFactorSetup struct {
	SecretBase32    string
	ProvisioningURI string
	BackupCodes     []string
}

// BackupCodeRecord stores the SHA-256 hash of a single backup code.
// The plaintext is never persisted.
type BackupCodeRecord struct {
	Hash [32]byte
}

// ResetToken is a single-use, time-boxed password-reset credential.
type ResetToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// UserStore is the credential store contract the engine persists users
// through. Implementations must back email/contact uniqueness with storage
// level constraints; the engine's existence pre-checks are an early exit,
// not the correctness guarantee.
type UserStore interface {
	// FindByIdentifier matches either the email or the contact column.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByContact(ctx context.Context, contact string) (bool, error)

	// CreateUser persists the base record and its subtype record in one
	// transaction. A subtype failure must not leave an orphaned base row.
	CreateUser(ctx context.Context, user *User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	EnableTwoFactor(ctx context.Context, userID string, secret []byte, codes []BackupCodeRecord) error
	DisableTwoFactor(ctx context.Context, userID string) error
	GetBackupCodes(ctx context.Context, userID string) ([]BackupCodeRecord, error)
	// ConsumeBackupCode removes the matching code and reports whether one
	// was present. Match and removal are a single operation.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash [32]byte) (bool, error)
}

// ResetTokenStore is the password-reset token lifecycle contract.
type ResetTokenStore interface {
	Create(ctx context.Context, token *ResetToken) error
	// Consume atomically marks the token used when it is both unused and
	// unexpired, returning the consumed record. A token that exists but is
	// already used is reported distinctly for diagnostics.
	Consume(ctx context.Context, token string, now time.Time) (*ResetToken, error)
	// DeleteDeadForUser removes the user's expired or used tokens.
	// Housekeeping only; correctness never depends on it.
	DeleteDeadForUser(ctx context.Context, userID string, now time.Time) error
}
