package identity

import (
	"context"
	"sync"
	"testing"
	"time"
)

// memUserStore is an in-memory UserStore for engine tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*User
	codes map[string][]BackupCodeRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users: make(map[string]*User),
		codes: make(map[string][]BackupCodeRecord),
	}
}

func (s *memUserStore) FindByIdentifier(_ context.Context, identifier string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (u.Email != "" && u.Email == identifier) || (u.Contact != "" && u.Contact == identifier) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != "" && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) ExistsByContact(_ context.Context, contact string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Contact != "" && u.Contact == contact {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (user.Email != "" && u.Email == user.Email) || (user.Contact != "" && u.Contact == user.Contact) {
			return ErrUserAlreadyExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	return nil
}

func (s *memUserStore) EnableTwoFactor(_ context.Context, userID string, secret []byte, codes []BackupCodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.TwoFactorEnabled = true
	u.TOTPSecret = secret
	s.codes[userID] = append([]BackupCodeRecord(nil), codes...)
	return nil
}

func (s *memUserStore) DisableTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.TwoFactorEnabled = false
	u.TOTPSecret = nil
	delete(s.codes, userID)
	return nil
}

func (s *memUserStore) GetBackupCodes(_ context.Context, userID string) ([]BackupCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BackupCodeRecord(nil), s.codes[userID]...), nil
}

func (s *memUserStore) ConsumeBackupCode(_ context.Context, userID string, codeHash [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[userID]
	for i, rec := range codes {
		if rec.Hash == codeHash {
			s.codes[userID] = append(codes[:i], codes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// memResetStore is an in-memory ResetTokenStore for engine tests.
type memResetStore struct {
	mu     sync.Mutex
	tokens map[string]*ResetToken
}

func newMemResetStore() *memResetStore {
	return &memResetStore{tokens: make(map[string]*ResetToken)}
}

func (s *memResetStore) Create(_ context.Context, token *ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

func (s *memResetStore) Consume(_ context.Context, token string, now time.Time) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, ErrInvalidResetToken
	}
	if t.Used {
		return nil, ErrResetTokenUsed
	}
	if !t.ExpiresAt.After(now) {
		return nil, ErrInvalidResetToken
	}
	t.Used = true
	cp := *t
	return &cp, nil
}

func (s *memResetStore) DeleteDeadForUser(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tokens {
		if t.UserID == userID && (t.Used || !t.ExpiresAt.After(now)) {
			delete(s.tokens, k)
		}
	}
	return nil
}

func engineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	// Cheap hashing keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memUserStore, *memResetStore) {
	t.Helper()

	users := newMemUserStore()
	resets := newMemResetStore()

	engine, err := New().
		WithConfig(cfg).
		WithStores(users, resets).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, users, resets
}

func personInput() RegistrationInput {
	return RegistrationInput{
		Kind:       KindPerson,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@x.com",
		Password:   "Secret123",
		Occupation: "engineer",
	}
}

func organizationInput() RegistrationInput {
	return RegistrationInput{
		Kind:      KindOrganization,
		FirstName: "Acme",
		Contact:   "+37120000000",
		Password:  "Secret123",
		Domain:    "acme.example",
		Location:  "Riga",
	}
}
