package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedbackloop/identity"
)

// guardTestEngine builds an engine with throwaway in-memory stores; the
// guard only exercises token verification.
func guardTestEngine(t *testing.T) (*identity.Engine, string) {
	t.Helper()

	cfg := identity.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := identity.New().
		WithConfig(cfg).
		WithStores(&stubUserStore{}, &stubResetStore{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	res, err := engine.Register(context.Background(), identity.RegistrationInput{
		Kind:       identity.KindPerson,
		FirstName:  "Ada",
		Email:      "ada@x.com",
		Password:   "Secret123",
		Occupation: "engineer",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return engine, res.Token
}

func TestGuardPassesValidToken(t *testing.T) {
	engine, tok := guardTestEngine(t)

	var gotUserID string
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotUserID = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID == "" {
		t.Fatal("expected the caller's user id in context")
	}
}

func TestGuardRejects(t *testing.T) {
	engine, _ := guardTestEngine(t)
	handler := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

// Minimal store stubs; only the paths Register touches are implemented.
type stubUserStore struct {
	created *identity.User
}

func (s *stubUserStore) FindByIdentifier(context.Context, string) (*identity.User, error) {
	return nil, identity.ErrUserNotFound
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*identity.User, error) {
	if s.created != nil && s.created.ID == id {
		return s.created, nil
	}
	return nil, identity.ErrUserNotFound
}

func (s *stubUserStore) ExistsByEmail(context.Context, string) (bool, error)   { return false, nil }
func (s *stubUserStore) ExistsByContact(context.Context, string) (bool, error) { return false, nil }

func (s *stubUserStore) CreateUser(_ context.Context, user *identity.User) error {
	s.created = user
	return nil
}

func (s *stubUserStore) UpdatePasswordHash(context.Context, string, string) error { return nil }

func (s *stubUserStore) EnableTwoFactor(context.Context, string, []byte, []identity.BackupCodeRecord) error {
	return nil
}
func (s *stubUserStore) DisableTwoFactor(context.Context, string) error { return nil }
func (s *stubUserStore) GetBackupCodes(context.Context, string) ([]identity.BackupCodeRecord, error) {
	return nil, nil
}
func (s *stubUserStore) ConsumeBackupCode(context.Context, string, [32]byte) (bool, error) {
	return false, nil
}

type stubResetStore struct{}

func (stubResetStore) Create(context.Context, *identity.ResetToken) error { return nil }
func (stubResetStore) Consume(context.Context, string, time.Time) (*identity.ResetToken, error) {
	return nil, identity.ErrInvalidResetToken
}
func (stubResetStore) DeleteDeadForUser(context.Context, string, time.Time) error { return nil }
