package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/feedbackloop/identity/metrics"
)

func TestRegisterPerson(t *testing.T) {
	engine, users, _ := newTestEngine(t, engineTestConfig())

	res, err := engine.Register(context.Background(), personInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token on registration")
	}
	if res.Profile.Kind != KindPerson || res.Profile.Occupation != "engineer" {
		t.Fatalf("unexpected profile: %+v", res.Profile)
	}
	if res.Profile.Location != "" {
		t.Fatal("person profile must not carry a location")
	}

	stored, err := users.FindByID(context.Background(), res.Profile.ID)
	if err != nil {
		t.Fatalf("stored user not found: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "Secret123" {
		t.Fatal("password must be stored hashed")
	}

	claims, err := engine.VerifyToken(res.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID != res.Profile.ID || claims.Role != string(KindPerson) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "ada@x.com" {
		t.Fatalf("subject must be the email, got %q", claims.Subject)
	}

	if got := engine.Metrics().Counters[metrics.MetricRegisterSuccess]; got != 1 {
		t.Fatalf("expected 1 registration counted, got %d", got)
	}
}

func TestRegisterOrganizationContactOnly(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())

	res, err := engine.Register(context.Background(), organizationInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Profile.Kind != KindOrganization || res.Profile.Location != "Riga" {
		t.Fatalf("unexpected profile: %+v", res.Profile)
	}

	claims, err := engine.VerifyToken(res.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	// No email, so the contact becomes the subject.
	if claims.Subject != "+37120000000" {
		t.Fatalf("subject must fall back to contact, got %q", claims.Subject)
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	noID := personInput()
	noID.Email = ""
	noID.Contact = ""
	if _, err := engine.Register(ctx, noID); !errors.Is(err, ErrMissingIdentifier) {
		t.Fatalf("want ErrMissingIdentifier, got %v", err)
	}

	noOccupation := personInput()
	noOccupation.Occupation = ""
	if _, err := engine.Register(ctx, noOccupation); !errors.Is(err, ErrMissingTypeField) {
		t.Fatalf("want ErrMissingTypeField, got %v", err)
	}

	noLocation := organizationInput()
	noLocation.Location = ""
	if _, err := engine.Register(ctx, noLocation); !errors.Is(err, ErrMissingTypeField) {
		t.Fatalf("want ErrMissingTypeField, got %v", err)
	}

	badKind := personInput()
	badKind.Kind = Kind("ROBOT")
	if _, err := engine.Register(ctx, badKind); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("want ErrUnknownKind, got %v", err)
	}
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	if _, err := engine.Register(ctx, personInput()); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	dup := personInput()
	dup.FirstName = "Another"
	if _, err := engine.Register(ctx, dup); !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("want ErrUserAlreadyExists, got %v", err)
	}

	if got := engine.Metrics().Counters[metrics.MetricRegisterDuplicate]; got != 1 {
		t.Fatalf("expected 1 duplicate counted, got %d", got)
	}
}

func TestCurrentUser(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	res, err := engine.Register(ctx, personInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	profile, err := engine.CurrentUser(ctx, res.Token)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if profile.ID != res.Profile.ID || profile.Occupation != "engineer" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := engine.CurrentUser(ctx, "not-a-token"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestUserByIdentifier(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig())
	ctx := context.Background()

	if _, err := engine.Register(ctx, personInput()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	profile, err := engine.UserByIdentifier(ctx, "ada@x.com")
	if err != nil {
		t.Fatalf("UserByIdentifier failed: %v", err)
	}
	if profile.Email != "ada@x.com" || profile.Occupation != "engineer" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := engine.UserByIdentifier(ctx, "ghost@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
	if _, err := engine.UserByIdentifier(ctx, ""); !errors.Is(err, ErrMissingIdentifier) {
		t.Fatalf("want ErrMissingIdentifier, got %v", err)
	}
}
