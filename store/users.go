package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/feedbackloop/identity"
)

// UserRepository persists users, their subtype records, and their backup
// codes. It implements [identity.UserStore].
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.kind, u.first_name, u.last_name, u.email, u.contact,
	 u.password_hash, u.logo_url, u.domain, u.description, u.certified,
	 u.registered_at, u.two_factor_enabled, u.totp_secret,
	 p.occupation, o.location`

const userSelect = `SELECT ` + userColumns + `
	 FROM users u
	 LEFT JOIN persons p ON p.user_id = u.id
	 LEFT JOIN organizations o ON o.user_id = u.id`

func scanUser(row *sql.Row) (*identity.User, error) {
	var (
		u               identity.User
		email, contact  sql.NullString
		secret          []byte
		occupation, loc sql.NullString
	)

	err := row.Scan(&u.ID, &u.Kind, &u.FirstName, &u.LastName, &email, &contact,
		&u.PasswordHash, &u.LogoURL, &u.Domain, &u.Description, &u.Certified,
		&u.RegisteredAt, &u.TwoFactorEnabled, &secret,
		&occupation, &loc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Email = email.String
	u.Contact = contact.String
	u.TOTPSecret = secret

	switch u.Kind {
	case identity.KindPerson:
		u.Person = &identity.PersonData{Occupation: occupation.String}
	case identity.KindOrganization:
		u.Organization = &identity.OrganizationData{Location: loc.String}
	}

	return &u, nil
}

// FindByIdentifier matches the identifier against either unique column.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*identity.User, error) {
	query := userSelect + `
	 WHERE u.email = $1 OR u.contact = $1`

	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	query := userSelect + `
	 WHERE u.id = $1`

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = $1`, email)
}

func (r *UserRepository) ExistsByContact(ctx context.Context, contact string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE contact = $1`, contact)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// CreateUser inserts the base row and its subtype row in one transaction so
// a subtype failure cannot leave an orphaned base record.
func (r *UserRepository) CreateUser(ctx context.Context, user *identity.User) error {
	return WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, kind, first_name, last_name, email, contact,
			   password_hash, logo_url, domain, description, certified,
			   registered_at, two_factor_enabled, totp_secret)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			user.ID, string(user.Kind), user.FirstName, user.LastName,
			nullable(user.Email), nullable(user.Contact),
			user.PasswordHash, user.LogoURL, user.Domain, user.Description,
			user.Certified, user.RegisteredAt, user.TwoFactorEnabled, user.TOTPSecret)
		if err != nil {
			if isUniqueViolation(err) {
				return identity.ErrUserAlreadyExists
			}
			return fmt.Errorf("db error: %w", err)
		}

		switch user.Kind {
		case identity.KindPerson:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO persons (user_id, occupation) VALUES ($1, $2)`,
				user.ID, user.Person.Occupation)
		case identity.KindOrganization:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO organizations (user_id, location) VALUES ($1, $2)`,
				user.ID, user.Organization.Location)
		default:
			return identity.ErrUnknownKind
		}
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, newHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// EnableTwoFactor stores the secret, flips the flag, and replaces the full
// backup-code set in one transaction.
func (r *UserRepository) EnableTwoFactor(ctx context.Context, userID string, secret []byte, codes []identity.BackupCodeRecord) error {
	return WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET two_factor_enabled = TRUE, totp_secret = $2 WHERE id = $1`,
			userID, secret)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for _, code := range codes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO backup_codes (user_id, code_hash) VALUES ($1, $2)`,
				userID, code.Hash[:]); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (r *UserRepository) DisableTwoFactor(ctx context.Context, userID string) error {
	return WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET two_factor_enabled = FALSE, totp_secret = NULL WHERE id = $1`,
			userID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) GetBackupCodes(ctx context.Context, userID string) ([]identity.BackupCodeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code_hash FROM backup_codes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var codes []identity.BackupCodeRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var rec identity.BackupCodeRecord
		copy(rec.Hash[:], raw)
		codes = append(codes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return codes, nil
}

// ConsumeBackupCode deletes the matching code; the delete doubles as the
// membership check, so a code can only ever be spent once.
func (r *UserRepository) ConsumeBackupCode(ctx context.Context, userID string, codeHash [32]byte) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = $1 AND code_hash = $2`,
		userID, codeHash[:])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

var _ identity.UserStore = (*UserRepository)(nil)
