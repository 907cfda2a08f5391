package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/identity-service/internal/models"
	"github.com/clinicore/identity-service/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for the identity core.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			mobile_number TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			status TEXT NOT NULL,
			org_ids TEXT[] NOT NULL DEFAULT '{}',
			last_login_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_ci_idx ON users (LOWER(email));`,
		`CREATE INDEX IF NOT EXISTS users_mobile_idx ON users (mobile_number);`,
		`CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			normalized_name TEXT NOT NULL,
			status TEXT NOT NULL,
			has_multiple_branches BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS organizations_normalized_name_idx ON organizations (normalized_name);`,
		`CREATE TABLE IF NOT EXISTS branches (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS memberships (
			user_id TEXT NOT NULL REFERENCES users(id),
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			role TEXT NOT NULL,
			access_scope TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, organization_id)
		);`,
		`CREATE TABLE IF NOT EXISTS verification_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateTenantSignup persists the five signup records inside one transaction.
func (s *Store) CreateTenantSignup(ctx context.Context, signup storage.TenantSignup) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin signup transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	u := signup.User
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, mobile_number, display_name, password_hash, status, org_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.MobileNumber, u.DisplayName, u.PasswordHash, u.Status, u.Organizations, u.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}

	o := signup.Organization
	if _, err := tx.Exec(ctx, `
		INSERT INTO organizations (id, name, normalized_name, status, has_multiple_branches, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.Name, o.NormalizedName, o.Status, o.HasMultipleBranches, o.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}

	b := signup.Branch
	if _, err := tx.Exec(ctx, `
		INSERT INTO branches (id, organization_id, name, address)
		VALUES ($1, $2, $3, $4)`,
		b.ID, b.OrganizationID, b.Name, b.Address,
	); err != nil {
		return mapWriteError(err)
	}

	m := signup.Membership
	if _, err := tx.Exec(ctx, `
		INSERT INTO memberships (user_id, organization_id, role, access_scope)
		VALUES ($1, $2, $3, $4)`,
		m.UserID, m.OrganizationID, m.Role, m.AccessScope,
	); err != nil {
		return mapWriteError(err)
	}

	vt := signup.VerificationToken
	if _, err := tx.Exec(ctx, `
		INSERT INTO verification_tokens (token, user_id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		vt.Token, vt.UserID, vt.Email, vt.ExpiresAt, vt.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signup transaction: %w", err)
	}
	return nil
}

// FindUserByID fetches a user by its opaque id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, `WHERE id = $1`, id)
}

// FindUserByEmail fetches a user by email, case-insensitively.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, `WHERE LOWER(email) = LOWER($1)`, email)
}

// FindUserByMobile fetches a user by mobile number.
func (s *Store) FindUserByMobile(ctx context.Context, mobile string) (models.User, error) {
	return s.findUser(ctx, `WHERE mobile_number = $1`, mobile)
}

func (s *Store) findUser(ctx context.Context, where string, arg any) (models.User, error) {
	query := `
	SELECT id, email, mobile_number, display_name, password_hash, status, org_ids, last_login_at, created_at
	FROM users ` + where + ` LIMIT 1;`
	row := s.pool.QueryRow(ctx, query, arg)
	return scanUser(row)
}

// FindOrganizationByNormalizedName fetches a tenant by its normalized name.
func (s *Store) FindOrganizationByNormalizedName(ctx context.Context, name string) (models.Organization, error) {
	const query = `
	SELECT id, name, normalized_name, status, has_multiple_branches, created_at
	FROM organizations WHERE normalized_name = $1;`
	var org models.Organization
	row := s.pool.QueryRow(ctx, query, name)
	if err := row.Scan(&org.ID, &org.Name, &org.NormalizedName, &org.Status, &org.HasMultipleBranches, &org.CreatedAt); err != nil {
		return models.Organization{}, mapReadError(err)
	}
	return org, nil
}

// FindMembership fetches the membership for a (user, organization) pair.
func (s *Store) FindMembership(ctx context.Context, userID, orgID string) (models.Membership, error) {
	const query = `
	SELECT user_id, organization_id, role, access_scope
	FROM memberships WHERE user_id = $1 AND organization_id = $2;`
	var m models.Membership
	row := s.pool.QueryRow(ctx, query, userID, orgID)
	if err := row.Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.AccessScope); err != nil {
		return models.Membership{}, mapReadError(err)
	}
	return m, nil
}

// UpdateUserPassword replaces the stored password digest.
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateLastLogin records the most recent successful sign-in.
func (s *Store) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindVerificationToken fetches a verification token by its token string.
func (s *Store) FindVerificationToken(ctx context.Context, token string) (models.VerificationToken, error) {
	const query = `
	SELECT token, user_id, email, expires_at, created_at
	FROM verification_tokens WHERE token = $1;`
	var vt models.VerificationToken
	row := s.pool.QueryRow(ctx, query, token)
	if err := row.Scan(&vt.Token, &vt.UserID, &vt.Email, &vt.ExpiresAt, &vt.CreatedAt); err != nil {
		return models.VerificationToken{}, mapReadError(err)
	}
	return vt, nil
}

// ActivateUser sets the password digest and ACTIVE status and deletes the
// verification token in one transaction.
func (s *Store) ActivateUser(ctx context.Context, userID, passwordHash, token string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin activation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, status = $3 WHERE id = $1`,
		userID, passwordHash, models.StatusActive)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	tag, err = tx.Exec(ctx, `DELETE FROM verification_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit activation transaction: %w", err)
	}
	return nil
}

// CreatePasswordResetToken persists a reset token for the email channel.
func (s *Store) CreatePasswordResetToken(ctx context.Context, token models.PasswordResetToken) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		token.Token, token.UserID, token.Email, token.ExpiresAt, token.CreatedAt,
	); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// FindPasswordResetToken fetches a reset token by its token string.
func (s *Store) FindPasswordResetToken(ctx context.Context, token string) (models.PasswordResetToken, error) {
	const query = `
	SELECT token, user_id, email, expires_at, created_at
	FROM password_reset_tokens WHERE token = $1;`
	var rt models.PasswordResetToken
	row := s.pool.QueryRow(ctx, query, token)
	if err := row.Scan(&rt.Token, &rt.UserID, &rt.Email, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
		return models.PasswordResetToken{}, mapReadError(err)
	}
	return rt, nil
}

// ConsumePasswordResetToken updates the password digest and deletes the reset
// token in one transaction.
func (s *Store) ConsumePasswordResetToken(ctx context.Context, userID, passwordHash, token string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	tag, err = tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset transaction: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.MobileNumber, &user.DisplayName,
		&user.PasswordHash, &user.Status, &user.Organizations, &user.LastLoginAt, &user.CreatedAt); err != nil {
		return models.User{}, mapReadError(err)
	}
	return user, nil
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrAlreadyExists
	}
	return err
}
