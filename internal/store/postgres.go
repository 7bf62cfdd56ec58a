// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and user queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore wraps a pgx connection pool. Safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and verifies a connection pool to PostgreSQL.
// Call once at startup from main.go.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth verifies the database connection is alive.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUserWithPassword inserts a new user with email + password credentials.
// The caller generates the UUID v7 and Argon2id hash before calling.
// Returns the raw pgx error; handlers inspect it for unique violations.
func (s *PostgresStore) CreateUserWithPassword(ctx context.Context, id uuid.UUID, email string, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)",
		id, email, passwordHash)
	return err
}

// CreateUserFromIDP inserts a new user provisioned from a verified external
// identity token. No password — the CHECK constraint is satisfied by idp_subject.
func (s *PostgresStore) CreateUserFromIDP(ctx context.Context, id uuid.UUID, email string, subject string, fullName, avatarURL *string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, email, idp_subject, full_name, avatar_url) VALUES ($1, $2, $3, $4, $5)",
		id, email, subject, fullName, avatarURL)
	return err
}

// GetUserByEmail fetches a user by email. Returns pgx.ErrNoRows if not found.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(ctx,
		"SELECT id, email, full_name, avatar_url, password_hash, idp_subject, created_at, updated_at FROM users WHERE email = $1",
		email)
}

// GetUserByID fetches a user by primary key. Returns pgx.ErrNoRows if not found.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanUser(ctx,
		"SELECT id, email, full_name, avatar_url, password_hash, idp_subject, created_at, updated_at FROM users WHERE id = $1",
		id)
}

// GetUserByIDPSubject fetches a user by external identity subject.
// Returns pgx.ErrNoRows if no local account is linked to the subject yet.
func (s *PostgresStore) GetUserByIDPSubject(ctx context.Context, subject string) (*User, error) {
	return s.scanUser(ctx,
		"SELECT id, email, full_name, avatar_url, password_hash, idp_subject, created_at, updated_at FROM users WHERE idp_subject = $1",
		subject)
}

// LinkIDPSubject attaches an external identity subject to an existing account.
// Used when a verified IdP token carries an email that already has a password account.
func (s *PostgresStore) LinkIDPSubject(ctx context.Context, userID uuid.UUID, subject string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE users SET idp_subject = $1, updated_at = now() WHERE id = $2",
		subject, userID)
	return err
}

func (s *PostgresStore) scanUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL,
		&u.PasswordHash, &u.IDPSubject, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
