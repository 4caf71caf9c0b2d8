package postgres

import (
	"context"
	"database/sql"

	"digilocker/internal/model"
	"digilocker/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const userColumns = `id, name, email, password_hash, avatar_url, email_confirmed, provider, provider_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.EmailConfirmed,
		&u.Provider,
		&u.ProviderID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row and returns the stored record.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, name, email, password_hash, avatar_url, email_confirmed, provider, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, q,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.AvatarURL,
		u.EmailConfirmed,
		u.Provider,
		u.ProviderID,
		u.CreatedAt,
	)
	return scanUser(row)
}

// FindByID fetches a single user by ID.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByEmail fetches a single user by email.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByProvider fetches a user by federated provider identity.
func (r *UserPostgres) FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_id = $2`
	return scanUser(r.db.QueryRowContext(ctx, q, provider, providerID))
}

// IsEmailTaken reports whether a user with the given email already exists.
func (r *UserPostgres) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// SetEmailConfirmed flips the email confirmation flag.
func (r *UserPostgres) SetEmailConfirmed(ctx context.Context, id string, confirmed bool) error {
	const q = `UPDATE users SET email_confirmed = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, confirmed)
	return err
}

// SaveRefreshToken persists a refresh token for the user.
func (r *UserPostgres) SaveRefreshToken(ctx context.Context, userID, token string) error {
	const q = `INSERT INTO refresh_tokens (user_id, token) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, q, userID, token)
	return err
}

// IsRefreshTokenValid reports whether the token is stored for the user.
func (r *UserPostgres) IsRefreshTokenValid(ctx context.Context, userID, token string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token = $2)`
	var valid bool
	if err := r.db.QueryRowContext(ctx, q, userID, token).Scan(&valid); err != nil {
		return false, err
	}
	return valid, nil
}

// DeleteRefreshToken removes a stored refresh token. Removing an unknown
// token is not an error.
func (r *UserPostgres) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2`
	_, err := r.db.ExecContext(ctx, q, userID, token)
	return err
}
