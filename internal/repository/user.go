package repository

import (
	"context"

	"digilocker/internal/model"
)

// UserRepository defines data access for identities and their refresh tokens.
type UserRepository interface {
	// Create inserts a new user and returns the stored row.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// FindByID returns a user by ID.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail returns a user by email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByProvider returns a user previously provisioned through a
	// federated provider.
	FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error)

	// IsEmailTaken reports whether a user with the given email exists.
	IsEmailTaken(ctx context.Context, email string) (bool, error)

	// SetEmailConfirmed flips the email confirmation flag.
	SetEmailConfirmed(ctx context.Context, id string, confirmed bool) error

	// SaveRefreshToken persists a refresh token for the user.
	SaveRefreshToken(ctx context.Context, userID, token string) error

	// IsRefreshTokenValid reports whether the token is currently stored
	// for the user.
	IsRefreshTokenValid(ctx context.Context, userID, token string) (bool, error)

	// DeleteRefreshToken removes a stored refresh token. Deleting an
	// unknown token is not an error.
	DeleteRefreshToken(ctx context.Context, userID, token string) error
}
