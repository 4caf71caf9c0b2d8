package model

import "time"

// User is the identity documents are scoped to.
// PasswordHash is empty for users provisioned through a federated provider.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Provider       string    `json:"provider,omitempty"`
	ProviderID     string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
