package models

import "time"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Token lifetimes.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// AuthToken is an opaque bearer credential stored server-side. Logout and
// password reset delete all of an account's tokens; expired tokens are
// deleted lazily when presented.
// Collection: tokens
type AuthToken struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    AccountID `bson:"user_id" json:"userId"`
	Token     string    `bson:"token" json:"-"`
	TokenType TokenType `bson:"token_type" json:"tokenType"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// IsExpired reports whether the token has passed its expiry at the given time.
func (t *AuthToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
