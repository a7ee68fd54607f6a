package models

import "time"

// OTPPurpose separates the two one-time-code flows; codes of one purpose are
// never valid for the other, and they live in separate collections.
type OTPPurpose string

const (
	OTPPurposePasswordReset OTPPurpose = "password_reset"
	OTPPurposeTwoFactor     OTPPurpose = "two_factor"
)

// OneTimeCode is a short-lived 6-digit credential emailed to an account.
// Issuing a new code marks all prior unused codes for the same account and
// purpose as used.
// Collections: password_reset_otps, two_factor_otps
type OneTimeCode struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    AccountID `bson:"user_id" json:"userId"`
	Email     string    `bson:"email" json:"email"`
	Code      string    `bson:"otp" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	Used      bool      `bson:"used" json:"used"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// IsExpired reports whether the code has passed its expiry at the given time.
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
