package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
	"github.com/forefold/leadsflow/pkg/uuid"
)

const minPasswordLength = 8

// AuthEventSink receives auth lifecycle events for audit publishing.
type AuthEventSink interface {
	UserSignedUp(user *models.User)
	UserLoggedIn(user *models.User)
	OTPIssued(email string, purpose models.OTPPurpose)
}

// SignupInput carries the registration fields.
type SignupInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"fullName"`
	Role           string `json:"role"`
	CustomRole     string `json:"customRole"`
	CompanyName    string `json:"companyName"`
	CompanySize    string `json:"companySize"`
	Industry       string `json:"industry"`
	CustomIndustry string `json:"customIndustry"`
	Website        string `json:"website"`
	PhoneNumber    string `json:"phoneNumber"`
}

// TokenPair is one issued access/refresh credential set.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// LoginResult is either a token pair or a two-factor challenge.
type LoginResult struct {
	Requires2FA bool         `json:"requires2fa"`
	User        *models.User `json:"user,omitempty"`
	Tokens      *TokenPair   `json:"tokens,omitempty"`
}

// AuthOptions tunes OTP lifetimes and cooldowns.
type AuthOptions struct {
	OTPTTL            time.Duration
	LoginCooldown     time.Duration
	Enable2FACooldown time.Duration
	Now               Clock
}

// AuthService implements signup, login (with optional email two-factor),
// token refresh and revocation, password reset and the two-factor settings
// flows.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	otps     OTPStore
	security SecurityStore
	mailer   Mailer
	limiter  *CooldownLimiter
	events   AuthEventSink
	log      *logrus.Logger

	otpTTL            time.Duration
	loginCooldown     time.Duration
	enable2FACooldown time.Duration
	now               Clock
}

func NewAuthService(users UserStore, tokens TokenStore, otps OTPStore, security SecurityStore, mailer Mailer, limiter *CooldownLimiter, events AuthEventSink, log *logrus.Logger, opts AuthOptions) *AuthService {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.LoginCooldown <= 0 {
		opts.LoginCooldown = 5 * time.Second
	}
	if opts.Enable2FACooldown <= 0 {
		opts.Enable2FACooldown = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthService{
		users:             users,
		tokens:            tokens,
		otps:              otps,
		security:          security,
		mailer:            mailer,
		limiter:           limiter,
		events:            events,
		log:               log,
		otpTTL:            opts.OTPTTL,
		loginCooldown:     opts.LoginCooldown,
		enable2FACooldown: opts.Enable2FACooldown,
		now:               opts.Now,
	}
}

// generateOTP returns a 6-digit code in [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateToken returns a 64-character random hex string.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new account and signs it in.
func (s *AuthService) Signup(ctx context.Context, in *SignupInput) (*models.User, *TokenPair, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, NewBadRequest("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, nil, NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, nil, NewBadRequest("name is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, NewConflict("an account with this email already exists")
	} else if !repositories.IsNotFound(err) {
		return nil, nil, WrapInternal(err, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, WrapInternal(err, "failed to hash password")
	}

	id, err := uuid.NewUUID()
	if err != nil {
		return nil, nil, WrapInternal(err, "failed to generate account id")
	}

	role := models.UserRole(in.Role)
	switch role {
	case models.UserRoleManagement, models.UserRoleSales, models.UserRoleMarketing, models.UserRoleSupport, models.UserRoleOther:
	case "":
		role = models.UserRoleOther
	default:
		return nil, nil, NewBadRequest("invalid role: " + in.Role)
	}

	user := &models.User{
		ID:             models.AccountID(id),
		Email:          email,
		PasswordHash:   string(hash),
		FullName:       strings.TrimSpace(in.FullName),
		Role:           role,
		CustomRole:     in.CustomRole,
		CompanyName:    strings.TrimSpace(in.CompanyName),
		CompanySize:    in.CompanySize,
		Industry:       in.Industry,
		CustomIndustry: in.CustomIndustry,
		Website:        in.Website,
		PhoneNumber:    in.PhoneNumber,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, nil, NewConflict("an account with this email already exists")
		}
		return nil, nil, WrapInternal(err, "failed to create account")
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if s.events != nil {
		s.events.UserSignedUp(user)
	}
	return user, tokens, nil
}

func (s *AuthService) issueTokens(ctx context.Context, userID models.AccountID) (*TokenPair, error) {
	now := s.now().UTC()

	access, err := generateToken()
	if err != nil {
		return nil, WrapInternal(err, "failed to generate token")
	}
	refresh, err := generateToken()
	if err != nil {
		return nil, WrapInternal(err, "failed to generate token")
	}

	pair := &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(models.AccessTokenTTL),
		RefreshExpiresAt: now.Add(models.RefreshTokenTTL),
	}

	for _, spec := range []struct {
		value     string
		tokenType models.TokenType
		expires   time.Time
	}{
		{access, models.TokenTypeAccess, pair.AccessExpiresAt},
		{refresh, models.TokenTypeRefresh, pair.RefreshExpiresAt},
	} {
		id, err := uuid.NewUUID()
		if err != nil {
			return nil, WrapInternal(err, "failed to generate token id")
		}
		err = s.tokens.Create(ctx, &models.AuthToken{
			ID:        id,
			UserID:    userID,
			Token:     spec.value,
			TokenType: spec.tokenType,
			ExpiresAt: spec.expires,
		})
		if err != nil {
			return nil, WrapInternal(err, "failed to store token")
		}
	}
	return pair, nil
}

// Login authenticates by email and password. When the account has two-factor
// enabled, a code is emailed and the caller must complete LoginWith2FA.
// Wrong email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorized("invalid email or password")
		}
		return nil, WrapInternal(err, "failed to load account")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, NewUnauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, NewForbidden("account is deactivated")
	}

	security, err := s.security.Get(ctx, user.ID)
	if err != nil {
		return nil, WrapInternal(err, "failed to load security settings")
	}
	if security.TwoFactorEnabled {
		if err := s.limiter.AllowLogin(email, s.loginCooldown); err != nil {
			return nil, err
		}
		if err := s.issueAndSendOTP(ctx, user, models.OTPPurposeTwoFactor, "Your sign-in code"); err != nil {
			return nil, err
		}
		return &LoginResult{Requires2FA: true}, nil
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.UserLoggedIn(user)
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// LoginWith2FA completes a two-factor login with the emailed code.
func (s *AuthService) LoginWith2FA(ctx context.Context, email, code string) (*LoginResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorized("invalid code")
		}
		return nil, WrapInternal(err, "failed to load account")
	}
	if !user.IsActive {
		return nil, NewForbidden("account is deactivated")
	}

	if err := s.consumeOTP(ctx, models.OTPPurposeTwoFactor, email, code); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.UserLoggedIn(user)
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// issueAndSendOTP creates a fresh code, invalidating all prior unused codes
// for the same purpose. If the email cannot be sent the code record is
// deleted so an undeliverable code never stays redeemable.
func (s *AuthService) issueAndSendOTP(ctx context.Context, user *models.User, purpose models.OTPPurpose, subject string) error {
	if err := s.otps.InvalidateUnused(ctx, purpose, user.Email); err != nil {
		return WrapInternal(err, "failed to invalidate previous codes")
	}

	value, err := generateOTP()
	if err != nil {
		return WrapInternal(err, "failed to generate code")
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return WrapInternal(err, "failed to generate code id")
	}
	code := &models.OneTimeCode{
		ID:        id,
		UserID:    user.ID,
		Email:     user.Email,
		Code:      value,
		ExpiresAt: s.now().UTC().Add(s.otpTTL),
	}
	if err := s.otps.Create(ctx, purpose, code); err != nil {
		return WrapInternal(err, "failed to store code")
	}

	minutes := int(s.otpTTL.Minutes())
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", value, minutes)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", value, minutes)
	if err := s.mailer.Send(user.Email, subject, html, text); err != nil {
		if derr := s.otps.Delete(ctx, purpose, code.ID); derr != nil {
			s.log.WithError(derr).WithField("email", user.Email).Warn("failed to delete undelivered code")
		}
		return WrapInternal(err, "failed to send verification email")
	}

	if s.events != nil {
		s.events.OTPIssued(user.Email, purpose)
	}
	return nil
}

// checkOTP validates a code without consuming it, distinguishing wrong codes
// from expired ones.
func (s *AuthService) checkOTP(ctx context.Context, purpose models.OTPPurpose, email, code string) (*models.OneTimeCode, error) {
	otp, err := s.otps.FindLatestUnused(ctx, purpose, email, code)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewBadRequest("invalid code")
		}
		return nil, WrapInternal(err, "failed to look up code")
	}
	if otp.IsExpired(s.now().UTC()) {
		return nil, NewBadRequest("code has expired, request a new one")
	}
	return otp, nil
}

// consumeOTP validates a code and marks it used.
func (s *AuthService) consumeOTP(ctx context.Context, purpose models.OTPPurpose, email, code string) error {
	otp, err := s.checkOTP(ctx, purpose, email, code)
	if err != nil {
		return err
	}
	if err := s.otps.MarkUsed(ctx, purpose, otp.ID); err != nil {
		return WrapInternal(err, "failed to consume code")
	}
	return nil
}

// Refresh rotates a refresh token into a new token pair. Presenting an
// expired refresh token deletes it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.tokens.GetByValue(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorized("invalid refresh token")
		}
		return nil, WrapInternal(err, "failed to look up token")
	}
	if token.IsExpired(s.now().UTC()) {
		if derr := s.tokens.Delete(ctx, token.ID); derr != nil {
			s.log.WithError(derr).Warn("failed to delete expired refresh token")
		}
		return nil, NewUnauthorized("refresh token has expired")
	}

	if err := s.tokens.Delete(ctx, token.ID); err != nil {
		return nil, WrapInternal(err, "failed to rotate token")
	}
	return s.issueTokens(ctx, token.UserID)
}

// Logout revokes every token the account holds.
func (s *AuthService) Logout(ctx context.Context, userID models.AccountID) error {
	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return WrapInternal(err, "failed to revoke tokens")
	}
	return nil
}

// ValidateAccessToken resolves a bearer token to its active account. An
// expired token is deleted on presentation.
func (s *AuthService) ValidateAccessToken(ctx context.Context, value string) (*models.User, error) {
	token, err := s.tokens.GetByValue(ctx, value, models.TokenTypeAccess)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorized("invalid or expired token")
		}
		return nil, WrapInternal(err, "failed to look up token")
	}
	if token.IsExpired(s.now().UTC()) {
		if derr := s.tokens.Delete(ctx, token.ID); derr != nil {
			s.log.WithError(derr).Warn("failed to delete expired access token")
		}
		return nil, NewUnauthorized("invalid or expired token")
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorized("invalid or expired token")
		}
		return nil, WrapInternal(err, "failed to load account")
	}
	if !user.IsActive {
		return nil, NewForbidden("account is deactivated")
	}
	return user, nil
}

// ForgotPassword emails a password-reset code. Unlike the two-factor flow,
// this endpoint does reveal whether the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("no account found for this email")
		}
		return WrapInternal(err, "failed to load account")
	}
	return s.issueAndSendOTP(ctx, user, models.OTPPurposePasswordReset, "Reset your password")
}

// VerifyResetCode checks a password-reset code without consuming it, so the
// UI can gate the new-password form. The code stays valid until
// ResetPassword consumes it.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.checkOTP(ctx, models.OTPPurposePasswordReset, normalizeEmail(email), code)
	return err
}

// ResetPassword consumes a reset code, sets the new password and revokes
// every existing session.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if len(newPassword) < minPasswordLength {
		return NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("no account found for this email")
		}
		return WrapInternal(err, "failed to load account")
	}

	if err := s.consumeOTP(ctx, models.OTPPurposePasswordReset, email, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return WrapInternal(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return WrapInternal(err, "failed to update password")
	}
	if err := s.tokens.DeleteAllForUser(ctx, user.ID); err != nil {
		return WrapInternal(err, "failed to revoke sessions")
	}
	return nil
}

// Send2FACode re-sends a sign-in code during a two-factor login. Unknown
// emails get a generic success so the endpoint never confirms registration.
func (s *AuthService) Send2FACode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if err := s.limiter.AllowLogin(email, s.loginCooldown); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil
		}
		return WrapInternal(err, "failed to load account")
	}
	if !user.IsActive {
		return nil
	}
	if err := s.issueAndSendOTP(ctx, user, models.OTPPurposeTwoFactor, "Your sign-in code"); err != nil {
		// Delivery problems stay invisible too.
		s.log.WithError(err).WithField("email", email).Error("failed to send sign-in code")
	}
	return nil
}

// RequestEnable2FA emails a verification code to confirm turning two-factor
// auth on.
func (s *AuthService) RequestEnable2FA(ctx context.Context, userID models.AccountID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("account not found")
		}
		return WrapInternal(err, "failed to load account")
	}
	if err := s.limiter.AllowEnable2FA(user.Email, s.enable2FACooldown); err != nil {
		return err
	}
	return s.issueAndSendOTP(ctx, user, models.OTPPurposeTwoFactor, "Confirm two-factor authentication")
}

// ConfirmEnable2FA consumes the verification code and turns two-factor on.
func (s *AuthService) ConfirmEnable2FA(ctx context.Context, userID models.AccountID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("account not found")
		}
		return WrapInternal(err, "failed to load account")
	}
	if err := s.consumeOTP(ctx, models.OTPPurposeTwoFactor, user.Email, code); err != nil {
		return err
	}
	if err := s.security.SetTwoFactor(ctx, userID, true); err != nil {
		return WrapInternal(err, "failed to enable two-factor auth")
	}
	return nil
}

// Disable2FA turns two-factor off after re-verifying the password.
func (s *AuthService) Disable2FA(ctx context.Context, userID models.AccountID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("account not found")
		}
		return WrapInternal(err, "failed to load account")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return NewUnauthorized("incorrect password")
	}
	if err := s.security.SetTwoFactor(ctx, userID, false); err != nil {
		return WrapInternal(err, "failed to disable two-factor auth")
	}
	return nil
}

// SecuritySettings returns the account's security settings, creating the
// defaults on first access.
func (s *AuthService) SecuritySettings(ctx context.Context, userID models.AccountID) (*models.SecuritySettings, error) {
	settings, err := s.security.Get(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err, "failed to load security settings")
	}
	return settings, nil
}

// UpdateSecuritySettings patches the non-two-factor security fields.
func (s *AuthService) UpdateSecuritySettings(ctx context.Context, userID models.AccountID, loginNotifications *bool, sessionTimeout *string) (*models.SecuritySettings, error) {
	fields := bson.M{}
	if loginNotifications != nil {
		fields["login_notifications"] = *loginNotifications
	}
	if sessionTimeout != nil {
		fields["session_timeout"] = *sessionTimeout
	}
	if len(fields) > 0 {
		if err := s.security.Update(ctx, userID, fields); err != nil {
			return nil, WrapInternal(err, "failed to update security settings")
		}
	}
	return s.SecuritySettings(ctx, userID)
}

// CleanupExpired removes expired tokens and one-time codes. Run on an
// interval by the janitor goroutine.
func (s *AuthService) CleanupExpired(ctx context.Context) {
	now := s.now().UTC()
	if n, err := s.tokens.DeleteExpired(ctx, now); err != nil {
		s.log.WithError(err).Error("token cleanup failed")
	} else if n > 0 {
		s.log.WithField("deleted", n).Debug("expired tokens removed")
	}
	if n, err := s.otps.DeleteExpired(ctx, now); err != nil {
		s.log.WithError(err).Error("otp cleanup failed")
	} else if n > 0 {
		s.log.WithField("deleted", n).Debug("expired codes removed")
	}
}
