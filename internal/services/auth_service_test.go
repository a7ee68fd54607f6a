package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forefold/leadsflow/internal/models"
)

// mutableClock lets tests move time forward deterministically.
type mutableClock struct {
	mu sync.Mutex
	t  time.Time
}

func newMutableClock(t time.Time) *mutableClock {
	return &mutableClock{t: t}
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingAuthSink struct {
	signups int
	logins  int
	otps    []models.OTPPurpose
}

func (r *recordingAuthSink) UserSignedUp(user *models.User)  { r.signups++ }
func (r *recordingAuthSink) UserLoggedIn(user *models.User)  { r.logins++ }
func (r *recordingAuthSink) OTPIssued(email string, purpose models.OTPPurpose) {
	r.otps = append(r.otps, purpose)
}

type authTestEnv struct {
	users    *fakeUserStore
	tokens   *fakeTokenStore
	otps     *fakeOTPStore
	security *fakeSecurityStore
	mailer   *fakeMailer
	sink     *recordingAuthSink
	clock    *mutableClock
	svc      *AuthService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	env := &authTestEnv{
		users:    newFakeUserStore(),
		tokens:   newFakeTokenStore(),
		otps:     newFakeOTPStore(),
		security: newFakeSecurityStore(),
		mailer:   newFakeMailer(),
		sink:     &recordingAuthSink{},
		clock:    newMutableClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
	}
	env.svc = NewAuthService(
		env.users, env.tokens, env.otps, env.security,
		env.mailer, NewCooldownLimiter(env.clock.Now), env.sink, discardLogger(),
		AuthOptions{
			OTPTTL:            10 * time.Minute,
			LoginCooldown:     5 * time.Second,
			Enable2FACooldown: 10 * time.Second,
			Now:               env.clock.Now,
		},
	)
	return env
}

func (env *authTestEnv) seedUser(t *testing.T, id models.AccountID, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         models.UserRoleSales,
		IsActive:     true,
	}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// latestCode digs the most recent redeemable code for an email out of the
// fake store, standing in for reading the email.
func (env *authTestEnv) latestCode(t *testing.T, purpose models.OTPPurpose, email string) string {
	t.Helper()
	env.otps.mu.Lock()
	defer env.otps.mu.Unlock()
	var latest *models.OneTimeCode
	for _, c := range env.otps.codes[purpose] {
		if c.Email == email && !c.Used {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		t.Fatalf("no redeemable %s code for %s", purpose, email)
	}
	return latest.Code
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	env := newAuthTestEnv(t)

	user, tokens, err := env.svc.Signup(context.Background(), &SignupInput{
		Email: "Meena@Example.com", Password: "correct-horse", FullName: "Meena",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "meena@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", user.Email)
	}
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("signup should sign the account in, got %+v", tokens)
	}
	if env.sink.signups != 1 {
		t.Fatalf("signup events = %d, want 1", env.sink.signups)
	}

	_, _, err = env.svc.Signup(context.Background(), &SignupInput{
		Email: "meena@example.com", Password: "another-pass", FullName: "Imposter",
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newAuthTestEnv(t)
	cases := []SignupInput{
		{Email: "not-an-email", Password: "longenough", FullName: "A"},
		{Email: "a@b.com", Password: "short", FullName: "A"},
		{Email: "a@b.com", Password: "longenough", FullName: "  "},
		{Email: "a@b.com", Password: "longenough", FullName: "A", Role: "emperor"},
	}
	for i, in := range cases {
		if _, _, err := env.svc.Signup(context.Background(), &in); !IsBadRequest(err) {
			t.Fatalf("case %d: expected bad request, got %v", i, err)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "u1", "meena@example.com", "correct-horse")

	_, errUnknown := env.svc.Login(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPw := env.svc.Login(context.Background(), "meena@example.com", "wrong-pass")
	if !IsUnauthorized(errUnknown) || !IsUnauthorized(errWrongPw) {
		t.Fatalf("want unauthorized for both, got %v / %v", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if err := env.users.Update(context.Background(), user.ID, map[string]interface{}{"is_active": false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse")
	if !IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTwoFactorLoginFlow(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if err := env.security.SetTwoFactor(context.Background(), user.ID, true); err != nil {
		t.Fatalf("enable 2fa: %v", err)
	}

	result, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.Requires2FA || result.Tokens != nil {
		t.Fatalf("expected a 2fa challenge without tokens, got %+v", result)
	}
	if got := len(env.mailer.sentTo()); got != 1 {
		t.Fatalf("code emails = %d, want 1", got)
	}

	code := env.latestCode(t, models.OTPPurposeTwoFactor, user.Email)
	done, err := env.svc.LoginWith2FA(context.Background(), "meena@example.com", code)
	if err != nil {
		t.Fatalf("2fa login: %v", err)
	}
	if done.Tokens == nil || done.User == nil {
		t.Fatalf("expected tokens after 2fa, got %+v", done)
	}
	if env.sink.logins != 1 {
		t.Fatalf("login events = %d, want 1", env.sink.logins)
	}

	// A consumed code cannot be replayed.
	if _, err := env.svc.LoginWith2FA(context.Background(), "meena@example.com", code); !IsBadRequest(err) {
		t.Fatalf("replayed code should be rejected, got %v", err)
	}
}

func TestNewCodeInvalidatesPriorCodes(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if err := env.security.SetTwoFactor(context.Background(), user.ID, true); err != nil {
		t.Fatalf("enable 2fa: %v", err)
	}

	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	first := env.latestCode(t, models.OTPPurposeTwoFactor, user.Email)

	env.clock.Advance(6 * time.Second) // past the login cooldown
	if err := env.svc.Send2FACode(context.Background(), "meena@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	second := env.latestCode(t, models.OTPPurposeTwoFactor, user.Email)

	if n := env.otps.unusedCount(models.OTPPurposeTwoFactor, user.Email); n != 1 {
		t.Fatalf("redeemable codes = %d, want 1 (prior invalidated)", n)
	}
	if first == second {
		t.Skip("collided 6-digit codes, cannot distinguish")
	}
	if _, err := env.svc.LoginWith2FA(context.Background(), "meena@example.com", first); !IsBadRequest(err) {
		t.Fatalf("stale code should be rejected, got %v", err)
	}
	if _, err := env.svc.LoginWith2FA(context.Background(), "meena@example.com", second); err != nil {
		t.Fatalf("fresh code: %v", err)
	}
}

func TestExpiredCodeIsDistinguishedFromWrongCode(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if err := env.svc.ForgotPassword(context.Background(), user.Email); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	code := env.latestCode(t, models.OTPPurposePasswordReset, user.Email)

	if err := env.svc.VerifyResetCode(context.Background(), user.Email, "000000"); err == nil || err.Error() != "invalid code" {
		t.Fatalf("wrong code error = %v, want %q", err, "invalid code")
	}

	env.clock.Advance(11 * time.Minute)
	err := env.svc.VerifyResetCode(context.Background(), user.Email, code)
	if !IsBadRequest(err) || err.Error() != "code has expired, request a new one" {
		t.Fatalf("expired code error = %v", err)
	}
}

func TestUndeliverableCodeIsNeverRedeemable(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	env.mailer.failFor[user.Email] = context.DeadlineExceeded

	if err := env.svc.ForgotPassword(context.Background(), user.Email); err == nil {
		t.Fatal("expected send failure to surface")
	}
	if n := env.otps.unusedCount(models.OTPPurposePasswordReset, user.Email); n != 0 {
		t.Fatalf("redeemable codes = %d, want 0 after failed delivery", n)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	result, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	fresh, err := env.svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fresh.RefreshToken == result.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := env.svc.Refresh(context.Background(), result.Tokens.RefreshToken); !IsUnauthorized(err) {
		t.Fatalf("old refresh token should be dead, got %v", err)
	}
}

func TestRefreshExpiredTokenIsDeleted(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	result, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	env.clock.Advance(models.RefreshTokenTTL + time.Hour)
	if _, err := env.svc.Refresh(context.Background(), result.Tokens.RefreshToken); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := env.tokens.GetByValue(context.Background(), result.Tokens.RefreshToken, models.TokenTypeRefresh); err == nil {
		t.Fatal("expired refresh token should be deleted on presentation")
	}
}

func TestValidateAccessTokenLazyExpiry(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	result, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	got, err := env.svc.ValidateAccessToken(context.Background(), result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("resolved user = %s, want %s", got.ID, user.ID)
	}

	env.clock.Advance(models.AccessTokenTTL + time.Minute)
	if _, err := env.svc.ValidateAccessToken(context.Background(), result.Tokens.AccessToken); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := env.tokens.GetByValue(context.Background(), result.Tokens.AccessToken, models.TokenTypeAccess); err == nil {
		t.Fatal("expired access token should be deleted on presentation")
	}
}

func TestLogoutRevokesEverything(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if n := env.tokens.countForUser(user.ID); n != 4 {
		t.Fatalf("tokens = %d, want 4 from two sessions", n)
	}

	if err := env.svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if n := env.tokens.countForUser(user.ID); n != 0 {
		t.Fatalf("tokens after logout = %d, want 0", n)
	}
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.svc.ForgotPassword(context.Background(), user.Email); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	code := env.latestCode(t, models.OTPPurposePasswordReset, user.Email)
	if err := env.svc.ResetPassword(context.Background(), user.Email, code, "brand-new-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if n := env.tokens.countForUser(user.ID); n != 0 {
		t.Fatalf("tokens after reset = %d, want 0", n)
	}
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); !IsUnauthorized(err) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "brand-new-pass"); err != nil {
		t.Fatalf("new password: %v", err)
	}
}

func TestForgotPasswordRevealsButSend2FADoesNot(t *testing.T) {
	env := newAuthTestEnv(t)

	if err := env.svc.ForgotPassword(context.Background(), "nobody@example.com"); !IsNotFound(err) {
		t.Fatalf("forgot-password for unknown email = %v, want not-found", err)
	}
	if err := env.svc.Send2FACode(context.Background(), "stranger@example.com"); err != nil {
		t.Fatalf("2fa send must stay silent for unknown emails, got %v", err)
	}
	if got := len(env.mailer.sentTo()); got != 0 {
		t.Fatalf("emails = %d, want 0", got)
	}
}

func TestEnableAndDisableTwoFactor(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")

	if err := env.svc.RequestEnable2FA(context.Background(), user.ID); err != nil {
		t.Fatalf("request enable: %v", err)
	}
	code := env.latestCode(t, models.OTPPurposeTwoFactor, user.Email)
	if err := env.svc.ConfirmEnable2FA(context.Background(), user.ID, code); err != nil {
		t.Fatalf("confirm enable: %v", err)
	}
	settings, err := env.svc.SecuritySettings(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !settings.TwoFactorEnabled {
		t.Fatal("two-factor should be enabled")
	}

	if err := env.svc.Disable2FA(context.Background(), user.ID, "wrong-pass"); !IsUnauthorized(err) {
		t.Fatalf("disable with wrong password = %v, want unauthorized", err)
	}
	if err := env.svc.Disable2FA(context.Background(), user.ID, "correct-horse"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	settings, err = env.svc.SecuritySettings(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.TwoFactorEnabled {
		t.Fatal("two-factor should be disabled")
	}
}

func TestCleanupExpiredSweepsTokensAndCodes(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "u1", "meena@example.com", "correct-horse")
	if _, err := env.svc.Login(context.Background(), "meena@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := env.svc.ForgotPassword(context.Background(), user.Email); err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	env.clock.Advance(models.RefreshTokenTTL + time.Hour)
	env.svc.CleanupExpired(context.Background())

	if n := env.tokens.countForUser(user.ID); n != 0 {
		t.Fatalf("tokens after sweep = %d, want 0", n)
	}
	if n := env.otps.unusedCount(models.OTPPurposePasswordReset, user.Email); n != 0 {
		t.Fatalf("codes after sweep = %d, want 0", n)
	}
}
