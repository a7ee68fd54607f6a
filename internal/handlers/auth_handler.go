package handlers

import (
	"net/http"

	"github.com/forefold/leadsflow/internal/middleware"
	"github.com/forefold/leadsflow/internal/services"
)

// AuthHandler exposes registration, login, token and password-reset routes.
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, tokens, err := h.auth.Signup(r.Context(), &in)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// LoginWith2FA handles POST /auth/login/2fa.
func (h *AuthHandler) LoginWith2FA(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.auth.LoginWith2FA(r.Context(), in.Email, in.Code)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Send2FACode handles POST /auth/2fa/send. Always responds 200 for unknown
// emails.
func (h *AuthHandler) Send2FACode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.Send2FACode(r.Context(), in.Email); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, a code has been sent"})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	tokens, err := h.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /auth/logout. Requires auth; revokes every session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ForgotPassword handles POST /auth/password/forgot.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "a reset code has been sent"})
}

// VerifyResetCode handles POST /auth/password/verify.
func (h *AuthHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.VerifyResetCode(r.Context(), in.Email, in.Code); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "code verified"})
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in.Email, in.Code, in.NewPassword); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// SecuritySettings handles GET /security.
func (h *AuthHandler) SecuritySettings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	settings, err := h.auth.SecuritySettings(r.Context(), user.ID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSecuritySettings handles PUT /security.
func (h *AuthHandler) UpdateSecuritySettings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	var in struct {
		LoginNotifications *bool   `json:"loginNotifications"`
		SessionTimeout     *string `json:"sessionTimeout"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	settings, err := h.auth.UpdateSecuritySettings(r.Context(), user.ID, in.LoginNotifications, in.SessionTimeout)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// RequestEnable2FA handles POST /security/2fa/request.
func (h *AuthHandler) RequestEnable2FA(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	if err := h.auth.RequestEnable2FA(r.Context(), user.ID); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "a verification code has been sent"})
}

// ConfirmEnable2FA handles POST /security/2fa/confirm.
func (h *AuthHandler) ConfirmEnable2FA(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	var in struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.ConfirmEnable2FA(r.Context(), user.ID, in.Code); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "two-factor authentication enabled"})
}

// Disable2FA handles POST /security/2fa/disable.
func (h *AuthHandler) Disable2FA(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.auth.Disable2FA(r.Context(), user.ID, in.Password); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "two-factor authentication disabled"})
}
