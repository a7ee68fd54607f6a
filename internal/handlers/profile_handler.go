package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/services"
)

// ProfileHandler exposes profile, preference, push subscription and sub-user
// routes. All routes require auth.
type ProfileHandler struct {
	profiles *services.ProfileService
	notifier *services.Notifier
}

func NewProfileHandler(profiles *services.ProfileService, notifier *services.Notifier) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, notifier: notifier}
}

// Get handles GET /profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	user, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// Update handles PATCH /profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var patch services.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	user, err := h.profiles.Update(r.Context(), userID, &patch)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// ChangePassword handles POST /profile/password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.profiles.ChangePassword(r.Context(), userID, in.CurrentPassword, in.NewPassword); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// NotificationSettings handles GET /notifications/settings.
func (h *ProfileHandler) NotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	settings, err := h.profiles.NotificationSettings(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateNotificationSettings handles PUT /notifications/settings.
func (h *ProfileHandler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var patch services.NotificationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	settings, err := h.profiles.UpdateNotificationSettings(r.Context(), userID, &patch)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// Subscribe handles POST /notifications/subscriptions.
func (h *ProfileHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Endpoint     string `json:"endpoint"`
		Subscription string `json:"subscription"`
		DeviceInfo   string `json:"deviceInfo"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.profiles.Subscribe(r.Context(), userID, in.Endpoint, in.Subscription, in.DeviceInfo); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "subscribed"})
}

// Unsubscribe handles DELETE /notifications/subscriptions.
func (h *ProfileHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	var in struct {
		Endpoint string `json:"endpoint"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.profiles.Unsubscribe(r.Context(), in.Endpoint); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
}

// TestPush handles POST /notifications/test.
func (h *ProfileHandler) TestPush(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	stats, err := h.notifier.SendTestPush(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "test notification sent",
		"stats":   stats,
	})
}

// PushDiagnostics handles GET /notifications/diagnostics.
func (h *ProfileHandler) PushDiagnostics(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	diag, err := h.notifier.DiagnosePush(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, diag)
}

// CreateSubUser handles POST /sub-users.
func (h *ProfileHandler) CreateSubUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in services.SubUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	subUser, err := h.profiles.CreateSubUser(r.Context(), userID, &in)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, subUser)
}

// ListSubUsers handles GET /sub-users.
func (h *ProfileHandler) ListSubUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	subUsers, err := h.profiles.ListSubUsers(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"subUsers": subUsers})
}

// UpdateSubUserPermissions handles PUT /sub-users/{id}/permissions.
func (h *ProfileHandler) UpdateSubUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in struct {
		CanViewLeads bool `json:"canViewLeads"`
		CanEditLeads bool `json:"canEditLeads"`
		CanAddLeads  bool `json:"canAddLeads"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	subUserID := models.AccountID(mux.Vars(r)["id"])
	subUser, err := h.profiles.UpdateSubUserPermissions(r.Context(), userID, subUserID, in.CanViewLeads, in.CanEditLeads, in.CanAddLeads)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, subUser)
}

// DeleteSubUser handles DELETE /sub-users/{id}.
func (h *ProfileHandler) DeleteSubUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	subUserID := models.AccountID(mux.Vars(r)["id"])
	if err := h.profiles.DeleteSubUser(r.Context(), userID, subUserID); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "sub-user deleted"})
}
