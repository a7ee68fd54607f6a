package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/forefold/leadsflow/internal/middleware"
	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/services"
)

// LeadHandler exposes the lead CRUD, import/export, sector and reminder
// routes. All routes require auth.
type LeadHandler struct {
	leads    *services.LeadService
	notifier *services.Notifier
}

func NewLeadHandler(leads *services.LeadService, notifier *services.Notifier) *LeadHandler {
	return &LeadHandler{leads: leads, notifier: notifier}
}

func actingUser(w http.ResponseWriter, r *http.Request) (models.AccountID, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		RespondWithError(w, services.NewUnauthorized("authentication required"))
		return "", false
	}
	return user.ID, true
}

func listParamsFrom(r *http.Request) services.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	// "status" repeats or carries a comma-separated list.
	var statuses []string
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	return services.ListParams{
		Page:     page,
		Limit:    limit,
		Statuses: statuses,
		Category: q.Get("category"),
		Source:   q.Get("source"),
		City:     q.Get("city"),
		Sector:   q.Get("sector"),
		Search:   q.Get("search"),
		Followup: q.Get("followupDateFilter"),
	}
}

// List handles GET /leads.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	leads, pagination, err := h.leads.List(r.Context(), userID, listParamsFrom(r))
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"leads":      leads,
		"pagination": pagination,
	})
}

// Get handles GET /leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	lead, err := h.leads.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, lead)
}

// Create handles POST /leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in services.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lead, err := h.leads.Create(r.Context(), userID, &in)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, lead)
}

// Update handles PATCH /leads/{id}.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var patch services.LeadPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	lead, err := h.leads.Update(r.Context(), userID, mux.Vars(r)["id"], &patch)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /leads/{id}.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	if err := h.leads.Remove(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "lead deleted"})
}

// Import handles POST /leads/import.
func (h *LeadHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Leads []services.LeadInput `json:"leads"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.leads.ImportBatch(r.Context(), userID, in.Leads)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Export handles GET /leads/export. Filters match List.
func (h *LeadHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	data, err := h.leads.ExportCSV(r.Context(), userID, listParamsFrom(r))
	if err != nil {
		RespondWithError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Cities handles GET /leads/cities.
func (h *LeadHandler) Cities(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	cities, err := h.leads.DistinctCities(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"cities": cities})
}

// Sectors handles GET /sectors.
func (h *LeadHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.leads.Sectors(r.Context())
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"sectors": sectors})
}

// AddSector handles POST /sectors.
func (h *LeadHandler) AddSector(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sector string `json:"sector"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	sector, err := h.leads.AddSector(r.Context(), in.Sector)
	if err != nil {
		if services.IsConflict(err) && sector != nil {
			respondWithJSON(w, http.StatusOK, sector)
			return
		}
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sector)
}

// SendReminder handles POST /leads/{id}/reminder.
func (h *LeadHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	stats, err := h.notifier.SendFollowUpReminderForLead(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// RunReminderSweep handles POST /leads/reminders/run, firing the daily
// follow-up sweep on demand.
func (h *LeadHandler) RunReminderSweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	stats, err := h.notifier.SendFollowUpReminders(r.Context())
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
