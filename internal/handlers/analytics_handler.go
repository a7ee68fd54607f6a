package handlers

import (
	"net/http"

	"github.com/forefold/leadsflow/internal/services"
)

// AnalyticsHandler exposes the lead rollup route.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary handles GET /analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	summary, err := h.analytics.Summary(r.Context(), userID)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
