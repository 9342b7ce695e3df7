package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// RegisterRoutes registers analytics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/performance", h.HandlePerformance)
		r.Get("/seasonal", h.HandleSeasonalTrends)
		r.Get("/categories", h.HandleCategoryPerformance)
	})
}

// HandlePerformance returns the inventory performance report.
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AnalyzeInventoryPerformance()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleSeasonalTrends returns the aggregated seasonal trend report.
func (h *Handler) HandleSeasonalTrends(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetSeasonalTrends()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleCategoryPerformance returns per-category sales over the trailing
// year.
func (h *Handler) HandleCategoryPerformance(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetCategoryPerformance()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
