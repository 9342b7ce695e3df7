package forecast

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// DefaultForecastDays is the projection horizon when the request does not
// specify one.
const DefaultForecastDays = 30

// MaxForecastDays caps the projection horizon a single request may ask for.
const MaxForecastDays = 365

// Handler handles forecast HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new forecast handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "forecast").Logger(),
	}
}

// RegisterRoutes registers forecast routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Get("/{productID}", h.HandleGetForecast)
		r.Get("/{productID}/fitted", h.HandleGetFitted)
	})
}

// HandleGetForecast returns a demand projection for one product.
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	days := DefaultForecastDays
	if param := r.URL.Query().Get("days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	forecast, err := h.service.GetDemandForecast(productID, days)
	if err != nil {
		if errors.Is(err, domain.ErrNoForecast) {
			h.writeError(w, http.StatusNotFound, "no forecast available for product")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, forecast)
}

// HandleGetFitted returns the fitted historical forecast for one product.
func (h *Handler) HandleGetFitted(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	forecast, err := h.service.FittedForecast(productID)
	if err != nil {
		if errors.Is(err, domain.ErrNoForecast) {
			h.writeError(w, http.StatusNotFound, "no forecast available for product")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, forecast)
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
