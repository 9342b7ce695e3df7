package reorder

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Handler handles reorder HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new reorder handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "reorder").Logger(),
	}
}

// RegisterRoutes registers reorder routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reorder", func(r chi.Router) {
		r.Get("/{productID}", h.HandleCheckStatus)
		r.Get("/{productID}/info", h.HandleGetInfo)
	})
}

// HandleCheckStatus returns whether a product currently needs a reorder.
func (h *Handler) HandleCheckStatus(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	status, err := h.service.CheckReorderStatus(productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// HandleGetInfo returns the full reorder parameters for a product.
func (h *Handler) HandleGetInfo(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	info, err := h.service.Info(productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotCalculated) {
			h.writeError(w, http.StatusNotFound, "reorder parameters not calculated for product")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, info)
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
