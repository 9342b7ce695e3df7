package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Handler handles catalog HTTP requests.
type Handler struct {
	products *ProductRepository
	log      zerolog.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(products *ProductRepository, log zerolog.Logger) *Handler {
	return &Handler{
		products: products,
		log:      log.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes registers catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{productID}", h.HandleGet)
		r.Put("/{productID}/stock", h.HandleUpdateStock)
	})
}

// stockRequest is the body for stock adjustments.
type stockRequest struct {
	CountInStock int `json:"count_in_stock"`
}

// HandleList returns all active products.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActiveProducts()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// HandleGet returns one product.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetProduct(chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

// HandleUpdateStock sets the on-hand stock count for a product.
func (h *Handler) HandleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var body stockRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CountInStock < 0 {
		h.writeError(w, http.StatusBadRequest, "count_in_stock must not be negative")
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.products.UpdateStock(productID, body.CountInStock); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	product, err := h.products.GetProduct(productID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, product)
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
