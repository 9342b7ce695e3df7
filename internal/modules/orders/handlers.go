package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Handler handles purchase order HTTP requests.
type Handler struct {
	service   *Service
	generator *Generator
	log       zerolog.Logger
}

// NewHandler creates a new orders handler.
func NewHandler(service *Service, generator *Generator, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		generator: generator,
		log:       log.With().Str("handler", "orders").Logger(),
	}
}

// RegisterRoutes registers order routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/generate", h.HandleGenerate)
		r.Get("/{orderID}", h.HandleGet)
		r.Post("/{orderID}/approve", h.HandleApprove)
		r.Post("/{orderID}/cancel", h.HandleCancel)
		r.Post("/{orderID}/ordered", h.HandleMarkOrdered)
		r.Post("/{orderID}/shipped", h.HandleMarkShipped)
		r.Put("/{orderID}/tracking", h.HandleUpdateTracking)
		r.Post("/{orderID}/delivered", h.HandleMarkDelivered)
	})
}

// actorRequest is the shared body for lifecycle actions.
type actorRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// trackingRequest is the body for tracking updates.
type trackingRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

// HandleList returns purchase orders, newest first.
// Accepts optional status and limit query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var status Status
	if param := r.URL.Query().Get("status"); param != "" {
		status = Status(param)
		if !status.Valid() {
			h.writeError(w, http.StatusBadRequest, "unknown order status")
			return
		}
	}

	limit := 50
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.service.List(status, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// HandleGenerate runs the automated order sweep and returns the drafts it
// created.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	created, err := h.generator.GenerateAutomatedOrders()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders_created": len(created),
		"orders":         created,
	})
}

// HandleGet returns one purchase order with its audit log.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleApprove approves a pending order.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	body := h.decodeActor(w, r)
	if body == nil {
		return
	}

	order, err := h.service.Approve(chi.URLParam(r, "orderID"), body.Actor)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleCancel cancels a non-terminal order.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	body := h.decodeActor(w, r)
	if body == nil {
		return
	}

	order, err := h.service.Cancel(chi.URLParam(r, "orderID"), body.Actor, body.Reason)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleMarkOrdered marks an approved order as placed with the supplier.
func (h *Handler) HandleMarkOrdered(w http.ResponseWriter, r *http.Request) {
	body := h.decodeActor(w, r)
	if body == nil {
		return
	}

	order, err := h.service.MarkOrdered(chi.URLParam(r, "orderID"), body.Actor)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleMarkShipped marks an ordered order as shipped.
func (h *Handler) HandleMarkShipped(w http.ResponseWriter, r *http.Request) {
	body := h.decodeActor(w, r)
	if body == nil {
		return
	}

	order, err := h.service.MarkShipped(chi.URLParam(r, "orderID"), body.Actor)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleUpdateTracking sets carrier and tracking number on an in-flight
// order.
func (h *Handler) HandleUpdateTracking(w http.ResponseWriter, r *http.Request) {
	var body trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Carrier == "" || body.TrackingNumber == "" {
		h.writeError(w, http.StatusBadRequest, "carrier and tracking_number are required")
		return
	}

	order, err := h.service.UpdateTracking(chi.URLParam(r, "orderID"), body.Carrier, body.TrackingNumber)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleMarkDelivered marks a shipped order as delivered.
func (h *Handler) HandleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	body := h.decodeActor(w, r)
	if body == nil {
		return
	}

	order, err := h.service.MarkDelivered(chi.URLParam(r, "orderID"), body.Actor)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// decodeActor parses the lifecycle request body and enforces a non-empty
// actor. Returns nil after writing an error response on failure.
func (h *Handler) decodeActor(w http.ResponseWriter, r *http.Request) *actorRequest {
	var body actorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}
	if body.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "actor is required")
		return nil
	}
	return &body
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrIllegalTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
