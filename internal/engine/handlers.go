package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Handler handles engine HTTP requests.
type Handler struct {
	engine *Engine
	log    zerolog.Logger
}

// NewHandler creates a new engine handler.
func NewHandler(engine *Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "engine").Logger(),
	}
}

// RegisterRoutes registers engine routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/engine", func(r chi.Router) {
		r.Post("/retrain", h.HandleRetrain)
		r.Get("/status", h.HandleStatus)
	})
}

// HandleRetrain kicks off a background retrain and returns immediately.
func (h *Handler) HandleRetrain(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RetrainAsync(); err != nil {
		if errors.Is(err, domain.ErrRetrainInProgress) {
			h.writeError(w, http.StatusConflict, "retrain already in progress")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrain started"})
}

// HandleStatus reports whether a retrain is currently running.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"retraining": h.engine.Busy(),
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
