package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// writeTimeout bounds each websocket frame write.
const writeTimeout = 5 * time.Second

// Handler handles alert HTTP requests, including the live stream.
type Handler struct {
	alerts *Log
	log    zerolog.Logger
}

// NewHandler creates a new alerts handler.
func NewHandler(alerts *Log, log zerolog.Logger) *Handler {
	return &Handler{
		alerts: alerts,
		log:    log.With().Str("handler", "alerts").Logger(),
	}
}

// RegisterRoutes registers alert routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.HandleRecent)
		r.Get("/stream", h.HandleStream)
	})
}

// HandleRecent returns the most recent alerts, newest first.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRetrieveLimit
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recent := h.alerts.Recent(limit)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": recent,
		"count":  len(recent),
	})
}

// HandleStream upgrades to a websocket and pushes alerts as they are
// logged. The connection closes when the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream terminated")

	ch, cancel := h.alerts.Subscribe()
	defer cancel()

	ctx := r.Context()
	h.log.Debug().Msg("Alert stream opened")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case alert, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "alert log closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, alert)
			cancelWrite()
			if err != nil {
				h.log.Debug().Err(err).Msg("Alert stream write failed, closing")
				return
			}
		}
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
