package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stockwell/replenish/internal/database"
)

// SystemHandlers serves liveness and system health endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	databases map[string]*database.DB
	startedAt time.Time
}

// NewSystemHandlers creates the system handlers over the open databases.
func NewSystemHandlers(databases map[string]*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		databases: databases,
		startedAt: time.Now(),
	}
}

// HandleHealth is a minimal liveness probe.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystemHealth reports process, host, and database health.
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true

	dbStatus := make(map[string]interface{}, len(h.databases))
	for name, db := range h.databases {
		entry := map[string]interface{}{"healthy": true}
		if err := db.HealthCheck(ctx); err != nil {
			entry["healthy"] = false
			entry["error"] = err.Error()
			healthy = false
		} else if stats, err := db.GetStats(); err == nil {
			entry["size_bytes"] = stats.SizeBytes
			entry["wal_size_bytes"] = stats.WALSizeBytes
		}
		dbStatus[name] = entry
	}

	system := map[string]interface{}{}
	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		system["cpu_percent"] = percentages[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_used_percent"] = vm.UsedPercent
		system["memory_total_bytes"] = vm.Total
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, map[string]interface{}{
		"healthy":        healthy,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"databases":      dbStatus,
		"system":         system,
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
