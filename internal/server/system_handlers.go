package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fatiainvest/screener/internal/database"
	"github.com/fatiainvest/screener/internal/di"
	"github.com/fatiainvest/screener/internal/reliability"
)

// SystemHandlers provides health and operational endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	container *di.Container
	backup    *reliability.BackupService
	startedAt time.Time
}

// NewSystemHandlers creates system handlers. backup may be nil.
func NewSystemHandlers(log zerolog.Logger, container *di.Container, backup *reliability.BackupService) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		container: container,
		backup:    backup,
		startedAt: time.Now(),
	}
}

// HandleHealth handles GET /api/system/health
// Reports database reachability plus host resource usage.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	databases := map[string]string{}
	for _, db := range []*database.DB{h.container.UniverseDB, h.container.UsersDB, h.container.CacheDB} {
		if err := db.Conn().Ping(); err != nil {
			databases[db.Name()] = "unreachable"
			health["status"] = "degraded"
		} else {
			databases[db.Name()] = "ok"
		}
	}
	health["databases"] = databases

	if vm, err := mem.VirtualMemory(); err == nil {
		health["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		health["cpu_percent"] = percents[0]
	}
	if usage, err := disk.Usage("/"); err == nil {
		health["disk_used_percent"] = usage.UsedPercent
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// HandleBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	key, err := h.backup.Backup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"key": key}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode backup response")
	}
}
