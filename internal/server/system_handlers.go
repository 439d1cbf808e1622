package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/foundups/pqn-detector/internal/database"
	"github.com/foundups/pqn-detector/internal/journal"
)

// SystemHandlers serves health and system monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	journalDB   *database.DB
	journal     *journal.Journal
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, journalDB *database.DB, j *journal.Journal) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		journalDB:   journalDB,
		journal:     j,
	}
}

// RegisterRoutes registers system routes on the given router.
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/system/status", h.HandleSystemStatus)
}

// HandleHealth is a liveness probe.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// systemStatus is the monitoring snapshot returned by the status endpoint.
type systemStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	DataDirMB     float64 `json:"data_dir_mb"`
	JournalMB     float64 `json:"journal_mb"`
	RecentRuns    int     `json:"recent_runs"`
}

// HandleSystemStatus reports process uptime, host load, and journal size.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, ramPct := h.getSystemStats()

	status := systemStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CPUPercent:    cpuPct,
		RAMPercent:    ramPct,
		DataDirMB:     h.getDirSize(h.dataDir),
	}

	status.JournalMB = float64(h.journalDB.SizeBytes()) / 1024 / 1024
	if runs, err := h.journal.ListRuns(50); err == nil {
		status.RecentRuns = len(runs)
	}

	writeJSON(w, http.StatusOK, status)
}

// getSystemStats returns CPU and RAM usage percentages. The short CPU
// sampling interval keeps the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}
