package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jhalves/rss-sync/app/cfg"
	"github.com/jhalves/rss-sync/app/tasks"
	"github.com/jhalves/rss-sync/app/tenant"
)

type Handler struct {
	tenants   *tenant.Cache
	scheduler tasks.TaskSchedulerInterface
}

func NewHandler(tenants *tenant.Cache, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		tenants:   tenants,
		scheduler: scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.Get().Version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"tenants":   h.tenants.GetConfigCount(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.scheduler.GetStats()

	tenants := make([]gin.H, 0, h.tenants.GetConfigCount())
	for id, config := range h.tenants.GetConfigs() {
		entry := gin.H{
			"tenant":        id,
			"enabled":       config.Enabled,
			"recurrence":    config.Recurrence,
			"image_storage": config.ImageStorage,
			"sources":       len(config.SourceURLs()),
		}

		if st, ok := stats[id]; ok {
			entry["total_runs"] = st.TotalRuns
			entry["total_errors"] = st.TotalErrors
			entry["last_created"] = st.LastCreated
			entry["last_updated"] = st.LastUpdated
			entry["last_skipped"] = st.LastSkipped
			entry["last_failed"] = st.LastFailed
			if st.LastRunAt != nil {
				entry["last_run_at"] = st.LastRunAt.Format(time.RFC3339)
			}
		}

		tenants = append(tenants, entry)
	}

	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// TriggerSync enqueues an immediate sync run for one tenant.
func (h *Handler) TriggerSync(c *gin.Context) {
	tenantID := c.Param("id")

	config, err := h.tenants.GetConfig(tenantID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}

	if !config.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "tenant is disabled"})
		return
	}

	if err := h.scheduler.TriggerNow(tenantID); err != nil {
		slog.Error("Failed to trigger sync", "tenant", tenantID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"tenant": tenantID, "status": "enqueued"})
}
