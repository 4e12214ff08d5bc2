package handlers

import (
	"net/http"
	"time"

	"casewatch/pkg/scheduler"

	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// HealthCheck reports service liveness plus a scheduler summary
func (h *HandlerService) HealthCheck(c *gin.Context) {
	sources := h.manager.Sources()

	running := 0
	breakers := 0
	for _, src := range sources {
		if h.manager.IsRunning(src.Key) {
			running++
		}
		if h.manager.BreakerOpen(src.Key) {
			breakers++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "casewatch",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(startedAt).String(),
		"scheduler": gin.H{
			"sources":       len(sources),
			"running":       running,
			"breakers_open": breakers,
		},
	})
}

// GetStatus returns the overall system status including the level
// distribution of the current schedule table
func (h *HandlerService) GetStatus(c *gin.Context) {
	stats := h.manager.Stats()

	distribution := make(map[string]int, len(stats.LevelDistribution))
	for level, count := range stats.LevelDistribution {
		distribution[string(level)] = count
	}

	sc := h.config.GetSchedulerConfig()

	c.JSON(http.StatusOK, gin.H{
		"service":      "casewatch",
		"status":       "running",
		"environment":  h.config.GetAppConfig().Environment,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"sources":      stats.TotalSources,
		"levels":       distribution,
		"window_hours": sc.WindowHours,
	})
}

// GetCapabilities lists the value sets the scheduler operates over
func (h *HandlerService) GetCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"frequency_levels":  scheduler.Levels,
		"activity_patterns": scheduler.Patterns,
		"adaptive_factors":  scheduler.AdaptiveFactors,
	})
}
