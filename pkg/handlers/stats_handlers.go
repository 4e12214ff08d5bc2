package handlers

import (
	"casewatch/pkg/command"
	"casewatch/pkg/response"

	"github.com/gin-gonic/gin"
)

// Stats returns the aggregated scheduling report: per-source counters,
// recommendations, and the scheduler's capability sets
func (h *HandlerService) Stats(c *gin.Context) {
	outcome := h.executor.Execute(c.Request.Context(), command.Command{
		Kind: command.KindStats,
	})
	response.FromOutcome(c, outcome)
}

// Recommendations returns only the advisory findings
func (h *HandlerService) Recommendations(c *gin.Context) {
	response.OK(c, h.engine.Evaluate(h.manager.Stats()))
}

// RecentRuns returns the retained collection run history
func (h *HandlerService) RecentRuns(c *gin.Context) {
	response.OK(c, h.dispatcher.RecentRuns())
}
