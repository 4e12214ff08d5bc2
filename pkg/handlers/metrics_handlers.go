package handlers

import (
	"casewatch/pkg/command"
	"casewatch/pkg/metrics"
	"casewatch/pkg/response"

	"github.com/gin-gonic/gin"
)

// RecordMetrics accepts one externally observed sample for a source
func (h *HandlerService) RecordMetrics(c *gin.Context) {
	var sample metrics.Sample
	if err := c.ShouldBindJSON(&sample); err != nil {
		response.Error(c, 400, "invalid sample payload", err)
		return
	}

	outcome := h.executor.Execute(c.Request.Context(), command.Command{
		Kind:      command.KindRecordMetrics,
		SourceKey: c.Param("source"),
		Sample:    &sample,
	})
	response.FromOutcome(c, outcome)
}

// SourceWindow returns the raw sample window for one source
func (h *HandlerService) SourceWindow(c *gin.Context) {
	window, err := h.store.Window(c.Param("source"), 0)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, window)
}
