package handlers

import (
	"casewatch/pkg/command"
	"casewatch/pkg/response"

	"github.com/gin-gonic/gin"
)

// UpdateSchedules recomputes every source's schedule and returns the
// resulting table
func (h *HandlerService) UpdateSchedules(c *gin.Context) {
	outcome := h.executor.Execute(c.Request.Context(), command.Command{
		Kind: command.KindUpdateSchedules,
	})
	response.FromOutcome(c, outcome)
}

// CurrentSchedules returns the committed schedule table. With
// ?format=text it renders the legacy line format instead of JSON.
func (h *HandlerService) CurrentSchedules(c *gin.Context) {
	format := c.DefaultQuery("format", command.FormatJSON)

	outcome := h.executor.Execute(c.Request.Context(), command.Command{
		Kind:   command.KindCurrentSchedules,
		Format: format,
	})
	if !outcome.Success {
		response.FromOutcome(c, outcome)
		return
	}

	if format == command.FormatText {
		body, _ := outcome.Data.(string)
		response.Text(c, body)
		return
	}
	response.OK(c, outcome.Data)
}

// AnalyzeSource returns the schedule one source would get right now,
// without committing it
func (h *HandlerService) AnalyzeSource(c *gin.Context) {
	outcome := h.executor.Execute(c.Request.Context(), command.Command{
		Kind:      command.KindAnalyzeSource,
		SourceKey: c.Param("source"),
	})
	response.FromOutcome(c, outcome)
}

// ForceRun schedules an immediate collection run for a source
func (h *HandlerService) ForceRun(c *gin.Context) {
	key := c.Param("source")
	if err := h.manager.ForceRun(key); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"source_key": key, "forced": true})
}

// ExecuteCommand runs one typed command from the request body
func (h *HandlerService) ExecuteCommand(c *gin.Context) {
	var cmd command.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, 400, "invalid command payload", err)
		return
	}

	response.FromOutcome(c, h.executor.Execute(c.Request.Context(), cmd))
}
