package response

import (
	"errors"
	"net/http"

	"casewatch/pkg/collector"
	"casewatch/pkg/command"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error response field names
const (
	FieldError   = "error"
	FieldMessage = "message"
	FieldCode    = "code"
	FieldDetails = "details"
)

// OK writes a success envelope with the payload
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Text writes a plain-text body
func Text(c *gin.Context, body string) {
	c.String(http.StatusOK, "%s\n", body)
}

// Error writes an error envelope and logs it
func Error(c *gin.Context, statusCode int, message string, err error) {
	resp := gin.H{
		FieldError:   true,
		FieldMessage: message,
		FieldCode:    statusCode,
	}

	if err != nil {
		resp[FieldDetails] = err.Error()
		logger.Error("API error",
			zap.String("message", message),
			zap.Error(err),
			zap.Int("status_code", statusCode))
	}

	c.JSON(statusCode, resp)
}

// FromError maps a service error onto the HTTP status it deserves:
// validation errors are 400, missing resources 404, run conflicts 409,
// command timeouts 504, anything unrecognized 500.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrSourceNotFound),
		errors.Is(err, metrics.ErrUnknownSource),
		errors.Is(err, collector.ErrNoCollector):
		Error(c, http.StatusNotFound, "source not found", err)

	case errors.Is(err, scheduler.ErrAlreadyRunning):
		Error(c, http.StatusConflict, "source is already running", err)

	case errors.Is(err, metrics.ErrInvalidSample),
		errors.Is(err, metrics.ErrSampleTooSoon),
		errors.Is(err, scheduler.ErrMalformedEntry),
		errors.Is(err, scheduler.ErrUnknownLevel),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, command.ErrMissingSourceKey),
		errors.Is(err, command.ErrMissingSample):
		Error(c, http.StatusBadRequest, "invalid request", err)

	default:
		Error(c, http.StatusInternalServerError, "internal error", err)
	}
}

// FromOutcome writes a command outcome, translating timeouts to 504
func FromOutcome(c *gin.Context, outcome command.Outcome) {
	if outcome.Success {
		OK(c, outcome.Data)
		return
	}
	if outcome.Timeout {
		Error(c, http.StatusGatewayTimeout, "command timed out", outcome.Err)
		return
	}
	if outcome.Err != nil {
		FromError(c, outcome.Err)
		return
	}
	Error(c, http.StatusBadRequest, "command failed", errors.New(outcome.Error))
}
