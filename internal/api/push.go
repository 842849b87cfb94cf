package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reliefmesh/reliefmesh/internal/bus"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// StageRunner executes one asynchronous stage for a request identifier.
type StageRunner func(ctx context.Context, requestID string) error

// PushHandler serves a bus push endpoint for one stage.
//
// Acknowledgment policy: a malformed envelope yields 400 so the bus retries
// delivery; a structurally valid envelope whose stage logic then fails yields
// 200 with a failure body, acknowledging the message so a deterministically
// failing payload is not redelivered forever.
type PushHandler struct {
	stage  string
	run    StageRunner
	logger *logging.Logger
}

// NewPushHandler creates a push handler for the named stage.
func NewPushHandler(stage string, run StageRunner, logger *logging.Logger) *PushHandler {
	return &PushHandler{stage: stage, run: run, logger: logger.Named(stage)}
}

// Register mounts the push route.
func (h *PushHandler) Register(e *echo.Echo) {
	e.POST("/", h.HandlePush)
}

// HandlePush decodes the push envelope and runs the stage.
// (POST /)
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	var env bus.PushEnvelope
	if err := c.Bind(&env); err != nil || env.Message == nil {
		h.logger.Warn("invalid push envelope received")
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "Invalid push message format.",
		})
	}

	// Keepalive or empty message: nothing to process.
	if env.Message.Data == "" {
		return c.NoContent(http.StatusNoContent)
	}

	payload, err := env.Message.DecodeData()
	if err != nil {
		h.logger.Warn("failed to decode push payload", "error", err)
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "Invalid push payload encoding.",
		})
	}

	var trigger models.Trigger
	if err := json.Unmarshal(payload, &trigger); err != nil || trigger.RequestID == "" {
		h.logger.Warn("push payload missing request_id")
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "Decoded payload missing 'request_id'.",
		})
	}

	h.logger.Info("push trigger received", "request_id", trigger.RequestID, "message_id", env.Message.MessageID)

	if err := h.run(ctx, trigger.RequestID); err != nil {
		// Acknowledge anyway: redelivery would fail the same way.
		h.logger.Error("stage failed", "request_id", trigger.RequestID, "error", err)
		return c.JSON(http.StatusOK, StatusResponse{
			Status:    "error",
			Message:   "Stage failed internally (acknowledged).",
			RequestID: trigger.RequestID,
		})
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Status:    "success",
		RequestID: trigger.RequestID,
	})
}
