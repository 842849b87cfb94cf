// Package api contains the HTTP handlers for the pipeline services.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// StatusResponse is the common response body for stage endpoints.
type StatusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthStatus is the liveness response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// RegisterHealth mounts the liveness endpoint.
func RegisterHealth(e *echo.Echo, service string) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthStatus{
			Status:    "ok",
			Timestamp: time.Now(),
			Service:   service,
		})
	})
}

// WorkflowInitiator starts a new workflow instance.
type WorkflowInitiator interface {
	Initiate(ctx context.Context, regionName, eventName string) (string, error)
}

// IntakeHandler serves the synchronous workflow entry point.
type IntakeHandler struct {
	intake WorkflowInitiator
	logger *logging.Logger
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(intake WorkflowInitiator, logger *logging.Logger) *IntakeHandler {
	return &IntakeHandler{intake: intake, logger: logger.Named("api")}
}

// Register mounts the intake routes.
func (h *IntakeHandler) Register(e *echo.Echo) {
	e.POST("/", h.HandleInitiate)
}

type initiateRequest struct {
	RegionName string `json:"region_name"`
	EventName  string `json:"event_name"`
}

// HandleInitiate starts a new workflow.
// (POST /)
func (h *IntakeHandler) HandleInitiate(c echo.Context) error {
	ctx := c.Request().Context()

	var req initiateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Status:  "error",
			Message: "Invalid request body.",
		})
	}

	requestID, err := h.intake.Initiate(ctx, req.RegionName, req.EventName)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, StatusResponse{
				Status:  "error",
				Message: verr.Detail,
			})
		}
		h.logger.Error("intake failed", "error", err)
		// Internal detail stays in the logs.
		return c.JSON(http.StatusInternalServerError, StatusResponse{
			Status:  "error",
			Message: "Server error: failed to initiate workflow.",
		})
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Status:    "success",
		Message:   "Workflow initiated successfully. Analysis stage triggered.",
		RequestID: requestID,
	})
}
