package taskcallback

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/emergent/pkg/apperror"
)

// Handler exposes the callback sink as an echo POST surface.
type Handler struct {
	sink *Sink
}

// NewHandler creates a new callback handler.
func NewHandler(sink *Sink) *Handler {
	return &Handler{sink: sink}
}

// Success handles POST /internal/scheduled-tasks/callback/success
func (h *Handler) Success(c echo.Context) error {
	var req SuccessRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid callback body")
	}
	if req.Event.TaskID == "" || req.Event.UserID == "" {
		return apperror.ErrBadRequest.WithMessage("event.userId and event.taskId are required")
	}
	if err := h.sink.OnSuccess(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// Failure handles POST /internal/scheduled-tasks/callback/failure
func (h *Handler) Failure(c echo.Context) error {
	var req FailureRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid callback body")
	}
	if req.Event.TaskID == "" || req.Event.UserID == "" {
		return apperror.ErrBadRequest.WithMessage("event.userId and event.taskId are required")
	}
	if err := h.sink.OnFailure(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
