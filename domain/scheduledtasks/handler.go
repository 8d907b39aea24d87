package scheduledtasks

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/auth"
)

// Handler handles HTTP requests for scheduled tasks.
type Handler struct {
	svc *Service
}

// NewHandler creates a new scheduled-tasks handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/scheduled-tasks
func (h *Handler) List(c echo.Context) error {
	tasks, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetByID handles GET /api/scheduled-tasks/:id
func (h *Handler) GetByID(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}

	taskID := c.Param("id")
	if taskID == "" {
		return apperror.ErrBadRequest.WithMessage("task id is required")
	}

	task, err := h.svc.Get(c.Request().Context(), user.ID, taskID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Create handles POST /api/scheduled-tasks
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}

	var req CreateTaskInput
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	req.UserID = user.ID

	task, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

// SetActive handles POST /api/scheduled-tasks/:id/activation
func (h *Handler) SetActive(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthorized
	}

	taskID := c.Param("id")
	if taskID == "" {
		return apperror.ErrBadRequest.WithMessage("task id is required")
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	task, err := h.svc.SetActive(c.Request().Context(), user.ID, taskID, body.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}
