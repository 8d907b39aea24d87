package embedstatus

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/emergent/pkg/apperror"
)

// Handler handles HTTP requests for embedding status lookups.
type Handler struct {
	svc *Service
}

// NewHandler creates a new status handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type getStatusRequest struct {
	Items []StatusQuery `json:"items"`
}

// GetStatus handles POST /api/embed-status
// @Summary Batch embedding/image status lookup
// @Description Resolves a batch of {key, type} queries to their status
// @Tags embed-status
// @Accept json
// @Produce json
// @Success 200 {object} map[string]Status
// @Failure 400 {object} apperror.Error
// @Router /api/embed-status [post]
func (h *Handler) GetStatus(c echo.Context) error {
	var req getStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if len(req.Items) == 0 {
		return apperror.ErrBadRequest.WithMessage("items must not be empty")
	}

	statuses, err := h.svc.GetStatus(c.Request().Context(), req.Items)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statuses)
}
