package embedstatus

import (
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/emergent/pkg/auth"
)

// RegisterRoutes registers the status lookup route.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	e.POST("/api/embed-status", h.GetStatus, authMiddleware.RequireAuth())
}
