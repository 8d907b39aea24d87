package taskcallback

import "github.com/labstack/echo/v4"

// RegisterRoutes registers the internal callback surface the agent
// runtime posts back into. Not behind the user-facing auth middleware —
// it carries its own event payload identifying the task.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/internal/scheduled-tasks/callback")
	g.POST("/success", h.Success)
	g.POST("/failure", h.Failure)
}
