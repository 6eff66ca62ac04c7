package interpret

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Handler exposes the interpretation pipeline over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a new interpret handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the interpret route on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/interpret", h.Interpret)
}

// InterpretRequest is the inbound payload.
type InterpretRequest struct {
	Query string `json:"query"`
}

// Interpret handles POST /api/v1/interpret.
func (h *Handler) Interpret(c echo.Context) error {
	var req InterpretRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	return c.JSON(http.StatusOK, h.svc.Interpret(c.Request().Context(), req.Query))
}
