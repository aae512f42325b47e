package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/middleware/auth"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
)

type UserHandler struct {
	Svc *service.AuthService
}

// GetUser looks up ?username=, defaulting to the caller.
func (h *UserHandler) GetUser(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		if me := auth.CurrentUser(c); me != nil {
			return c.JSON(http.StatusOK, toUserResponse(me))
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Username is required.")
	}

	user, err := h.Svc.GetUser(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}
