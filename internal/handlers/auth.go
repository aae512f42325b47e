package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/jwtmiddleware"
	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
	"github.com/HardCodeMatter/file-fortress-api/internal/transport"
)

type AuthHandler struct {
	Svc           *service.AuthService
	SecureCookies bool
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body.")
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.PlainPassword(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body.")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, pair)
	l.Info("login_successful", "username", req.Username)
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	raw := ""
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req transport.RefreshRequest
		if err := c.Bind(&req); err != nil {
			l.Warn("refresh_error", "status", 400, "reason", "invalid body", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid body.")
		}
		raw = req.RefreshToken
	}

	pair, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		h.clearTokenCookies(c)
		return err
	}

	h.setTokenCookies(c, pair)
	l.Info("refresh_successful")
	return c.JSON(http.StatusOK, pair)
}

// LogOut only clears the cookies, issued tokens stay valid until they expire.
func (h *AuthHandler) LogOut(c echo.Context) error {
	h.clearTokenCookies(c)
	logging.FromContext(c.Request().Context()).Info("successful_logout")
	return c.JSON(http.StatusOK, transport.DetailResponse{Detail: "Logged out."})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("change_password_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body.")
	}

	if err := h.Svc.ChangePassword(ctx, jwtmiddleware.Username(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.DetailResponse{Detail: "Password changed."})
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(CreateCookie(AccessCookie, pair.AccessToken, accessCookiePath, pair.AccessExp, h.SecureCookies))
	c.SetCookie(CreateCookie(RefreshCookie, pair.RefreshToken, refreshCookiePath, pair.RefreshExp, h.SecureCookies))
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	c.SetCookie(DeleteCookie(AccessCookie, accessCookiePath, h.SecureCookies))
	c.SetCookie(DeleteCookie(RefreshCookie, refreshCookiePath, h.SecureCookies))
}

func toUserResponse(u *models.User) transport.UserResponse {
	return transport.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
