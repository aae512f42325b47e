package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/jwtmiddleware"
	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

const CtxUser = "user"

type UserResolver interface {
	CurrentUser(ctx context.Context, username string) (*models.User, error)
}

// RequireActive loads the token subject and rejects missing or inactive
// users. It must run after the JWT middleware.
func RequireActive(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			username := jwtmiddleware.Username(c)

			user, err := users.CurrentUser(ctx, username)
			if err != nil {
				logging.FromContext(ctx).Warn("current_user_failed", "username", username, "error", err)
				return err
			}

			c.Set(CtxUser, user)
			c.SetRequest(c.Request().WithContext(
				logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID)),
			))
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(CtxUser).(*models.User)
	return u
}
