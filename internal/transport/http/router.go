package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/HardCodeMatter/file-fortress-api/internal/db"
	"github.com/HardCodeMatter/file-fortress-api/internal/handlers"
	"github.com/HardCodeMatter/file-fortress-api/internal/jwtmiddleware"
	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	AuthHandler  *handlers.AuthHandler
	UserHandler  *handlers.UserHandler
	FileHandler  *handlers.FileHandler
	Tokens       jwtmiddleware.AccessDecoder
	Users        auth.UserResolver
	MaxBodyBytes int64
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			logging.FromContext(c.Request().Context()).Error("readiness_failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	requireToken := jwtmiddleware.JWTMiddleware(d.Tokens)
	requireActive := auth.RequireActive(d.Users)

	a := e.Group("/auth")
	a.POST("/register", d.AuthHandler.Register)
	a.POST("/login", d.AuthHandler.Login)
	a.POST("/refresh", d.AuthHandler.Refresh)
	a.POST("/logout", d.AuthHandler.LogOut)
	a.POST("/change-password", d.AuthHandler.ChangePassword, requireToken)

	users := e.Group("/users", requireToken, requireActive)
	users.GET("", d.UserHandler.GetUser)

	files := e.Group("/files", requireToken, requireActive)
	files.POST("/upload", d.FileHandler.Upload, bodyLimit(d.MaxBodyBytes))
	files.GET("/download", d.FileHandler.Download)
	files.GET("/search", d.FileHandler.Search)
	files.GET("/own", d.FileHandler.Own)
	files.GET("", d.FileHandler.GetFile)
}

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

func bodyLimit(maxBytes int64) echo.MiddlewareFunc {
	if maxBytes <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.BodyLimit(strconv.FormatInt(maxBytes+multipartOverhead, 10))
}
