package jwtmiddleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/tokens"
)

// ContextKey holds the token subject (username) on the echo context.
const ContextKey = "username"

const AccessCookie = "access_token"

type AccessDecoder interface {
	Decode(raw string, expected tokens.Kind) (string, error)
}

// JWTMiddleware accepts an access token from the Authorization header or,
// failing that, from the access_token cookie.
func JWTMiddleware(decoder AccessDecoder) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:Authorization:Bearer ,cookie:" + AccessCookie,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			sub, err := decoder.Decode(auth, tokens.KindAccess)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).
				Warn("auth_failed", "status", 401, "reason", err.Error())
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials.")
		},
	})
}

func Username(c echo.Context) string {
	sub, _ := c.Get(ContextKey).(string)
	return sub
}
