package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
	"github.com/HardCodeMatter/file-fortress-api/internal/transport"
)

func StatusOf(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"detail": "..."}. Causes of
// internal errors are logged, never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := http.StatusInternalServerError, service.MsgInternal

	var se *service.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &se):
		status, detail = StatusOf(se.Kind), service.DetailOf(se)
	case errors.As(err, &he):
		status = he.Code
		if status < http.StatusInternalServerError {
			detail = httpErrorDetail(he)
		}
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("internal_error", "status", status, "error", err)
	}
	if status == http.StatusUnauthorized && c.Response().Header().Get(echo.HeaderWWWAuthenticate) == "" {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, transport.DetailResponse{Detail: detail})
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", werr)
	}
}

func httpErrorDetail(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
