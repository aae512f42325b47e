package loggingmw

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var last []byte
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		last = append([]byte(nil), sc.Bytes()...)
	}
	require.NotEmpty(t, last)
	var m map[string]any
	require.NoError(t, json.Unmarshal(last, &m))
	return m
}

func TestRequestLogger_InjectsLoggerAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "info")

	e := echo.New()
	e.Use(RequestLogger(base))
	e.GET("/files/own", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("handler_called")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/files/own", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"msg":"handler_called"`)

	line := lastLine(t, &buf)
	assert.Equal(t, "request completed", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.EqualValues(t, 200, line["status"])
	assert.Equal(t, "rid-1", line["request_id"])
	assert.Equal(t, "/files/own", line["path"])
}

func TestRequestLogger_HandlerErrorIsRendered(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "info")

	e := echo.New()
	e.Use(RequestLogger(base))
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	line := lastLine(t, &buf)
	assert.Equal(t, "WARN", line["level"])
	assert.EqualValues(t, 404, line["status"])
}
