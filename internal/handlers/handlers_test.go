package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := map[service.Kind]int{
		service.KindValidation:   http.StatusBadRequest,
		service.KindBadRequest:   http.StatusBadRequest,
		service.KindUnauthorized: http.StatusUnauthorized,
		service.KindForbidden:    http.StatusForbidden,
		service.KindNotFound:     http.StatusNotFound,
		service.KindConflict:     http.StatusConflict,
		service.KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusOf(kind), kind.String())
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"service conflict", &service.Error{Kind: service.KindConflict, Detail: service.MsgEmailTaken}, http.StatusConflict, service.MsgEmailTaken},
		{"service internal hides cause", &service.Error{Kind: service.KindInternal, Detail: "insert user", Err: errors.New("pq: connection refused")}, http.StatusInternalServerError, service.MsgInternal},
		{"echo http error", echo.NewHTTPError(http.StatusBadRequest, "Invalid body."), http.StatusBadRequest, "Invalid body."},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"echo 500 hides message", echo.NewHTTPError(http.StatusInternalServerError, "db down"), http.StatusInternalServerError, service.MsgInternal},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, service.MsgInternal},
	}
	for _, tt := range tests {
		c, rec := newContext(http.MethodGet, "/")
		ErrorHandler(tt.err, c)
		assert.Equal(t, tt.status, rec.Code, tt.name)
		assert.Equal(t, tt.detail, decodeDetail(t, rec), tt.name)
	}
}

func TestErrorHandler_UnauthorizedSetsChallenge(t *testing.T) {
	t.Parallel()

	c, rec := newContext(http.MethodGet, "/")
	ErrorHandler(&service.Error{Kind: service.KindUnauthorized, Detail: service.MsgInvalidCredentials}, c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	t.Parallel()

	c, rec := newContext(http.MethodHead, "/")
	ErrorHandler(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCookies(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	c := CreateCookie(AccessCookie, "v", "/", exp, true)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, exp, c.Expires)

	d := DeleteCookie(RefreshCookie, "/auth", false)
	assert.Empty(t, d.Value)
	assert.Equal(t, -1, d.MaxAge)
	assert.False(t, d.Secure)
	assert.Equal(t, "/auth", d.Path)
}

func TestToFileResponseHidesSecrets(t *testing.T) {
	t.Parallel()

	code := "$2a$04$abcdefghijklmnopqrstuv"
	resp := toFileResponse(&models.File{ID: "f1", Name: "a.txt", AccessCodeHash: &code})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), code)
	assert.True(t, resp.HasAccessCode)
}
