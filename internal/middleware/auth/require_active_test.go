package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/jwtmiddleware"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
)

type resolverFunc func(ctx context.Context, username string) (*models.User, error)

func (f resolverFunc) CurrentUser(ctx context.Context, username string) (*models.User, error) {
	return f(ctx, username)
}

func TestRequireActive(t *testing.T) {
	t.Parallel()

	users := resolverFunc(func(_ context.Context, username string) (*models.User, error) {
		switch username {
		case "king":
			return &models.User{ID: "u1", Username: "king", IsActive: true}, nil
		case "sleepy":
			return nil, &service.Error{Kind: service.KindBadRequest, Detail: service.MsgUserInactive}
		default:
			return nil, &service.Error{Kind: service.KindUnauthorized, Detail: service.MsgInvalidCredentials}
		}
	})

	mw := RequireActive(users)
	for _, tt := range []struct {
		username string
		kind     service.Kind
		ok       bool
	}{
		{"king", 0, true},
		{"sleepy", service.KindBadRequest, false},
		{"ghost", service.KindUnauthorized, false},
	} {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(jwtmiddleware.ContextKey, tt.username)

		var seen *models.User
		err := mw(func(c echo.Context) error {
			seen = CurrentUser(c)
			return nil
		})(c)

		if tt.ok {
			require.NoError(t, err)
			require.NotNil(t, seen)
			assert.Equal(t, "u1", seen.ID)
			continue
		}
		require.Error(t, err)
		assert.Equal(t, tt.kind, service.KindOf(err))
		assert.Nil(t, seen)
	}
}
