package handlers

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/middleware/auth"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
	"github.com/HardCodeMatter/file-fortress-api/internal/transport"
	"github.com/HardCodeMatter/file-fortress-api/internal/util"
)

type FileHandler struct {
	Svc *service.FileService
}

func (h *FileHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "files.upload")

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_error", "status", 400, "reason", "missing file part", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "File is required.")
	}

	var exp *time.Time
	if raw := c.FormValue("expiration_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			l.Warn("upload_error", "status", 400, "reason", "bad expiration_date", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "Expiration date must be an RFC 3339 timestamp.")
		}
		exp = &t
	}

	src, err := fh.Open()
	if err != nil {
		l.Error("upload_error", "status", 500, "reason", "cannot open multipart file", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, service.MsgInternal)
	}
	defer src.Close()

	rec, err := h.Svc.Upload(ctx, auth.CurrentUser(c), service.UploadInput{
		Filename:       fh.Filename,
		ContentType:    fh.Header.Get(echo.HeaderContentType),
		Size:           fh.Size,
		Body:           src,
		AccessCode:     c.FormValue("access_code"),
		ExpirationDate: exp,
		IsPublic:       util.ParseBoolDefault(c.FormValue("is_public"), false),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toFileResponse(rec))
}

func (h *FileHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()

	dl, err := h.Svc.Download(ctx, auth.CurrentUser(c), service.DownloadInput{
		StorageKey: c.QueryParam("storage_key"),
		Filename:   c.QueryParam("filename"),
		AccessCode: c.QueryParam("access_code"),
	})
	if err != nil {
		return err
	}
	defer dl.Body.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if dl.Size > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(dl.Size, 10))
	}
	return c.Stream(http.StatusOK, dl.ContentType, dl.Body)
}

func (h *FileHandler) GetFile(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "File id is required.")
	}

	file, err := h.Svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFileResponse(file))
}

func toFileResponse(f *models.File) transport.FileResponse {
	return transport.FileResponse{
		ID:               f.ID,
		Name:             f.Name,
		Size:             f.Size,
		ContentType:      f.ContentType,
		StorageKey:       f.StorageKey,
		ExpirationDate:   f.ExpirationDate,
		IsPublic:         f.IsPublic,
		HasAccessCode:    f.HasAccessCode(),
		DownloadsCount:   f.DownloadsCount,
		LastDownloadedAt: f.LastDownloadedAt,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}
