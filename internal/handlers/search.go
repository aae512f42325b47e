package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HardCodeMatter/file-fortress-api/internal/middleware/auth"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
	"github.com/HardCodeMatter/file-fortress-api/internal/transport"
	"github.com/HardCodeMatter/file-fortress-api/internal/util"
)

func (h *FileHandler) Search(c echo.Context) error {
	page, err := h.Svc.SearchByName(c.Request().Context(), service.SearchQuery{
		Name:       c.QueryParam("name"),
		OrderBy:    c.QueryParam("order_by"),
		Descending: util.ParseBoolDefault(c.QueryParam("descending"), false),
		Page:       util.ParseIntDefault(c.QueryParam("page"), 1),
		Limit:      util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFileList(page))
}

func (h *FileHandler) Own(c echo.Context) error {
	page, err := h.Svc.ListForOwner(
		c.Request().Context(),
		auth.CurrentUser(c),
		c.QueryParam("name"),
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFileList(page))
}

func toFileList(p *service.FilePage) transport.FileListResponse {
	data := make([]transport.FileResponse, 0, len(p.Items))
	for i := range p.Items {
		data = append(data, toFileResponse(&p.Items[i]))
	}
	offset := (p.Page - 1) * p.Limit
	return transport.FileListResponse{
		Data: data,
		Meta: transport.PageMeta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Total,
			TotalPages: util.TotalPages(p.Total, p.Limit),
			HasPrev:    p.Page > 1,
			HasNext:    int64(offset+p.Limit) < p.Total,
		},
	}
}
