package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

type FileFilter struct {
	Name       string
	UploaderID string
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
}

var fileOrderColumns = map[string]string{
	"name":       "name",
	"size":       "size",
	"is_public":  "is_public",
	"created_at": "created_at",
}

// IsFileOrderColumn reports whether col may be used to sort file listings.
func IsFileOrderColumn(col string) bool {
	_, ok := fileOrderColumns[col]
	return ok
}

func (r *GormRepo) CreatePendingFile(ctx context.Context, f *models.File) error {
	f.Status = models.FileStatusPending
	return translate(r.DB.WithContext(ctx).Create(f).Error)
}

func (r *GormRepo) MarkFileCommitted(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ? AND status = ?", id, models.FileStatusPending).
		Update("status", models.FileStatusCommitted)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) DeleteFile(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.File{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// StorageKeyExists counts pending records too, a key in flight is taken.
func (r *GormRepo) StorageKeyExists(ctx context.Context, key string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&models.File{}).
		Where("storage_key = ?", key).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) GetCommittedFileByKey(ctx context.Context, key string) (*models.File, error) {
	var f models.File
	if err := r.committed(ctx).Where("storage_key = ?", key).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *GormRepo) GetCommittedFileByID(ctx context.Context, id string) (*models.File, error) {
	var f models.File
	if err := r.committed(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// GetCommittedFilesByIDs keeps the order of ids and skips unknown ones.
func (r *GormRepo) GetCommittedFilesByIDs(ctx context.Context, ids []string) ([]models.File, error) {
	if len(ids) == 0 {
		return []models.File{}, nil
	}
	var rows []models.File
	if err := r.committed(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.File, len(rows))
	for _, f := range rows {
		byID[f.ID] = f
	}
	out := make([]models.File, 0, len(rows))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *GormRepo) SearchFiles(ctx context.Context, filter FileFilter) (int64, []models.File, error) {
	q := r.committed(ctx)
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(filter.Name))+"%")
	}
	if filter.UploaderID != "" {
		q = q.Where("uploader_id = ?", filter.UploaderID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	col, ok := fileOrderColumns[filter.OrderBy]
	if !ok {
		col = fileOrderColumns["created_at"]
	}

	items := make([]models.File, 0, filter.Limit)
	if err := q.
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: filter.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) IncrementDownloads(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"downloads_count":    gorm.Expr("downloads_count + ?", 1),
			"last_downloaded_at": at,
		}).Error
}

func (r *GormRepo) ListStalePendingFiles(ctx context.Context, before time.Time, limit int) ([]models.File, error) {
	var items []models.File
	if err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.FileStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) committed(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.File{}).Where("status = ?", models.FileStatusCommitted)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
