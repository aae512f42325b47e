package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
	"github.com/HardCodeMatter/file-fortress-api/internal/mykafka"
	"github.com/HardCodeMatter/file-fortress-api/internal/repo"
	"github.com/HardCodeMatter/file-fortress-api/internal/service/search"
	"github.com/HardCodeMatter/file-fortress-api/internal/storage"
	"github.com/HardCodeMatter/file-fortress-api/internal/util"
)

type FileStore interface {
	CreatePendingFile(ctx context.Context, f *models.File) error
	MarkFileCommitted(ctx context.Context, id string) error
	DeleteFile(ctx context.Context, id string) error
	StorageKeyExists(ctx context.Context, key string) (bool, error)
	GetCommittedFileByKey(ctx context.Context, key string) (*models.File, error)
	GetCommittedFileByID(ctx context.Context, id string) (*models.File, error)
	GetCommittedFilesByIDs(ctx context.Context, ids []string) ([]models.File, error)
	SearchFiles(ctx context.Context, filter repo.FileFilter) (int64, []models.File, error)
	IncrementDownloads(ctx context.Context, id string, at time.Time) error
	ListStalePendingFiles(ctx context.Context, before time.Time, limit int) ([]models.File, error)
}

// FileIndexer is the optional name index. SearchByName falls back to the
// database when it is nil or failing.
type FileIndexer interface {
	IndexFile(ctx context.Context, f *models.File) error
	DeleteFile(ctx context.Context, id string) error
	SearchIDs(ctx context.Context, q search.Query) (int64, []string, error)
}

type FileService struct {
	Files   FileStore
	Storage storage.ObjectStore
	Hasher  PasswordHasher
	Keys    KeyGenerator
	Index   FileIndexer
	Events  mykafka.Publisher
	Topic   string

	MaxBytes    int64
	KeyAttempts int
	Now         func() time.Time
}

type FileServiceOptions struct {
	MaxBytes    int64
	KeyAttempts int
	Topic       string
}

func NewFileService(files FileStore, store storage.ObjectStore, hasher PasswordHasher, keys KeyGenerator, index FileIndexer, events mykafka.Publisher, opts FileServiceOptions) *FileService {
	if events == nil {
		events = mykafka.NopPublisher{}
	}
	if opts.KeyAttempts < 1 {
		opts.KeyAttempts = 5
	}
	return &FileService{
		Files:       files,
		Storage:     store,
		Hasher:      hasher,
		Keys:        keys,
		Index:       index,
		Events:      events,
		Topic:       opts.Topic,
		MaxBytes:    opts.MaxBytes,
		KeyAttempts: opts.KeyAttempts,
		Now:         time.Now,
	}
}

type UploadInput struct {
	Filename       string
	ContentType    string
	Size           int64
	Body           io.Reader
	AccessCode     string
	ExpirationDate *time.Time
	IsPublic       bool
}

type DownloadInput struct {
	StorageKey string
	Filename   string
	AccessCode string
}

type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
	File        *models.File
}

type SearchQuery struct {
	Name       string
	OrderBy    string
	Descending bool
	Page       int
	Limit      int
}

type FilePage struct {
	Items []models.File
	Total int64
	Page  int
	Limit int
}

const defaultContentType = "application/octet-stream"

// column width of files.name and files.content_type
const maxFieldLen = 255

func (s *FileService) Upload(ctx context.Context, owner *models.User, in UploadInput) (*models.File, error) {
	l := logging.FromContext(ctx).With("svc", "files.upload", "user_id", owner.ID)

	if err := s.validateUpload(in); err != nil {
		l.Info("upload_failed", "status", 400, "reason", DetailOf(err))
		return nil, err
	}

	rec := &models.File{
		Name:        in.Filename,
		Size:        in.Size,
		ContentType: in.ContentType,
		UploaderID:  owner.ID,
		IsPublic:    in.IsPublic,
	}
	if rec.ContentType == "" {
		rec.ContentType = defaultContentType
	}
	if in.ExpirationDate != nil {
		exp := in.ExpirationDate.UTC()
		rec.ExpirationDate = &exp
	}
	if in.AccessCode != "" {
		hashed, err := s.Hasher.Hash(in.AccessCode)
		if err != nil {
			l.Error("upload_failed", "status", 500, "reason", "cannot hash the access code", "error", err)
			return nil, internalError("hash access code", err)
		}
		rec.AccessCodeHash = &hashed
	}

	if err := s.reserveKey(ctx, rec); err != nil {
		if KindOf(err) == KindConflict {
			l.Warn("upload_failed", "status", 409, "reason", "storage key attempts exhausted")
		} else {
			l.Error("upload_failed", "status", 500, "error", err)
		}
		return nil, err
	}

	if err := s.Storage.Put(ctx, rec.StorageKey, in.Body, in.Size, rec.ContentType); err != nil {
		l.Error("upload_failed", "status", 500, "storage_key", rec.StorageKey, "reason", "object storage write", "error", err)
		if derr := s.Files.DeleteFile(context.WithoutCancel(ctx), rec.ID); derr != nil {
			l.Error("pending_cleanup_failed", "file_id", rec.ID, "error", derr)
		}
		return nil, &Error{Kind: KindInternal, Detail: MsgFileUploadFailed, Err: err}
	}

	if err := s.Files.MarkFileCommitted(ctx, rec.ID); err != nil {
		// record stays pending, the sweeper removes it with its blob
		l.Error("upload_failed", "status", 500, "file_id", rec.ID, "reason", "commit record", "error", err)
		return nil, internalError("commit file record", err)
	}
	rec.Status = models.FileStatusCommitted

	if s.Index != nil {
		if err := s.Index.IndexFile(ctx, rec); err != nil {
			l.Warn("index_failed", "file_id", rec.ID, "error", err)
		}
	}
	s.publish(ctx, rec.StorageKey, mykafka.FileEvent{
		Type:       mykafka.EventFileUploaded,
		FileID:     rec.ID,
		StorageKey: rec.StorageKey,
		UserID:     owner.ID,
		Size:       rec.Size,
		OccurredAt: s.Now().UTC(),
	})

	l.Info("file_uploaded", "file_id", rec.ID, "storage_key", rec.StorageKey, "size", rec.Size)
	return rec, nil
}

func (s *FileService) validateUpload(in UploadInput) error {
	if strings.TrimSpace(in.Filename) == "" {
		return newError(KindValidation, "File name is required.")
	}
	if utf8.RuneCountInString(in.Filename) > maxFieldLen {
		return newError(KindValidation, "File name must not exceed 255 characters.")
	}
	if len(in.ContentType) > maxFieldLen {
		return newError(KindValidation, "Content type must not exceed 255 characters.")
	}
	if in.Body == nil || in.Size <= 0 {
		return newError(KindValidation, "File is empty.")
	}
	if s.MaxBytes > 0 && in.Size > s.MaxBytes {
		return newError(KindValidation, "File is too large.")
	}
	if ok, msg := ValidateExpiration(in.ExpirationDate, s.Now()); !ok {
		return newError(KindValidation, msg)
	}
	if in.AccessCode != "" {
		if in.IsPublic {
			return newError(KindValidation, "Public files cannot have an access code.")
		}
		if ok, msg := ValidateAccessCode(in.AccessCode); !ok {
			return newError(KindValidation, msg)
		}
	}
	return nil
}

// reserveKey inserts rec as pending under a fresh storage key. The
// existence check only saves a round trip, the unique index decides.
func (s *FileService) reserveKey(ctx context.Context, rec *models.File) error {
	for attempt := 0; attempt < s.KeyAttempts; attempt++ {
		key := s.Keys.NewKey()

		taken, err := s.Files.StorageKeyExists(ctx, key)
		if err != nil {
			return internalError("check storage key", err)
		}
		if taken {
			continue
		}

		rec.ID = uuid.NewString()
		rec.StorageKey = key
		err = s.Files.CreatePendingFile(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return internalError("create file record", err)
		}
	}
	return newError(KindConflict, MsgFileKeyExists)
}

func (s *FileService) Download(ctx context.Context, caller *models.User, in DownloadInput) (*Download, error) {
	l := logging.FromContext(ctx).With("svc", "files.download", "storage_key", in.StorageKey)

	if in.StorageKey == "" {
		return nil, newError(KindNotFound, MsgStorageKeyUnknown)
	}

	file, err := s.Files.GetCommittedFileByKey(ctx, in.StorageKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Info("download_failed", "status", 404, "reason", "unknown storage key")
			return nil, newError(KindNotFound, MsgFileKeyNotFound)
		}
		l.Error("download_failed", "status", 500, "error", err)
		return nil, internalError("lookup file", err)
	}

	now := s.Now()
	if file.IsExpired(now) {
		l.Info("download_failed", "status", 404, "reason", "expired")
		return nil, newError(KindNotFound, MsgFileExpired)
	}

	allowed, err := s.canDownload(file, caller, in.AccessCode)
	if err != nil {
		l.Error("download_failed", "status", 500, "file_id", file.ID, "error", err)
		return nil, internalError("verify access code", err)
	}
	if !allowed {
		l.Warn("download_failed", "status", 403, "file_id", file.ID, "reason", "access denied")
		return nil, newError(KindForbidden, MsgFileAccessDenied)
	}

	obj, err := s.Storage.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			l.Error("download_failed", "status", 404, "file_id", file.ID, "reason", "blob missing")
			return nil, newError(KindNotFound, MsgFileKeyNotFound)
		}
		l.Error("download_failed", "status", 500, "file_id", file.ID, "error", err)
		return nil, &Error{Kind: KindInternal, Detail: MsgFileDownloadFailed, Err: err}
	}

	if err := s.Files.IncrementDownloads(ctx, file.ID, now.UTC()); err != nil {
		l.Warn("download_counter_failed", "file_id", file.ID, "error", err)
	} else {
		at := now.UTC()
		file.DownloadsCount++
		file.LastDownloadedAt = &at
	}

	userID := ""
	if caller != nil {
		userID = caller.ID
	}
	s.publish(ctx, file.StorageKey, mykafka.FileEvent{
		Type:       mykafka.EventFileDownloaded,
		FileID:     file.ID,
		StorageKey: file.StorageKey,
		UserID:     userID,
		OccurredAt: now.UTC(),
	})

	contentType := obj.ContentType
	if contentType == "" {
		contentType = file.ContentType
	}
	size := obj.Size
	if size <= 0 {
		size = file.Size
	}
	return &Download{
		Body:        obj.Body,
		ContentType: contentType,
		Size:        size,
		Filename:    SuggestedFilename(in.Filename, file),
		File:        file,
	}, nil
}

// canDownload allows the owner, anyone for public files, and holders of
// the access code.
func (s *FileService) canDownload(file *models.File, caller *models.User, code string) (bool, error) {
	if caller != nil && caller.ID == file.UploaderID {
		return true, nil
	}
	if file.IsPublic {
		return true, nil
	}
	if !file.HasAccessCode() || code == "" {
		return false, nil
	}
	return s.Hasher.Verify(*file.AccessCodeHash, code)
}

// SuggestedFilename appends the content subtype to override, e.g.
// "report" with "application/pdf" becomes "report.pdf".
func SuggestedFilename(override string, file *models.File) string {
	override = strings.TrimSpace(override)
	if override == "" {
		return file.Name
	}
	mediaType, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil {
		mediaType = file.ContentType
	}
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || subtype == "" {
		return override
	}
	return override + "." + subtype
}

func (s *FileService) GetByID(ctx context.Context, id string) (*models.File, error) {
	file, err := s.Files.GetCommittedFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindNotFound, MsgFileNotFound)
		}
		return nil, internalError("lookup file", err)
	}
	return file, nil
}

// SearchByName pages committed files whose name contains q.Name. An empty
// page is reported as NotFound.
func (s *FileService) SearchByName(ctx context.Context, q SearchQuery) (*FilePage, error) {
	l := logging.FromContext(ctx).With("svc", "files.search")

	if q.OrderBy != "" && !repo.IsFileOrderColumn(q.OrderBy) {
		return nil, newError(KindValidation, "Unknown order_by field.")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	offset, limit := util.Calculate(q.Page, q.Limit)

	if s.Index != nil {
		page, err := s.searchIndex(ctx, q, offset, limit)
		switch {
		case err != nil:
			l.Warn("index_search_failed", "reason", "falling back to database", "error", err)
		case page != nil:
			return page, nil
		}
	}

	total, items, err := s.Files.SearchFiles(ctx, repo.FileFilter{
		Name:       q.Name,
		OrderBy:    q.OrderBy,
		Descending: q.Descending,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return nil, internalError("search files", err)
	}
	if len(items) == 0 {
		return nil, newError(KindNotFound, MsgFilesNotFound)
	}
	return &FilePage{Items: items, Total: total, Page: q.Page, Limit: limit}, nil
}

func (s *FileService) searchIndex(ctx context.Context, q SearchQuery, offset, limit int) (*FilePage, error) {
	total, ids, err := s.Index.SearchIDs(ctx, search.Query{
		Name:       q.Name,
		OrderBy:    q.OrderBy,
		Descending: q.Descending,
		From:       offset,
		Size:       limit,
	})
	if err != nil {
		return nil, err
	}
	items, err := s.Files.GetCommittedFilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) < len(ids) {
		s.pruneIndex(ctx, ids, items)
	}
	// the index may lag behind the database, an empty page is not final
	if len(items) == 0 {
		return nil, nil
	}
	return &FilePage{Items: items, Total: total, Page: q.Page, Limit: limit}, nil
}

// pruneIndex drops index entries that no longer resolve to a committed record.
func (s *FileService) pruneIndex(ctx context.Context, ids []string, found []models.File) {
	seen := make(map[string]struct{}, len(found))
	for _, f := range found {
		seen[f.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.Index.DeleteFile(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("index_prune_failed", "file_id", id, "error", err)
		}
	}
}

const reindexBatch = 200

// Reindex pushes every committed record into the index.
func (s *FileService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	l := logging.FromContext(ctx).With("svc", "files.reindex")

	indexed := 0
	for offset := 0; ; offset += reindexBatch {
		_, items, err := s.Files.SearchFiles(ctx, repo.FileFilter{
			OrderBy: "created_at",
			Offset:  offset,
			Limit:   reindexBatch,
		})
		if err != nil {
			return indexed, err
		}
		for i := range items {
			if err := s.Index.IndexFile(ctx, &items[i]); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(items) < reindexBatch {
			l.Info("reindex_done", "indexed", indexed)
			return indexed, nil
		}
	}
}

func (s *FileService) ListForOwner(ctx context.Context, owner *models.User, name string, page, limit int) (*FilePage, error) {
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, limit)

	total, items, err := s.Files.SearchFiles(ctx, repo.FileFilter{
		Name:       name,
		UploaderID: owner.ID,
		OrderBy:    "created_at",
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		logging.FromContext(ctx).Error("list_own_failed", "status", 500, "user_id", owner.ID, "error", err)
		return nil, internalError("list files", err)
	}
	if len(items) == 0 {
		return nil, newError(KindNotFound, MsgFilesNotFound)
	}
	return &FilePage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *FileService) publish(ctx context.Context, key string, ev mykafka.FileEvent) {
	if err := s.Events.PublishEvent(ctx, s.Topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", s.Topic, "event", ev.Type, "error", err)
	}
}
