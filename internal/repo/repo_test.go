package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/db"
	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	gdb, err := db.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return New(gdb)
}

func seedUser(t *testing.T, r *GormRepo, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          username + "@fortress.com",
		HashedPassword: "hash",
		IsActive:       true,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedFile(t *testing.T, r *GormRepo, owner, name, key string, size int64) *models.File {
	t.Helper()
	ctx := context.Background()
	f := &models.File{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        size,
		ContentType: "text/plain",
		StorageKey:  key,
		UploaderID:  owner,
	}
	require.NoError(t, r.CreatePendingFile(ctx, f))
	require.NoError(t, r.MarkFileCommitted(ctx, f.ID))
	f.Status = models.FileStatusCommitted
	return f
}

func TestUserRepo(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()

	u := seedUser(t, r, "king")

	got, err := r.GetUserByUsername(ctx, "king")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)

	got, err = r.GetUserByEmail(ctx, "king@fortress.com")
	require.NoError(t, err)
	assert.Equal(t, "king", got.Username)

	_, err = r.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &models.User{ID: uuid.NewString(), Username: "king", Email: "other@fortress.com", HashedPassword: "x"}
	assert.ErrorIs(t, r.CreateUser(ctx, dup), ErrDuplicate)

	require.NoError(t, r.UpdatePassword(ctx, u.ID, "new-hash"))
	got, err = r.GetUserByUsername(ctx, "king")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.HashedPassword)

	assert.ErrorIs(t, r.UpdatePassword(ctx, uuid.NewString(), "x"), ErrNotFound)
}

func TestFileRepo_PendingIsInvisible(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "king")

	f := &models.File{ID: uuid.NewString(), Name: "a.txt", Size: 1, ContentType: "text/plain", StorageKey: "AAAAAA", UploaderID: u.ID}
	require.NoError(t, r.CreatePendingFile(ctx, f))

	exists, err := r.StorageKeyExists(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = r.GetCommittedFileByKey(ctx, "AAAAAA")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &models.File{ID: uuid.NewString(), Name: "b.txt", Size: 1, ContentType: "text/plain", StorageKey: "AAAAAA", UploaderID: u.ID}
	assert.ErrorIs(t, r.CreatePendingFile(ctx, dup), ErrDuplicate)

	require.NoError(t, r.MarkFileCommitted(ctx, f.ID))
	assert.ErrorIs(t, r.MarkFileCommitted(ctx, f.ID), ErrNotFound)

	got, err := r.GetCommittedFileByKey(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	got, err = r.GetCommittedFileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)

	require.NoError(t, r.DeleteFile(ctx, f.ID))
	assert.ErrorIs(t, r.DeleteFile(ctx, f.ID), ErrNotFound)
}

func TestFileRepo_Search(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	king := seedUser(t, r, "king")
	queen := seedUser(t, r, "queen")

	seedFile(t, r, king.ID, "Report-2024.pdf", "KEY001", 300)
	seedFile(t, r, king.ID, "report_draft.txt", "KEY002", 100)
	seedFile(t, r, queen.ID, "photo.png", "KEY003", 200)
	seedFile(t, r, queen.ID, "100%_done.txt", "KEY004", 50)

	total, items, err := r.SearchFiles(ctx, FileFilter{Name: "REPORT", OrderBy: "size", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "report_draft.txt", items[0].Name)

	total, items, err = r.SearchFiles(ctx, FileFilter{OrderBy: "size", Descending: true, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, []int64{200, 100}, []int64{items[0].Size, items[1].Size})

	total, _, err = r.SearchFiles(ctx, FileFilter{Name: "%", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, items, err = r.SearchFiles(ctx, FileFilter{UploaderID: queen.ID, OrderBy: "name", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "100%_done.txt", items[0].Name)

	total, items, err = r.SearchFiles(ctx, FileFilter{Name: "missing", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestFileRepo_GetByIDsKeepsOrder(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "king")

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, seedFile(t, r, u.ID, fmt.Sprintf("f%d", i), fmt.Sprintf("KEY00%d", i), 1).ID)
	}

	want := []string{ids[2], ids[0], ids[1]}
	got, err := r.GetCommittedFilesByIDs(ctx, append(want, uuid.NewString()))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i], got[i].ID)
	}

	got, err = r.GetCommittedFilesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileRepo_IncrementDownloads(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "king")
	f := seedFile(t, r, u.ID, "a.txt", "KEY001", 1)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.IncrementDownloads(ctx, f.ID, at))
	require.NoError(t, r.IncrementDownloads(ctx, f.ID, at))

	got, err := r.GetCommittedFileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.DownloadsCount)
	require.NotNil(t, got.LastDownloadedAt)
	assert.True(t, got.LastDownloadedAt.Equal(at))
}

func TestFileRepo_ListStalePending(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "king")

	seedFile(t, r, u.ID, "done.txt", "KEY001", 1)
	pending := &models.File{ID: uuid.NewString(), Name: "p.txt", Size: 1, ContentType: "text/plain", StorageKey: "KEY002", UploaderID: u.ID}
	require.NoError(t, r.CreatePendingFile(ctx, pending))

	items, err := r.ListStalePendingFiles(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = r.ListStalePendingFiles(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
}

func TestIsFileOrderColumn(t *testing.T) {
	t.Parallel()
	assert.True(t, IsFileOrderColumn("name"))
	assert.False(t, IsFileOrderColumn("hashed_password"))
}
