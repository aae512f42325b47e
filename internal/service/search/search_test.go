package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

func TestBuildSearchBody(t *testing.T) {
	t.Parallel()

	body := BuildSearchBody(Query{Name: "rep*rt", UploaderID: "u1", OrderBy: "size", Descending: true, From: 20, Size: 10})

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"value":"*rep\\*rt*"`)
	assert.Contains(t, s, `"case_insensitive":true`)
	assert.Contains(t, s, `"term":{"uploader_id":"u1"}`)
	assert.Contains(t, s, `"sort":[{"size":{"order":"desc"}}]`)
	assert.EqualValues(t, 20, body["from"])
	assert.EqualValues(t, 10, body["size"])
}

func TestBuildSearchBody_Defaults(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(BuildSearchBody(Query{OrderBy: "bogus", Size: 10}))
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"match_all":{}`)
	assert.Contains(t, s, `"sort":[{"created_at":{"order":"asc"}}]`)
}

func TestDecodeIDs(t *testing.T) {
	t.Parallel()

	resp := `{"hits":{"total":{"value":3},"hits":[
		{"_id":"a","_source":{"id":"a"}},
		{"_id":"b","_source":{}}
	]}}`
	total, ids, err := DecodeIDs(strings.NewReader(resp))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, _, err = DecodeIDs(strings.NewReader("{"))
	assert.Error(t, err)
}

func newTestIndex(t *testing.T, h http.HandlerFunc) *FileIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewFileIndex(client, "files")
}

func TestFileIndex_IndexAndSearch(t *testing.T) {
	t.Parallel()

	var indexed map[string]any
	var indexedPath string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/_search"):
			_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_id":"f1","_source":{"id":"f1"}}]}}`)
		default:
			indexedPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&indexed)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"result":"created"}`)
		}
	})

	file := &models.File{ID: "f1", Name: "report.pdf", Size: 42, UploaderID: "u1", CreatedAt: time.Now()}
	require.NoError(t, idx.IndexFile(context.Background(), file))
	assert.Equal(t, "/files/_doc/f1", indexedPath)
	assert.Equal(t, "report.pdf", indexed["name"])

	total, ids, err := idx.SearchIDs(context.Background(), Query{Name: "report", Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{"f1"}, ids)
}

func TestFileIndex_SearchError(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad query"}`)
	})

	_, _, err := idx.SearchIDs(context.Background(), Query{Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad query")
}
