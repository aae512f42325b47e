package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/HardCodeMatter/file-fortress-api/internal/models"
)

type Query struct {
	Name       string
	UploaderID string
	OrderBy    string
	Descending bool
	From       int
	Size       int
}

type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	IsPublic   bool      `json:"is_public"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileIndex mirrors committed file records into an Elasticsearch index
// so name lookups do not scan the files table.
type FileIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewFileIndex(es *elasticsearch.Client, index string) *FileIndex {
	return &FileIndex{ES: es, Index: index}
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "name":        {"type": "text", "fields": {"keyword": {"type": "keyword", "ignore_above": 255}}},
      "size":        {"type": "long"},
      "is_public":   {"type": "boolean"},
      "uploader_id": {"type": "keyword"},
      "created_at":  {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when missing.
func (f *FileIndex) EnsureIndex(ctx context.Context) error {
	res, err := f.ES.Indices.Exists([]string{f.Index}, f.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = f.ES.Indices.Create(f.Index,
		f.ES.Indices.Create.WithContext(ctx),
		f.ES.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index %s: %s", res.Status(), body)
	}
	return nil
}

func (f *FileIndex) IndexFile(ctx context.Context, file *models.File) error {
	doc := Document{
		ID:         file.ID,
		Name:       file.Name,
		Size:       file.Size,
		IsPublic:   file.IsPublic,
		UploaderID: file.UploaderID,
		CreatedAt:  file.CreatedAt,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := f.ES.Index(f.Index, &buf,
		f.ES.Index.WithContext(ctx),
		f.ES.Index.WithDocumentID(file.ID),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index document %s: %s", res.Status(), body)
	}
	return nil
}

func (f *FileIndex) DeleteFile(ctx context.Context, id string) error {
	res, err := f.ES.Delete(f.Index, id, f.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete document: %s", res.Status())
	}
	return nil
}

// SearchIDs returns the total hit count and the ids of the requested page in order.
func (f *FileIndex) SearchIDs(ctx context.Context, q Query) (int64, []string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildSearchBody(q)); err != nil {
		return 0, nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := f.ES.Search(
		f.ES.Search.WithContext(ctx),
		f.ES.Search.WithIndex(f.Index),
		f.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search %s: %s", res.Status(), body)
	}
	return DecodeIDs(res.Body)
}

var sortFields = map[string]string{
	"name":       "name.keyword",
	"size":       "size",
	"is_public":  "is_public",
	"created_at": "created_at",
}

func BuildSearchBody(q Query) map[string]any {
	var filters []any
	if q.Name != "" {
		filters = append(filters, map[string]any{
			"wildcard": map[string]any{
				"name.keyword": map[string]any{
					"value":            "*" + escapeWildcard(q.Name) + "*",
					"case_insensitive": true,
				},
			},
		})
	}
	if q.UploaderID != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"uploader_id": q.UploaderID},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(filters) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": filters}}
	}

	field, ok := sortFields[q.OrderBy]
	if !ok {
		field = sortFields["created_at"]
	}
	order := "asc"
	if q.Descending {
		order = "desc"
	}

	return map[string]any{
		"query":            query,
		"sort":             []any{map[string]any{field: map[string]any{"order": order}}},
		"from":             q.From,
		"size":             q.Size,
		"_source":          []string{"id"},
		"track_total_hits": true,
	}
}

func DecodeIDs(r io.Reader) (int64, []string, error) {
	var body struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		id := hit.Source.ID
		if id == "" {
			id = hit.ID
		}
		ids = append(ids, id)
	}
	return body.Hits.Total.Value, ids, nil
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}
