package es

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/HardCodeMatter/file-fortress-api/internal/config"
)

// NewClient connects to Elasticsearch and verifies the cluster answers.
func NewClient(ctx context.Context, cfg config.ESConfig) (*elasticsearch.Client, error) {
	slog.Info("connecting to elasticsearch", "url", cfg.URL, "user", cfg.User)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error response %s: %s", res.Status(), body)
	}

	slog.Info("connected to elasticsearch")
	return client, nil
}
