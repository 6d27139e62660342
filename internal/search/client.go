package search

import (
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

type Config struct {
	URL      string
	Username string
	Password string
}

// NewClient builds an Elasticsearch client and checks the cluster answers.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	return client, nil
}

// Index is what the API and the worker need from the doctor index.
type Index interface {
	IndexDoctor(ctx context.Context, d Doctor) error
	DeleteDoctor(ctx context.Context, id string) error
	SearchDoctors(ctx context.Context, q string, page, limit int) (int64, []Doctor, error)
}

// Open connects to the cluster and ensures the doctor index exists. An empty
// URL yields Disabled.
func Open(ctx context.Context, cfg Config, index string) (Index, error) {
	if cfg.URL == "" {
		return Disabled{}, nil
	}

	es, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ix := NewDoctorIndex(es, index)
	if err := ix.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}
