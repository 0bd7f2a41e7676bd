package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/client"
	"storefront/internal/logger"
	"storefront/internal/model"

	"go.opentelemetry.io/otel/attribute"
)

// RestProductRepository talks to a hosted table exposed with PostgREST
// conventions (Supabase and friends).
type RestProductRepository struct {
	client *client.HTTPClient
	path   string
}

func NewRestProductRepository(baseURL, apiKey, table string, timeout time.Duration) *RestProductRepository {
	c := client.NewHTTPClient(baseURL, timeout)
	c.SetDefaultHeaders(map[string]string{
		"apikey":        apiKey,
		"Authorization": "Bearer " + apiKey,
		"Accept":        "application/json",
	})
	return &RestProductRepository{
		client: c,
		path:   "/rest/v1/" + table,
	}
}

// restID accepts both numeric and string primary keys.
type restID string

func (id *restID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = restID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return errors.New("product row without id")
	}
	*id = restID(b)
	return nil
}

type restRow struct {
	ID        restID  `json:"id"`
	Name      string  `json:"name"`
	Price     int64   `json:"price"`
	ImageURL  *string `json:"image_url"`
	Available bool    `json:"available"`
}

func (r restRow) toModel() model.Product {
	p := model.Product{
		ID:        string(r.ID),
		Name:      r.Name,
		Price:     r.Price,
		Available: r.Available,
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	return p
}

type restInsert struct {
	Name      string  `json:"name"`
	Price     int64   `json:"price"`
	ImageURL  *string `json:"image_url"`
	Available bool    `json:"available"`
}

func (r *RestProductRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "RestProductRepository.ListAll")
	defer span.End()
	logger.Info(ctx, "Repository")

	var rows []restRow
	err := r.client.Get(r.path, &rows, client.RequestOptions{
		Context:     ctx,
		QueryParams: map[string]string{"select": "*", "order": "id.desc"},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toModel())
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

func (r *RestProductRepository) Insert(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "RestProductRepository.Insert")
	defer span.End()
	logger.Info(ctx, "Repository")

	body := restInsert{Name: p.Name, Price: p.Price, Available: p.Available}
	if p.ImageURL != "" {
		body.ImageURL = &p.ImageURL
	}

	var rows []restRow
	err := r.client.Post(r.path, body, &rows, client.RequestOptions{
		Context: ctx,
		Headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert product: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("insert product: empty representation")
	}

	product := rows[0].toModel()
	return &product, nil
}

// DeleteByID relies on PostgREST answering 2xx for filters matching no row.
func (r *RestProductRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "RestProductRepository.DeleteByID")
	defer span.End()
	logger.Info(ctx, "Repository", slog.String("id", id))

	err := r.client.Delete(r.path, nil, client.RequestOptions{
		Context:     ctx,
		QueryParams: map[string]string{"id": "eq." + id},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *RestProductRepository) Ping(ctx context.Context) error {
	err := r.client.Get(r.path, nil, client.RequestOptions{
		Context:     ctx,
		QueryParams: map[string]string{"select": "id", "limit": "1"},
	})
	if err != nil {
		return fmt.Errorf("ping product table: %w", err)
	}
	return nil
}
