package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storefront/internal/logger"
	"storefront/internal/model"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed schema.sql
var schemaSQL string

type PostgresProductRepository struct {
	db    *sql.DB
	table string
}

// NewPostgresProductRepository uses table as given; it is quoted as an identifier.
func NewPostgresProductRepository(db *sql.DB, table string) *PostgresProductRepository {
	return &PostgresProductRepository{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the product table when it does not exist yet.
func (r *PostgresProductRepository) EnsureSchema(ctx context.Context) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "PostgresProductRepository.EnsureSchema")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, strings.ReplaceAll(schemaSQL, "{{table}}", r.table)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "PostgresProductRepository.ListAll")
	defer span.End()
	logger.Info(ctx, "Repository")

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, price, image_url, available FROM "+r.table+" ORDER BY id DESC")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		var (
			id       int64
			p        model.Product
			imageURL sql.NullString
		)
		if err := rows.Scan(&id, &p.Name, &p.Price, &imageURL, &p.Available); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

func (r *PostgresProductRepository) Insert(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "PostgresProductRepository.Insert")
	defer span.End()
	logger.Info(ctx, "Repository")

	imageURL := sql.NullString{String: p.ImageURL, Valid: p.ImageURL != ""}

	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO "+r.table+" (name, price, image_url, available) VALUES ($1, $2, $3, $4) RETURNING id",
		p.Name, p.Price, imageURL, p.Available,
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert product: %w", err)
	}

	return &model.Product{
		ID:        strconv.FormatInt(id, 10),
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Available: p.Available,
	}, nil
}

func (r *PostgresProductRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "PostgresProductRepository.DeleteByID")
	defer span.End()
	logger.Info(ctx, "Repository", slog.String("id", id))

	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		logger.Warn(ctx, "Delete skipped for malformed id", slog.String("id", id))
		return nil
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE id = $1", numericID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
