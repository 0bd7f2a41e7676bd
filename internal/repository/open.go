package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
)

// Open connects the backend chosen by cfg.StoreDriver. The returned func
// releases the connection.
func Open(ctx context.Context, cfg *config.Config) (ProductStore, func(), error) {
	logger.Info(ctx, "Opening product store",
		slog.String("driver", cfg.StoreDriver),
		slog.String("table", cfg.StoreTable),
	)

	switch cfg.StoreDriver {
	case config.DriverMongo:
		db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = db.Close(context.Background()) }
		return NewMongoProductRepository(db.Database, cfg.StoreTable), closeFn, nil

	case config.DriverPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := NewPostgresProductRepository(db, cfg.StoreTable)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, func() { _ = db.Close() }, nil

	case config.DriverRest:
		return NewRestProductRepository(cfg.RestURL, cfg.RestAPIKey, cfg.StoreTable, 10*time.Second), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
