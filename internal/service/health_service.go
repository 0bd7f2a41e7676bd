package service

import (
	"context"
	"time"

	"storefront/internal/logger"
	"storefront/internal/repository"

	"go.opentelemetry.io/otel"
)

type HealthService struct {
	Store  repository.ProductStore
	Driver string
}

type HealthStatus struct {
	Store  string `json:"store"`
	Driver string `json:"driver"`
}

func (h HealthStatus) Up() bool {
	return h.Store == "UP"
}

var HealthServiceTracer = otel.Tracer("HealthService")

func NewHealthService(store repository.ProductStore, driver string) *HealthService {
	return &HealthService{
		Store:  store,
		Driver: driver,
	}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	ctx, span := HealthServiceTracer.Start(ctx, "HealthService.Check")
	defer span.End()
	logger.Info(ctx, "Service")

	status := HealthStatus{Store: "UP", Driver: s.Driver}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(pingCtx); err != nil {
		status.Store = "DOWN"
	}

	return status
}
