package http

import (
	"net/http"

	"storefront/internal/logger"
	"storefront/internal/service"
	"storefront/internal/utils"
	"storefront/internal/version"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

type HealthHandler struct {
	service *service.HealthService
}

var HttpHealthHandlerTracer = otel.Tracer("HttpHealthHandler")

func NewHealthHandler(service *service.HealthService) *HealthHandler {
	return &HealthHandler{
		service: service,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, span := HttpHealthHandlerTracer.Start(c.Request.Context(), "HttpHealthHandler.Check")
	defer span.End()
	logger.Info(ctx, "HttpHealthHandler")

	status := h.service.Check(ctx)

	overall := "UP"
	code := http.StatusOK
	if !status.Up() {
		overall = "DOWN"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   overall,
		"version":  version.Version,
		"resolver": utils.GetHost(),
		"data":     status,
	})
}
