package http

import (
	"net/http"

	"storefront/internal/errs"
	middleware_http "storefront/internal/middleware/http"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	Cookies        sessions.Store
	Sessions       *session.Manager
	Storefront     *service.StorefrontService
	Health         *service.HealthService
}

// NewRouter builds the gin engine serving the storefront API under /api.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware_http.Trace())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Traceparent"}
	corsConfig.ExposeHeaders = []string{"X-Trace-ID"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	health := NewHealthHandler(cfg.Health)
	r.GET("/healthz", health.Check)

	storefront := NewStorefrontHandler(cfg.Storefront)
	admin := NewAdminHandler(cfg.Storefront)

	api := r.Group("/api")
	api.Use(SessionMiddleware(cfg.Cookies, cfg.Sessions, cfg.Storefront))
	{
		api.GET("/storefront", storefront.Storefront)
		api.GET("/products", storefront.Products)
		api.DELETE("/session", storefront.ResetSession)

		// cart
		api.GET("/cart", storefront.Cart)
		api.POST("/cart/items", storefront.AddToCart)
		api.DELETE("/cart/items/:index", storefront.RemoveFromCart)
		api.PUT("/cart/view", storefront.OpenCart)
		api.DELETE("/cart/view", storefront.CloseCart)

		// order hand-off
		api.GET("/orders/preview", storefront.PreviewOrder)
		api.POST("/orders", storefront.PlaceOrder)
		api.GET("/orders/redirect", storefront.RedirectOrder)

		// admin
		api.PUT("/admin/login-prompt", admin.OpenLogin)
		api.DELETE("/admin/login-prompt", admin.CloseLogin)
		api.POST("/admin/login", admin.Login)
		api.POST("/admin/logout", admin.Logout)
		api.POST("/admin/products", admin.CreateProduct)
		api.DELETE("/admin/products/:id", admin.DeleteProduct)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errs.KindNotFound.String(), Message: "Endpoint not found"})
	})
	return r
}
