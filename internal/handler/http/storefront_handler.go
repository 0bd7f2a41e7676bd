package http

import (
	"net/http"
	"strconv"

	"storefront/internal/errs"
	"storefront/internal/logger"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

type StorefrontHandler struct {
	service *service.StorefrontService
}

var HttpStorefrontHandlerTracer = otel.Tracer("HttpStorefrontHandler")

func NewStorefrontHandler(service *service.StorefrontService) *StorefrontHandler {
	return &StorefrontHandler{
		service: service,
	}
}

type storefrontResponse struct {
	service.StorefrontView
	Notice string `json:"notice,omitempty"`
}

type productsResponse struct {
	service.ProductsView
	Notice string `json:"notice,omitempty"`
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func (h *StorefrontHandler) Storefront(c *gin.Context) {
	ctx, span := HttpStorefrontHandlerTracer.Start(c.Request.Context(), "HttpStorefrontHandler.Storefront")
	defer span.End()
	logger.Info(ctx, "HttpStorefrontHandler")

	c.JSON(http.StatusOK, storefrontResponse{
		StorefrontView: h.service.Storefront(ctx, currentSession(c)),
		Notice:         loadNotice(c),
	})
}

func (h *StorefrontHandler) Products(c *gin.Context) {
	ctx, span := HttpStorefrontHandlerTracer.Start(c.Request.Context(), "HttpStorefrontHandler.Products")
	defer span.End()
	logger.Info(ctx, "HttpStorefrontHandler")

	c.JSON(http.StatusOK, productsResponse{
		ProductsView: h.service.Products(ctx, currentSession(c)),
		Notice:       loadNotice(c),
	})
}

func (h *StorefrontHandler) Cart(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Cart(c.Request.Context(), currentSession(c)))
}

func (h *StorefrontHandler) AddToCart(c *gin.Context) {
	ctx, span := HttpStorefrontHandlerTracer.Start(c.Request.Context(), "HttpStorefrontHandler.AddToCart")
	defer span.End()

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id is required")
		return
	}

	view, err := h.service.AddToCart(ctx, currentSession(c), req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StorefrontHandler) RemoveFromCart(c *gin.Context) {
	ctx, span := HttpStorefrontHandlerTracer.Start(c.Request.Context(), "HttpStorefrontHandler.RemoveFromCart")
	defer span.End()

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, errs.Newf(errs.KindIndexOutOfRange, "%s: %s", errs.ErrMsgIndexOutOfRange, c.Param("index")))
		return
	}

	view, err := h.service.RemoveFromCart(ctx, currentSession(c), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StorefrontHandler) OpenCart(c *gin.Context) {
	h.setCartOpen(c, true)
}

func (h *StorefrontHandler) CloseCart(c *gin.Context) {
	h.setCartOpen(c, false)
}

func (h *StorefrontHandler) setCartOpen(c *gin.Context, open bool) {
	view, err := h.service.SetCartOpen(c.Request.Context(), currentSession(c), open)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StorefrontHandler) PreviewOrder(c *gin.Context) {
	msg, err := h.service.PreviewOrder(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *StorefrontHandler) PlaceOrder(c *gin.Context) {
	ctx, span := HttpStorefrontHandlerTracer.Start(c.Request.Context(), "HttpStorefrontHandler.PlaceOrder")
	defer span.End()

	msg, err := h.service.PlaceOrder(ctx, currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// RedirectOrder sends the browser to the messaging app with the order
// prefilled. The cart is left as is.
func (h *StorefrontHandler) RedirectOrder(c *gin.Context) {
	msg, err := h.service.PreviewOrder(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, msg.Link)
}

func (h *StorefrontHandler) ResetSession(c *gin.Context) {
	h.service.Reset(c.Request.Context(), currentSession(c))
	c.Status(http.StatusNoContent)
}
