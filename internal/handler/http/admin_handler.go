package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

// MaxImageBytes bounds an uploaded product image.
const MaxImageBytes = 5 << 20

type AdminHandler struct {
	service *service.StorefrontService
}

var HttpAdminHandlerTracer = otel.Tracer("HttpAdminHandler")

func NewAdminHandler(service *service.StorefrontService) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

type loginRequest struct {
	Secret string `json:"secret"`
}

// productRequest accepts the price either as typed text or as a JSON number.
type productRequest struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	ImageURL string          `json:"image_url"`
}

func (r productRequest) form() model.ProductForm {
	return model.ProductForm{
		Name:     r.Name,
		Price:    rawPrice(r.Price),
		ImageURL: r.ImageURL,
	}
}

func rawPrice(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (h *AdminHandler) OpenLogin(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.SetLoginOpen(c.Request.Context(), currentSession(c), true))
}

func (h *AdminHandler) CloseLogin(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.SetLoginOpen(c.Request.Context(), currentSession(c), false))
}

func (h *AdminHandler) Login(c *gin.Context) {
	ctx, span := HttpAdminHandlerTracer.Start(c.Request.Context(), "HttpAdminHandler.Login")
	defer span.End()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "secret is required")
		return
	}

	view, err := h.service.Login(ctx, currentSession(c), req.Secret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AdminHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Logout(c.Request.Context(), currentSession(c)))
}

// CreateProduct takes JSON, or a multipart form with an optional image file.
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	ctx, span := HttpAdminHandlerTracer.Start(c.Request.Context(), "HttpAdminHandler.CreateProduct")
	defer span.End()
	logger.Info(ctx, "HttpAdminHandler")

	var form model.ProductForm
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		f, ok := multipartForm(c)
		if !ok {
			return
		}
		form = f
	} else {
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid product payload")
			return
		}
		form = req.form()
	}

	product, err := h.service.CreateProduct(ctx, currentSession(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func multipartForm(c *gin.Context) (model.ProductForm, bool) {
	form := model.ProductForm{
		Name:     c.PostForm("name"),
		Price:    c.PostForm("price"),
		ImageURL: c.PostForm("image_url"),
	}

	fh, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return form, true
	}
	if err != nil {
		badRequest(c, "invalid multipart form")
		return form, false
	}
	if fh.Size > MaxImageBytes {
		badRequest(c, "image is too large")
		return form, false
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable image")
		return form, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes))
	if err != nil {
		badRequest(c, "unreadable image")
		return form, false
	}
	form.Image = data
	form.ImageName = fh.Filename
	return form, true
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	ctx, span := HttpAdminHandlerTracer.Start(c.Request.Context(), "HttpAdminHandler.DeleteProduct")
	defer span.End()

	if err := h.service.DeleteProduct(ctx, currentSession(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
