package service

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/errs"
	"storefront/internal/logger"
	"storefront/internal/media"
	"storefront/internal/model"
	"storefront/internal/repository"

	"go.opentelemetry.io/otel"
)

// ProductService is the only caller of the product store. It validates admin
// input and turns store failures into FetchFailed or MutationFailed.
type ProductService struct {
	repo     repository.ProductStore
	uploader media.Uploader
}

var ProductServiceTracer = otel.Tracer("ProductService")

// NewProductService wires the store. uploader may be nil, which disables
// image uploads.
func NewProductService(repo repository.ProductStore, uploader media.Uploader) *ProductService {
	return &ProductService{repo: repo, uploader: uploader}
}

func (s *ProductService) GetAll(ctx context.Context) ([]model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.GetAll")
	defer span.End()
	logger.Info(ctx, "Service")

	products, err := s.repo.ListAll(ctx)
	if err != nil {
		logger.Error(ctx, "Failed to load products", slog.String("error", err.Error()))
		return nil, errs.Wrap(errs.KindFetchFailed, errs.ErrMsgFetchFailed, err)
	}
	return products, nil
}

// Create validates form, uploads an attached image and inserts the product
// as available. Nothing reaches the store when validation fails.
func (s *ProductService) Create(ctx context.Context, form model.ProductForm) (*model.Product, error) {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Create")
	defer span.End()
	logger.Info(ctx, "Service")

	p, err := ValidateForm(form)
	if err != nil {
		return nil, err
	}

	if len(form.Image) > 0 {
		if s.uploader == nil {
			return nil, errs.New(errs.KindValidationFailed, errs.ErrMsgUploadsDisabled)
		}
		imageURL, err := s.uploader.Upload(ctx, form.ImageName, form.Image)
		if err != nil {
			return nil, errs.Wrap(errs.KindMutationFailed, errs.ErrMsgUploadFailed, err)
		}
		p.ImageURL = imageURL
	}

	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		logger.Error(ctx, "Failed to insert product", slog.String("error", err.Error()))
		return nil, errs.Wrap(errs.KindMutationFailed, errs.ErrMsgMutationFailed, err)
	}
	return created, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx, span := ProductServiceTracer.Start(ctx, "ProductService.Delete")
	defer span.End()
	logger.Info(ctx, "Service", slog.String("id", id))

	if strings.TrimSpace(id) == "" {
		return errs.New(errs.KindValidationFailed, errs.ErrMsgMissingID)
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.Error(ctx, "Failed to delete product", slog.String("error", err.Error()))
		return errs.Wrap(errs.KindMutationFailed, errs.ErrMsgMutationFailed, err)
	}
	return nil
}

// ValidateForm checks the admin panel input and converts it into the record
// sent to the store. New products are always available.
func ValidateForm(form model.ProductForm) (model.NewProduct, error) {
	name := strings.TrimSpace(form.Name)
	price := strings.TrimSpace(form.Price)
	if name == "" || price == "" {
		return model.NewProduct{}, errs.New(errs.KindValidationFailed, errs.ErrMsgMissingFields)
	}

	parsed, err := strconv.ParseInt(price, 10, 64)
	if err != nil || parsed < 0 {
		return model.NewProduct{}, errs.New(errs.KindValidationFailed, errs.ErrMsgPriceInvalid)
	}
	if parsed > model.MaxPrice {
		return model.NewProduct{}, errs.New(errs.KindValidationFailed, errs.ErrMsgPriceTooHigh)
	}

	imageURL := strings.TrimSpace(form.ImageURL)
	if imageURL != "" && !isWebURL(imageURL) {
		return model.NewProduct{}, errs.New(errs.KindValidationFailed, errs.ErrMsgImageURLInvalid)
	}

	return model.NewProduct{
		Name:      name,
		Price:     parsed,
		ImageURL:  imageURL,
		Available: true,
	}, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
