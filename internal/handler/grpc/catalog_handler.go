package grpc

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"storefront/internal/admin"
	"storefront/internal/errs"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/service"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type CatalogHandler struct {
	service     *service.ProductService
	adminSecret string
}

var GrpcCatalogHandlerTracer = otel.Tracer("GrpcCatalogHandler")

func NewCatalogHandler(svc *service.ProductService, adminSecret string) *CatalogHandler {
	return &CatalogHandler{
		service:     svc,
		adminSecret: adminSecret,
	}
}

func (h *CatalogHandler) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	ctx, span := GrpcCatalogHandlerTracer.Start(ctx, "GrpcCatalogHandler.List")
	defer span.End()
	logger.Info(ctx, "GrpcCatalogHandler.List")

	products, err := h.service.GetAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, 0, len(products))
	for _, p := range products {
		items = append(items, productFields(p))
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return list, nil
}

func (h *CatalogHandler) Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := GrpcCatalogHandlerTracer.Start(ctx, "GrpcCatalogHandler.Insert")
	defer span.End()
	logger.Info(ctx, "GrpcCatalogHandler.Insert")

	if err := h.authorize(ctx); err != nil {
		return nil, err
	}

	fields := req.GetFields()
	form := model.ProductForm{
		Name:     fields["name"].GetStringValue(),
		Price:    priceText(fields["price"]),
		ImageURL: fields["image_url"].GetStringValue(),
	}

	created, err := h.service.Create(ctx, form)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(productFields(*created))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (h *CatalogHandler) Delete(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	ctx, span := GrpcCatalogHandlerTracer.Start(ctx, "GrpcCatalogHandler.Delete")
	defer span.End()
	logger.Info(ctx, "GrpcCatalogHandler.Delete")

	if err := h.authorize(ctx); err != nil {
		return nil, err
	}
	if err := h.service.Delete(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// authorize unlocks a fresh gate with the secret from the call metadata.
// Nothing is remembered between calls.
func (h *CatalogHandler) authorize(ctx context.Context) error {
	var secret string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(AdminSecretHeader); len(v) > 0 {
			secret = v[0]
		}
	}

	gate := admin.NewGate(h.adminSecret)
	if err := gate.Attempt(secret); err != nil {
		logger.Warn(ctx, "Catalog mutation rejected", slog.String("reason", errs.Message(err)))
		return status.Error(codes.PermissionDenied, errs.Message(err))
	}
	return nil
}

func productFields(p model.Product) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"price":     p.Price,
		"image_url": p.ImageURL,
		"available": p.Available,
	}
}

// priceText renders the price the way it would have been typed. Numbers
// with a fraction keep it so validation can reject them.
func priceText(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}

func toStatus(err error) error {
	msg := errs.Message(err)
	switch errs.KindOf(err) {
	case errs.KindValidationFailed, errs.KindIndexOutOfRange:
		return status.Error(codes.InvalidArgument, msg)
	case errs.KindAuthRejected, errs.KindForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case errs.KindNotFound:
		return status.Error(codes.NotFound, msg)
	case errs.KindEmptyCart, errs.KindNotReady:
		return status.Error(codes.FailedPrecondition, msg)
	case errs.KindFetchFailed, errs.KindMutationFailed:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
