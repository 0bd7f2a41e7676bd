package middleware_grpc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"storefront/internal/logger"
	"storefront/internal/telemetry"
)

var tracer = otel.Tracer("GrpcMiddleware")

// UnaryTracingInterceptor continues the caller's trace from the incoming
// metadata, logs request and response and returns the trace id as the
// x-trace-id trailer.
func UnaryTracingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		md, _ := metadata.FromIncomingContext(ctx)
		ctx = otel.GetTextMapPropagator().Extract(ctx, telemetry.MetadataTextMapCarrier(md.Copy()))

		// Start span with gRPC full method name as operation name
		ctx, span := tracer.Start(ctx, info.FullMethod)
		defer span.End()

		var remoteAddr string
		if p, ok := peer.FromContext(ctx); ok {
			remoteAddr = p.Addr.String()
		}

		attrs := logger.LogGRPCRequest(ctx, info.FullMethod, md, req, "incoming::request")
		attrs = append(attrs, slog.String("grpc.remote", remoteAddr))
		logger.Info(ctx, "GrpcMiddleware", attrs...)

		_ = grpc.SetTrailer(ctx, metadata.Pairs("x-trace-id", span.SpanContext().TraceID().String()))

		start := time.Now()
		resp, err = handler(ctx, req)

		code := status.Code(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, code.String())
		}

		attrs = logger.LogGRPCResponse(ctx, info.FullMethod, nil, code, resp, time.Since(start), "incoming::response")
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.Warn(ctx, "GrpcMiddleware", attrs...)
		} else {
			logger.Info(ctx, "GrpcMiddleware", attrs...)
		}
		return resp, err
	}
}

// UnaryClientTracingInterceptor injects the active trace context into the
// outgoing metadata.
func UnaryClientTracingInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx, span := tracer.Start(ctx, method)
		defer span.End()

		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			md = metadata.MD{}
		} else {
			md = md.Copy()
		}
		otel.GetTextMapPropagator().Inject(ctx, telemetry.MetadataTextMapCarrier(md))
		ctx = metadata.NewOutgoingContext(ctx, md)

		logger.Info(ctx, "GrpcClient", logger.LogGRPCRequest(ctx, method, md, req, "outgoing::request")...)

		err := invoker(ctx, method, req, reply, cc, opts...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status.Code(err).String())
		}
		return err
	}
}
