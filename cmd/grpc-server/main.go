package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"storefront/internal/config"
	grpcHandler "storefront/internal/handler/grpc"
	"storefront/internal/logger"
	"storefront/internal/media"
	middleware_grpc "storefront/internal/middleware/grpc"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/tracer"
	"storefront/internal/version"
)

func main() {
	// Create cancellable context for graceful shutdown
	globalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Instance()
	cfg, err := config.Load()
	if err != nil {
		logger.Error(globalCtx, "Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.ConfigureRemote(cfg.RemoteLogHttpURI, cfg.AppName+"-catalog")

	logger.Info(globalCtx, cfg.AppName,
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("buildTime", version.BuildTime),
		slog.Bool("gracefulShutdown", cfg.IsProduction()),
	)
	cfg.WarnOptional()

	shutdown, err := tracer.Instance(globalCtx, tracer.Options{
		AppName:      cfg.AppName + "-catalog",
		Env:          cfg.Env,
		TraceRpcURI:  cfg.RemoteTraceRpcURI,
		ProfilingURI: cfg.RemoteProfilingHttpURI,
	})
	if err != nil {
		logger.Warn(globalCtx, "Telemetry disabled", slog.String("error", err.Error()))
	}
	defer shutdown()

	store, closeStore, err := repository.Open(globalCtx, cfg)
	if err != nil {
		logger.Error(globalCtx, "Failed to open product store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer closeStore()

	var uploader media.Uploader
	if cfg.CloudinaryURL != "" {
		if cu, err := media.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder); err == nil {
			uploader = cu
		} else {
			logger.Warn(globalCtx, "Image uploads disabled", slog.String("error", err.Error()))
		}
	}

	// Wiring
	productService := service.NewProductService(store, uploader)
	catalogHandler := grpcHandler.NewCatalogHandler(productService, cfg.Store.AdminSecret)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware_grpc.UnaryTracingInterceptor()),
	)
	grpcHandler.RegisterCatalogServer(grpcServer, catalogHandler)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		logger.Error(globalCtx, "failed to listen", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info(globalCtx, "gRPC server running", slog.String("port", cfg.GrpcPort))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error(globalCtx, "failed to serve", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-globalCtx.Done()

	if !cfg.IsProduction() {
		logger.Info(globalCtx, "Received shutdown signal, stopping immediately")
		grpcServer.Stop()
		return
	}
	logger.Info(globalCtx, "Shutting down gRPC server")
	grpcServer.GracefulStop()
	logger.Info(globalCtx, "gRPC server exited cleanly")
}
