package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	handler "storefront/internal/handler/http"
	"storefront/internal/logger"
	"storefront/internal/media"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/session"
	"storefront/internal/tracer"
	"storefront/internal/version"
)

func main() {
	globalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Instance()
	cfg, err := config.Load()
	if err != nil {
		logger.Error(globalCtx, "Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.ConfigureRemote(cfg.RemoteLogHttpURI, cfg.AppName)

	logger.Info(globalCtx, cfg.AppName,
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("buildTime", version.BuildTime),
		slog.Bool("gracefulShutdown", cfg.IsProduction()),
	)
	logger.Instance().Info("Configuration loaded", cfg.LogAttrs()...)
	cfg.WarnOptional()

	// Initialize telemetry (OpenTelemetry + Pyroscope)
	shutdown, err := tracer.Instance(globalCtx, tracer.Options{
		AppName:        cfg.AppName,
		Env:            cfg.Env,
		TraceRpcURI:    cfg.RemoteTraceRpcURI,
		ProfilingURI:   cfg.RemoteProfilingHttpURI,
		StdoutFallback: !cfg.IsProduction() && cfg.RemoteTraceRpcURI == "",
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
		cu, err := media.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			logger.Error(globalCtx, "Invalid CLOUDINARY_URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		uploader = cu
	}

	// Wiring
	productService := service.NewProductService(store, uploader)
	storefrontService := service.NewStorefrontService(productService, cfg.Store)
	healthService := service.NewHealthService(store, cfg.StoreDriver)

	router := handler.NewRouter(handler.RouterConfig{
		Env:            cfg.Env,
		AllowedOrigins: cfg.AllowedOrigins,
		Cookies:        handler.NewCookieStore(cfg.SessionKey, cfg.SessionIdleTTL, cfg.IsProduction()),
		Sessions:       session.NewManager(cfg.Store.AdminSecret, cfg.SessionIdleTTL),
		Storefront:     storefrontService,
		Health:         healthService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info(globalCtx, "HTTP server running", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(globalCtx, "Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-globalCtx.Done()

	if !cfg.IsProduction() {
		logger.Info(globalCtx, "Received shutdown signal, exiting immediately")
		return
	}

	logger.Info(globalCtx, "Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error(ctx, "Forced shutdown", slog.String("error", err.Error()))
		return
	}
	logger.Info(ctx, "HTTP server exited cleanly")
}
