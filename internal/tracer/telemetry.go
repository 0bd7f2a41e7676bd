package tracer

import (
	"context"
	"log/slog"
	"storefront/internal/logger"
	"sync"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Options is what the tracer needs from the application config.
type Options struct {
	AppName        string
	Env            string
	TraceRpcURI    string
	ProfilingURI   string
	StdoutFallback bool
}

var (
	once         sync.Once
	shutdownFunc = func() {}
	initErr      error
)

var pyroLogrus = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}()

// Instance installs the global tracer provider once per process. Without a
// trace endpoint spans go to stdout when StdoutFallback is set, and are
// dropped otherwise.
func Instance(globalCtx context.Context, opts Options) (func(), error) {
	once.Do(func() {
		log := logger.Instance()

		exp, err := newExporter(globalCtx, opts)
		if err != nil {
			log.Error("Failed to create trace exporter", slog.String("error", err.Error()))
			initErr = err
			return
		}

		// Register the trace context and baggage propagators so data is propagated across services/processes.
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		if exp == nil {
			log.Info("Tracing exporter disabled")
			return
		}

		// OpenTelemetry Resource (service name, env, etc)
		res, err := resource.New(globalCtx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(opts.AppName),
				attribute.String("env", opts.Env),
			),
		)
		if err != nil {
			log.Error("Failed to create resource", slog.String("error", err.Error()))
			initErr = err
			return
		}

		tp := trace.NewTracerProvider(
			trace.WithBatcher(exp),
			trace.WithResource(res),
		)

		if opts.ProfilingURI != "" {
			// Set tracer provider WITH pyroscope attached
			otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp))
			startProfiler(opts)
		} else {
			otel.SetTracerProvider(tp)
		}

		log.Info("OpenTelemetry Tracer initialized")

		shutdownFunc = func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down tracer provider", slog.String("error", err.Error()))
			}
		}
	})

	return shutdownFunc, initErr
}

func newExporter(ctx context.Context, opts Options) (trace.SpanExporter, error) {
	switch {
	case opts.TraceRpcURI != "":
		// OTLP exporter (Tempo, etc)
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(opts.TraceRpcURI),
			otlptracegrpc.WithCompressor("gzip"),
		)
	case opts.StdoutFallback:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
}

func startProfiler(opts Options) {
	log := logger.Instance()

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ProfilingURI,
		Logger:          pyroLogrus,
		Tags:            map[string]string{"env": opts.Env},
	})
	if err != nil {
		log.Error("Pyroscope failed to start", slog.String("error", err.Error()))
		return
	}
	log.Info("Pyroscope started successfully")
}
