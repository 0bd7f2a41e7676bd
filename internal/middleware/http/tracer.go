package middleware_http

import (
	"bytes"
	"net/http"
	"time"

	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

var tracer = otel.Tracer("HttpMiddleware")

// bodyWriter captures the response body (up to MaxBodyLogged) for logging.
type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *bodyWriter) capture(b []byte) {
	if w.buf.Len() >= logger.MaxBodyLogged {
		return
	}
	toCopy := logger.MaxBodyLogged - w.buf.Len()
	if len(b) < toCopy {
		toCopy = len(b)
	}
	w.buf.Write(b[:toCopy])
}

// Trace wraps every request in a server span continuing any incoming W3C
// trace context, logs request and response, and echoes the trace id in the
// X-Trace-ID response header.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := c.FullPath()
		if route == "" {
			route = r.URL.Path
		}
		ctx, span := tracer.Start(ctx, r.Method+" "+route)
		defer func() {
			if rec := recover(); rec != nil {
				span.RecordError(errFromRecover(rec))
				span.SetStatus(codes.Error, "panic occurred")
				span.End()
				panic(rec)
			}
			span.End()
		}()
		c.Request = r.WithContext(ctx)

		attrs := logger.LogHTTPRequest(ctx, c.Request, "incoming::request")
		logger.Info(ctx, "HTTP", attrs...)

		bw := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		start := time.Now()

		c.Header("X-Trace-ID", span.SpanContext().TraceID().String())

		c.Next()

		status := bw.Status()
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, "internal server error")
		case status >= http.StatusBadRequest:
			span.SetStatus(codes.Error, "client error")
		default:
			span.SetStatus(codes.Ok, "")
		}

		attrs = logger.LogHTTPResponse(ctx, c.Request, bw.Header(), status, &bw.buf, time.Since(start).Milliseconds(), "incoming::response")
		logger.Info(ctx, "HTTP", attrs...)
	}
}

// errFromRecover converts panic value into error for span recording.
func errFromRecover(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &panicError{rec}
}

// panicError implements error interface for non-error panic values.
type panicError struct {
	value interface{}
}

func (p *panicError) Error() string {
	return "panic: " + stringify(p.value)
}

func stringify(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	default:
		return "unknown panic"
	}
}
