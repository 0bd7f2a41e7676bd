package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"storefront/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

var HttpClientTracer = otel.Tracer("HttpClient")

// maxErrorBody bounds the response text kept on a StatusError.
const maxErrorBody = 512

// HTTPClient sends JSON requests to one base URL with a fixed set of
// default headers, propagating the caller's trace.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// RequestOptions adds per call headers and query parameters.
type RequestOptions struct {
	Context     context.Context
	Headers     map[string]string
	QueryParams map[string]string
}

// StatusError is returned when the server answers with a status of 300 or above.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(map[string]string),
	}
}

// SetDefaultHeaders sets headers sent on every request. Their values are
// never logged.
func (c *HTTPClient) SetDefaultHeaders(headers map[string]string) {
	for k, v := range headers {
		c.headers[k] = v
	}
}

func (c *HTTPClient) Get(path string, result any, opts ...RequestOptions) error {
	return c.do(http.MethodGet, path, nil, result, firstOption(opts))
}

func (c *HTTPClient) Post(path string, body, result any, opts ...RequestOptions) error {
	return c.do(http.MethodPost, path, body, result, firstOption(opts))
}

func (c *HTTPClient) Delete(path string, result any, opts ...RequestOptions) error {
	return c.do(http.MethodDelete, path, nil, result, firstOption(opts))
}

func firstOption(opts []RequestOptions) RequestOptions {
	if len(opts) == 0 {
		return RequestOptions{}
	}
	return opts[0]
}

// do encodes body as JSON, sends the request and decodes a 2xx answer into
// result when result is not nil.
func (c *HTTPClient) do(method, path string, body, result any, opts RequestOptions) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := HttpClientTracer.Start(ctx, "HttpClient."+method)
	defer span.End()

	target, err := c.buildURL(path, opts.QueryParams)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("build url: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	traceID := span.SpanContext().TraceID().String()
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("X-Trace-ID", traceID)

	logger.Info(ctx, "HttpClient request",
		slog.Any("headers", c.headerNames()),
		slog.String("method", method),
		slog.String("url", req.URL.String()),
	)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		logger.Error(ctx, "HttpClient request failed", slog.String("error", err.Error()))
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	logger.Info(ctx, "HttpClient response",
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		span.SetStatus(codes.Error, "unexpected status")
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	if result == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) buildURL(path string, query map[string]string) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *HTTPClient) headerNames() []string {
	names := make([]string, 0, len(c.headers))
	for k := range c.headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
