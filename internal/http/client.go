package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bizrank/review-service/internal/http/ratelimit"
)

// Config configures the provider client
type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	RateLimit    ratelimit.Config
}

// Response is a successful provider response
type Response struct {
	Status int
	Body   []byte
}

// RetryableClient performs provider calls with rate limiting, retry and metrics
type RetryableClient struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.RateLimiter
	policy      ratelimit.RetryPolicy
	sleep       ratelimit.Sleeper
	sink        MetricSink
	config      Config
	logger      zerolog.Logger
}

// NewRetryableClient creates a client. A nil sink discards metric events.
func NewRetryableClient(cfg Config, sink MetricSink, logger *zerolog.Logger) *RetryableClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	if sink == nil {
		sink = NopSink{}
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "provider_client").Logger()
	}
	return &RetryableClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.NewRateLimiter(cfg.RateLimit),
		policy:      cfg.RateLimit.Policy(),
		sleep:       ratelimit.ContextSleep,
		sink:        sink,
		config:      cfg,
		logger:      l,
	}
}

// WithSleeper replaces the backoff sleeper, used by tests
func (c *RetryableClient) WithSleeper(s ratelimit.Sleeper) *RetryableClient {
	c.sleep = s
	return c
}

// WithHTTPClient replaces the underlying HTTP client
func (c *RetryableClient) WithHTTPClient(h *http.Client) *RetryableClient {
	c.httpClient = h
	return c
}

// Request POSTs payload as JSON to endpoint (relative to the base URL).
// Failures are returned as *ratelimit.ClassifiedError.
func (c *RetryableClient) Request(ctx context.Context, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	ctx, span := otel.Tracer("review-service/http").Start(ctx, "provider.request")
	defer span.End()
	span.SetAttributes(attribute.String("endpoint", endpoint))

	resp, err := ratelimit.Execute(ctx, c.policy, c.sleep, func(ctx context.Context, attempt int) (*Response, error) {
		return c.attempt(ctx, endpoint, body, attempt)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

func (c *RetryableClient) attempt(ctx context.Context, endpoint string, body []byte, attempt int) (*Response, error) {
	if err := c.rateLimiter.Throttle(ctx); err != nil {
		return nil, &ratelimit.ClassifiedError{Class: ratelimit.ClassNetwork, Endpoint: endpoint, Err: err}
	}

	c.sink.Record(MetricEvent{Endpoint: endpoint, Kind: EventRequest, Attempt: attempt})
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, &ratelimit.ClassifiedError{Class: ratelimit.ClassClient, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ReviewService/1.0")
	if c.config.APIKey != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ce := ratelimit.Classify(endpoint, 0, err)
		c.recordFailure(endpoint, ce, attempt, time.Since(start))
		return nil, ce
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	latency := time.Since(start)

	if ce := ratelimit.Classify(endpoint, resp.StatusCode, nil); ce != nil {
		c.recordFailure(endpoint, ce, attempt, latency)
		return nil, ce
	}
	if readErr != nil {
		ce := ratelimit.Classify(endpoint, 0, fmt.Errorf("failed to read response body: %w", readErr))
		c.recordFailure(endpoint, ce, attempt, latency)
		return nil, ce
	}

	c.sink.Record(MetricEvent{
		Endpoint: endpoint,
		Kind:     EventSuccess,
		Status:   resp.StatusCode,
		Latency:  latency,
		Attempt:  attempt,
	})
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

func (c *RetryableClient) recordFailure(endpoint string, ce *ratelimit.ClassifiedError, attempt int, latency time.Duration) {
	c.logger.Warn().
		Str("endpoint", endpoint).
		Str("class", string(ce.Class)).
		Int("status", ce.Status).
		Int("attempt", attempt+1).
		Msg("Provider request failed")

	c.sink.Record(MetricEvent{
		Endpoint: endpoint,
		Kind:     EventError,
		Status:   ce.Status,
		Class:    ce.Class,
		Latency:  latency,
		Attempt:  attempt,
	})
}

func (c *RetryableClient) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
