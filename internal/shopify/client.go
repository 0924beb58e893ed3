package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultAPIVersion = "2024-04"
	DefaultTimeout    = 30 * time.Second
)

// Config addresses one store. It is read once by New.
type Config struct {
	AccessToken string
	StoreDomain string
	APIVersion  string
	Timeout     time.Duration
	MaxAttempts int
}

// Doer executes one logical GraphQL operation and returns its data object.
// *Client implements it; tests may substitute their own.
type Doer interface {
	Do(ctx context.Context, op string, req Request) (json.RawMessage, error)
}

// Client is immutable after New and safe for concurrent use.
type Client struct {
	transport *transport
	retry     RetryPolicy
	log       *zap.SugaredLogger
	metrics   *Metrics
	tracer    trace.Tracer
}

// Option customises a Client at construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement's own
// Timeout and Transport apply; Config.Timeout and the tracing transport do not.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.transport.http = hc }
}

// WithEndpoint overrides the GraphQL endpoint URL derived from the config.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.transport.endpoint = url }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log.Named("shopify") }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// New validates cfg and builds a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("shopify: access token is required")
	}
	if strings.TrimSpace(cfg.StoreDomain) == "" {
		return nil, errors.New("shopify: store domain is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	retry := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	c := &Client{
		transport: &transport{
			endpoint: endpointFor(cfg.StoreDomain, cfg.APIVersion),
			token:    cfg.AccessToken,
			http: &http.Client{
				Timeout:   cfg.Timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
		},
		retry:  retry,
		log:    zap.NewNop().Sugar(),
		tracer: otel.Tracer("shoptools/shopify"),
	}
	for _, o := range opts {
		o(c)
	}
	c.retry = c.retry.normalized()
	return c, nil
}

// Endpoint returns the GraphQL URL this client posts to.
func (c *Client) Endpoint() string { return c.transport.endpoint }

// Do sends req under the retry policy and classifies the outcome. Only
// throttling is retried.
func (c *Client) Do(ctx context.Context, op string, req Request) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "shopify."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	policy := c.retry
	policy.OnRetry = func(attempt int, wait time.Duration, cause *Error) {
		c.metrics.retry(op)
		c.log.Warnw("throttled, retrying", "op", op, "attempt", attempt, "wait", wait)
	}

	var data json.RawMessage
	err := policy.Do(ctx, func(ctx context.Context) *Error {
		start := time.Now()
		resp, terr := c.transport.do(ctx, req)
		out, cerr := classify(op, resp, terr)
		c.metrics.observe(op, time.Since(start), cerr)
		c.metrics.budget(resp)
		if cerr != nil {
			return cerr
		}
		data = out
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("shopify.error_kind", err.Kind.String()), attribute.Int("shopify.attempts", err.Attempts))
		c.log.Debugw("graphql call failed", "op", op, "kind", err.Kind.String(), "attempts", err.Attempts, "err", err.Error())
		return nil, err
	}
	c.log.Debugw("graphql call ok", "op", op)
	return data, nil
}

// decode runs one operation and unmarshals its data into out.
func decode(ctx context.Context, d Doer, op string, req Request, out any) error {
	data, err := d.Do(ctx, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindProtocol, Op: op, Message: "unexpected response shape", Err: err}
	}
	return nil
}
