package snapshots

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// Client defaults.
const (
	DefaultBaseURL    = "http://127.0.0.1:8000"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2

	defaultRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 2 * time.Second

	// maxBodySize caps how much of a response body is read (32 MB).
	maxBodySize = 32 << 20
	// maxErrorBody caps the response excerpt kept in a StatusError.
	maxErrorBody = 512

	userAgent  = "timewarp-client/1.0"
	tracerName = "timewarp.snapshots"
	spanPrefix = "timewarp."

	opTimeline = "api.timeline"
	opSnapshot = "api.snapshot"
	opDiff     = "api.diff"

	// Route templates recorded on spans in place of concrete URLs.
	routeTimeline = "/timeline"
	routeSnapshot = "/snapshot/{commit}"
	routeDiff     = "/diff/{commit}/{path}"
)

// ErrBadBaseURL is returned by NewClient for a base URL that is not absolute http(s).
var ErrBadBaseURL = errors.New("invalid base url")

// ClientOptions configures a Client. Zero values use the package defaults.
type ClientOptions struct {
	// BaseURL is the API root, e.g. "http://127.0.0.1:8000". A trailing
	// slash is ignored.
	BaseURL string

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after a network error or 5xx.
	// Negative disables retries.
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles per retry up to 2s.
	RetryDelay time.Duration

	// RateLimit is the sustained request rate in requests per second.
	// Zero means unlimited.
	RateLimit float64

	// Burst is the limiter bucket size. Values below 1 are treated as 1.
	Burst int

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger receives retry and bad-record diagnostics. Nil uses slog.Default.
	Logger *slog.Logger

	// Tracer creates one client span per call. Nil uses the global provider.
	Tracer trace.Tracer

	// Metrics counts calls per operation. Nil disables metrics.
	Metrics *observability.CallMetrics
}

// Client fetches timelines, snapshots and diffs over HTTP. It retries
// network errors and 5xx responses with exponential backoff; 4xx responses
// are returned immediately.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *observability.CallMetrics
}

// NewClient validates opts and returns a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBaseURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadBaseURL, opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	c := &Client{
		baseURL:    base,
		http:       httpClient,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     loggerOrDefault(opts.Logger),
		tracer:     tracer,
		metrics:    opts.Metrics,
	}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}

	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeline fetches GET /timeline.
func (c *Client) Timeline(ctx context.Context) ([]scene.CommitRecord, error) {
	body, err := c.get(ctx, opTimeline, routeTimeline, c.baseURL+"/timeline")
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	return DecodeTimeline(bytes.NewReader(body), c.logger)
}

// Snapshot fetches GET /snapshot/{commitID}. An unknown commit yields an
// error matching ErrNotFound.
func (c *Client) Snapshot(ctx context.Context, commitID string) (*scene.Snapshot, error) {
	if commitID == "" {
		return nil, ErrEmptyCommitID
	}

	body, err := c.get(ctx, opSnapshot, routeSnapshot, c.baseURL+"/snapshot/"+url.PathEscape(commitID))
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot %s: %w", commitID, err)
	}

	files, err := DecodeFiles(bytes.NewReader(body), c.logger)
	if err != nil {
		return nil, err
	}

	return scene.NewSnapshot(commitID, files), nil
}

// Diff fetches GET /diff/{commitID}/{path}. The path keeps its slashes.
func (c *Client) Diff(ctx context.Context, commitID, path string) (Diff, error) {
	if commitID == "" {
		return Diff{}, ErrEmptyCommitID
	}

	if path == "" {
		return Diff{}, ErrEmptyPath
	}

	rawURL := c.baseURL + "/diff/" + url.PathEscape(commitID) + "/" + escapeSegments(path)

	body, err := c.get(ctx, opDiff, routeDiff, rawURL)
	if err != nil {
		return Diff{}, fmt.Errorf("fetch diff %s %s: %w", commitID, path, err)
	}

	return DecodeDiff(bytes.NewReader(body))
}

// get wraps fetch with a client span and call metrics. The span carries the
// route template only; file paths and commit ids stay out of telemetry.
func (c *Client) get(ctx context.Context, op, route, rawURL string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, spanPrefix+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("http.route", route),
		),
	)
	defer span.End()

	end := c.metrics.Start(ctx, op)

	body, err := c.fetch(ctx, rawURL)
	end(err != nil)

	if err != nil {
		spanErr := redactURL(err)

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			span.SetAttributes(attribute.Int("http.response.status_code", statusErr.StatusCode))
		}

		span.RecordError(spanErr)
		span.SetStatus(codes.Error, spanErr.Error())
	}

	return body, err
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := min(c.retryDelay*time.Duration(1<<(attempt-1)), maxRetryDelay)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("wait for retry: %w", ctx.Err())
			case <-time.After(delay):
			}

			c.logger.DebugContext(ctx, "retrying request", "url", rawURL, "attempt", attempt+1, "error", lastErr)
		}

		if c.limiter != nil {
			waitErr := c.limiter.Wait(ctx)
			if waitErr != nil {
				return nil, fmt.Errorf("rate limit: %w", waitErr)
			}
		}

		body, retry, err := c.attempt(ctx, rawURL)
		if err == nil {
			return body, nil
		}

		if !retry {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// attempt performs one GET. The bool reports whether the failure is retryable.
func (c *Client) attempt(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("request: %w", ctx.Err())
		}

		return nil, true, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return data, false, nil
	}

	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		URL:        rawURL,
		Body:       excerpt(data),
	}

	return nil, resp.StatusCode >= http.StatusInternalServerError, statusErr
}

// redactURL strips the request URL out of err for telemetry. Both url.Error
// and StatusError quote it.
func redactURL(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("status %d: %w", statusErr.StatusCode, statusErr.Unwrap())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}

func escapeSegments(p string) string {
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}

	return s
}
