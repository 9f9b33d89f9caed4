// Package client fetches offset/limit pages from an HTTP page server with
// budget tracking, client-side rate limiting, request deduplication, Redis
// page caching and retries.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/lazylist/pkg/cache"
	"github.com/Sternrassler/lazylist/pkg/logging"
	"github.com/Sternrassler/lazylist/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_client_requests_total",
		Help: "Total page requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lazylist_client_request_duration_seconds",
		Help:    "Page fetch duration in seconds by endpoint",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazylist_client_errors_total",
		Help: "Total page request errors by class",
	}, []string{"class"})

	sharedFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazylist_client_shared_fetches_total",
		Help: "Total page fetches answered by an identical in-flight request",
	})
)

// HeaderTotalCount carries the collection size when the body omits "total".
const HeaderTotalCount = "X-Total-Count"

// Client fetches pages from a single page server.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	tracker    *ratelimit.Tracker
	cache      *cache.Manager
	limiter    *rate.Limiter
	group      singleflight.Group
	retry      RetryConfig
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the page server, e.g. "https://api.example.com".
	BaseURL string

	// UserAgent sent with every request (required).
	UserAgent string

	// Redis enables the page cache and shares the request budget across
	// processes. Optional.
	Redis *redis.Client

	// RateLimit is the client-side request rate in requests per second.
	// 0 disables client-side limiting.
	RateLimit float64

	// Burst is the number of requests allowed above RateLimit at once.
	Burst int

	// Retry
	MaxRetries     int // retries after the first attempt
	InitialBackoff time.Duration

	// Timeout per HTTP attempt.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		RateLimit:      10,
		Burst:          5,
		MaxRetries:     2,
		InitialBackoff: 1 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", ErrInvalidConfig, cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: rate limit must be >= 0 (got %v)", ErrInvalidConfig, cfg.RateLimit)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries must be >= 0 (got %d)", ErrInvalidConfig, cfg.MaxRetries)
	}

	logger := logging.NewLogger(logging.ComponentClient)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		tracker:    ratelimit.NewTracker(cfg.Redis, logging.NewLogger(logging.ComponentRateLimit)),
		cache:      cacheManager,
		limiter:    limiter,
		retry:      retry,
		config:     cfg,
		logger:     logger,
	}, nil
}

// FetchPage returns the window [offset, offset+limit) of endpoint.
// Identical concurrent calls share one request; the returned page must be
// treated as read-only.
func (c *Client) FetchPage(ctx context.Context, endpoint string, offset, limit int) (*RawPage, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid page window offset=%d limit=%d", offset, limit)
	}

	key := cache.PageKey{Endpoint: endpoint, Offset: offset, Limit: limit}

	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		return c.fetchPage(ctx, key)
	})
	if shared {
		sharedFetchesTotal.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.(*RawPage), nil
}

func (c *Client) fetchPage(ctx context.Context, key cache.PageKey) (*RawPage, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(key.Endpoint).Observe(time.Since(startTime).Seconds())
	}()

	logger := logging.WithPage(c.logger, key.Endpoint, key.Offset, key.Limit, -1)

	var cached *cache.Entry
	if c.cache != nil {
		var err error
		cached, err = c.cache.Get(ctx, key)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	if cached != nil && !cache.ShouldMakeConditionalRequest(cached) {
		requestsTotal.WithLabelValues(key.Endpoint, "cached").Inc()
		return decodePage(cached.Data, cached.Headers)
	}

	allowed, err := c.tracker.ShouldAllowRequest(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		logger.Warn().Msg("Request blocked by rate limit budget")
		requestsTotal.WithLabelValues(key.Endpoint, "blocked").Inc()
		return nil, ErrRequestBlocked
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	var (
		status  int
		body    []byte
		headers http.Header
		resp    *http.Response
	)

	retryErr := retryWithBackoff(ctx, c.retry, func() error {
		req, err := c.newRequest(ctx, key)
		if err != nil {
			return err
		}
		if cached != nil {
			cache.AddConditionalHeaders(req, cached)
			cache.ConditionalRequestsSent.Inc()
		}

		logger.Debug().Msg("Requesting page")

		r, err := c.httpClient.Do(req)
		if err != nil {
			logger.Error().Err(err).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(key.Endpoint, "network_error").Inc()
			return err
		}
		defer r.Body.Close()

		if err := c.tracker.UpdateFromHeaders(ctx, r.Header); err != nil {
			logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		requestsTotal.WithLabelValues(key.Endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if r.StatusCode >= 400 {
			class := classifyStatus(r.StatusCode)
			errorsTotal.WithLabelValues(string(class)).Inc()
			logger.Warn().
				Int("status", r.StatusCode).
				Str("error_class", string(class)).
				Msg("Page request error")
			_, _ = io.Copy(io.Discard, r.Body)
			return &HTTPError{
				StatusCode: r.StatusCode,
				ErrorClass: class,
				Message:    r.Status,
				RetryAfter: parseRetryAfter(r.Header),
			}
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return fmt.Errorf("read response body: %w", err)
		}

		status, body, headers, resp = r.StatusCode, b, r.Header, r
		return nil
	}, classifyError)
	if retryErr != nil {
		return nil, retryErr
	}

	if status == http.StatusNotModified {
		if cached == nil {
			return nil, fmt.Errorf("%w: 304 Not Modified without a cached page", ErrMalformedPage)
		}
		logger.Debug().Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if expiresStr := headers.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, key, newExpires); err != nil {
					logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}
		return decodePage(cached.Data, cached.Headers)
	}

	page, err := decodePage(body, headers)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && status == http.StatusOK {
		c.store(ctx, logging.WithPage(c.logger, key.Endpoint, key.Offset, key.Limit, page.Total), key, resp, body)
	}

	return page, nil
}

func (c *Client) newRequest(ctx context.Context, key cache.PageKey) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(key.Endpoint, "/")
	q := u.Query()
	q.Set("offset", strconv.Itoa(key.Offset))
	q.Set("limit", strconv.Itoa(key.Limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) store(ctx context.Context, logger zerolog.Logger, key cache.PageKey, resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache page")
		return
	}
	logger.Debug().
		Dur("ttl", entry.TTL()).
		Msg("Cached page")
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
