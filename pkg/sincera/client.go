// Package sincera provides the Sincera publisher metadata fetcher with
// retry handling, server-directed throttling backoff, and deterministic
// all-null fallback records.
package sincera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adverif/sincera-enrich/pkg/cache"
)

// Prometheus metrics for lookup operations.
var (
	lookupRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sincera_requests_total",
		Help: "Total API requests by identifier kind and status",
	}, []string{"kind", "status"})

	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sincera_lookup_duration_seconds",
		Help:    "Full lookup duration (all attempts) by identifier kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	lookupErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sincera_errors_total",
		Help: "Total lookup errors by class",
	}, []string{"class"})

	lookupRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sincera_retries_total",
		Help: "Total retry attempts by error class",
	}, []string{"error_class"})

	lookupNullResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sincera_null_results_total",
		Help: "Lookups resolved to an all-null record, by reason",
	}, []string{"reason"})
)

// ErrorClass represents a classification of lookup failures.
type ErrorClass string

const (
	// ErrorClassClient represents non-retryable 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents non-retryable 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 throttling responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport-level failures.
	ErrorClassNetwork ErrorClass = "network"
)

// Fixed lookup policy for the Sincera open API.
const (
	// MaxRetries is the total attempt cap per identifier.
	MaxRetries = 3

	// DefaultRetryDelay paces transport-failure retries and stands in
	// for a missing or unparseable Retry-After header.
	DefaultRetryDelay = 2 * time.Second

	// RequestTimeout bounds each individual HTTP attempt.
	RequestTimeout = 10 * time.Second

	// DefaultBaseURL is the publishers endpoint. Lookups append either
	// ?id=<int> or ?domain=<string>.
	DefaultBaseURL = "https://open.sincera.io/api/publishers"
)

// Config holds the client configuration.
type Config struct {
	// Token is the bearer token sent on every request (REQUIRED).
	Token string

	// BaseURL is the publishers endpoint.
	BaseURL string

	// MaxRetries is the total attempt cap per identifier.
	MaxRetries int

	// RetryDelay is the fixed transport-failure backoff and the
	// Retry-After fallback.
	RetryDelay time.Duration

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// Cache is an optional record cache; nil disables caching.
	Cache *cache.Manager
}

// DefaultConfig returns the fixed Sincera lookup policy for a token.
func DefaultConfig(token string) Config {
	return Config{
		Token:      token,
		BaseURL:    DefaultBaseURL,
		MaxRetries: MaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    RequestTimeout,
	}
}

// Client fetches publisher metadata one identifier at a time.
type Client struct {
	httpClient *http.Client
	config     Config
	cache      *cache.Manager
	logger     zerolog.Logger
}

// New creates a new Sincera client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("api token is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = RequestTimeout
	}

	logger := log.With().Str("component", "sincera-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		cache:  cfg.Cache,
		logger: logger,
	}, nil
}

// Fetch resolves one identifier to a Record. It never fails to the
// caller: every error path resolves to the all-null record plus a log
// line. Retrying uses two distinct pacing branches with different
// semantics: 429 responses sleep for the server-directed Retry-After,
// transport failures sleep for the fixed local delay. Any other non-200
// status is terminal since retrying an identical rejected request
// cannot succeed.
func (c *Client) Fetch(ctx context.Context, id Identifier) Record {
	start := time.Now()
	defer func() {
		lookupDuration.WithLabelValues(string(id.Kind)).Observe(time.Since(start).Seconds())
	}()

	reqURL, ok := c.lookupURL(id)
	if !ok {
		lookupNullResultsTotal.WithLabelValues("invalid_identifier").Inc()
		return Record{}
	}

	if rec, ok := c.cachedRecord(ctx, id); ok {
		return rec
	}

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			c.logger.Error().Err(err).Str("identifier", id.String()).Msg("Failed to build request")
			lookupNullResultsTotal.WithLabelValues("request_build").Inc()
			return Record{}
		}
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport branch: fixed local backoff.
			lookupErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			lookupRequestsTotal.WithLabelValues(string(id.Kind), "network_error").Inc()

			c.logger.Warn().
				Err(err).
				Str("identifier", id.String()).
				Int("attempt", attempt).
				Int("max_attempts", c.config.MaxRetries).
				Msg("Request failed")

			if attempt >= c.config.MaxRetries {
				c.logger.Error().
					Str("identifier", id.String()).
					Int("max_attempts", c.config.MaxRetries).
					Msg("Lookup failed after all attempts")
				lookupNullResultsTotal.WithLabelValues("retries_exhausted").Inc()
				return Record{}
			}

			lookupRetriesTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			if !c.pause(ctx, c.config.RetryDelay, id) {
				return Record{}
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			rec, ok := c.handleSuccess(ctx, resp, id)
			lookupRequestsTotal.WithLabelValues(string(id.Kind), "200").Inc()
			if !ok {
				return Record{}
			}
			return rec

		case resp.StatusCode == http.StatusTooManyRequests:
			// Throttling branch: server-directed backoff.
			delay := retryAfter(resp.Header, c.config.RetryDelay)
			drainBody(resp)

			lookupErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			lookupRequestsTotal.WithLabelValues(string(id.Kind), "429").Inc()
			lookupRetriesTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()

			c.logger.Warn().
				Str("identifier", id.String()).
				Dur("retry_after", delay).
				Int("attempt", attempt).
				Int("max_attempts", c.config.MaxRetries).
				Msg("Rate limited by server")

			if !c.pause(ctx, delay, id) {
				return Record{}
			}

		default:
			// Any other status is terminal.
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			drainBody(resp)

			class := classifyStatus(resp.StatusCode)
			lookupErrorsTotal.WithLabelValues(string(class)).Inc()
			lookupRequestsTotal.WithLabelValues(string(id.Kind), strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("identifier", id.String()).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(class)).
				Str("body", string(body)).
				Msg("Lookup rejected")

			lookupNullResultsTotal.WithLabelValues("rejected").Inc()
			return Record{}
		}
	}

	// Retry cap exhausted without a 200.
	c.logger.Error().
		Str("identifier", id.String()).
		Int("max_attempts", c.config.MaxRetries).
		Msg("Lookup failed after all attempts")
	lookupNullResultsTotal.WithLabelValues("retries_exhausted").Inc()
	return Record{}
}

// lookupURL resolves the identifier to a request URL. Invalid and
// missing identifiers report false, which short-circuits to all-null
// with no network call.
func (c *Client) lookupURL(id Identifier) (string, bool) {
	switch id.Kind {
	case KindID:
		return fmt.Sprintf("%s?id=%d", c.config.BaseURL, id.ID), true
	case KindDomain:
		return c.config.BaseURL + "?domain=" + url.QueryEscape(id.Domain), true
	case KindInvalid:
		c.logger.Warn().
			Str("identifier", id.Raw()).
			Msg("Invalid publisher_id, skipping")
		return "", false
	default:
		c.logger.Warn().Msg("No identifier, skipping")
		return "", false
	}
}

// handleSuccess parses a 200 response into a record and caches it. The
// bool is false for terminal null results (empty list, undecodable body).
func (c *Client) handleSuccess(ctx context.Context, resp *http.Response, id Identifier) (Record, bool) {
	body, err := io.ReadAll(resp.Body)
	drainBody(resp)
	if err != nil {
		c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Failed to read response body")
		lookupNullResultsTotal.WithLabelValues("read_body").Inc()
		return Record{}, false
	}

	rec, err := decodeRecord(body)
	if err != nil {
		var de *decodeError
		if errors.As(err, &de) && de.emptyList {
			c.logger.Warn().Str("identifier", id.String()).Msg("Empty result list")
			lookupNullResultsTotal.WithLabelValues("empty_list").Inc()
			return Record{}, false
		}
		c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Failed to decode response")
		lookupNullResultsTotal.WithLabelValues("decode").Inc()
		return Record{}, false
	}

	c.logger.Debug().Str("identifier", id.String()).Msg("Lookup succeeded")
	c.storeCachedRecord(ctx, id, rec)

	return rec, true
}

// cachedRecord returns a previously cached record for the identifier.
func (c *Client) cachedRecord(ctx context.Context, id Identifier) (Record, bool) {
	if c.cache == nil {
		return Record{}, false
	}

	data, err := c.cache.Get(ctx, cacheKeyFor(id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Cache get error")
		}
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Corrupt cache entry")
		return Record{}, false
	}

	c.logger.Debug().Str("identifier", id.String()).Msg("Cache hit")
	return rec, true
}

func (c *Client) storeCachedRecord(ctx context.Context, id Identifier, rec Record) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Failed to marshal record for cache")
		return
	}

	if err := c.cache.Set(ctx, cacheKeyFor(id), data); err != nil {
		c.logger.Warn().Err(err).Str("identifier", id.String()).Msg("Failed to cache record")
	}
}

// pause sleeps for d with context cancellation support. It reports false
// when the context was cancelled, in which case the lookup resolves to
// the all-null record like every other failure.
func (c *Client) pause(ctx context.Context, d time.Duration, id Identifier) bool {
	select {
	case <-ctx.Done():
		c.logger.Warn().
			Str("identifier", id.String()).
			Msg("Context cancelled during retry backoff")
		lookupNullResultsTotal.WithLabelValues("cancelled").Inc()
		return false
	case <-time.After(d):
		return true
	}
}

// cacheKeyFor maps an identifier onto its cache key.
func cacheKeyFor(id Identifier) cache.Key {
	if id.Kind == KindID {
		return cache.Key{Kind: "id", Value: strconv.FormatInt(id.ID, 10)}
	}
	return cache.Key{Kind: "domain", Value: id.Domain}
}

// retryAfter parses the Retry-After header as integer seconds, falling
// back to the fixed default when absent or unparseable.
func retryAfter(headers http.Header, fallback time.Duration) time.Duration {
	v := headers.Get("Retry-After")
	if v == "" {
		return fallback
	}

	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// classifyStatus categorizes a non-200, non-429 status for observability.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
