// Package client queries the order search API, page by page, with bearer
// authentication and optional request pacing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/order-report/pkg/auth"
	"github.com/Sternrassler/order-report/pkg/logging"
	"github.com/Sternrassler/order-report/pkg/order"
	"github.com/Sternrassler/order-report/pkg/pagination"
	"github.com/Sternrassler/order-report/pkg/ratelimit"
	"github.com/Sternrassler/order-report/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// SearchPath is the search endpoint, relative to the API base URL.
const SearchPath = "/order/search"

// maxErrorBody bounds how much of a failed response is kept for logs and errors.
const maxErrorBody = 4096

// Prometheus metrics for order API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_api_requests_total",
		Help: "Total order API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_api_request_duration_seconds",
		Help:    "Order API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_api_errors_total",
		Help: "Total order API errors by class",
	}, []string{"class"})

	apiPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_api_pages_fetched_total",
		Help: "Total search pages fetched",
	})

	apiRecordsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_api_records_fetched_total",
		Help: "Total order records fetched",
	})
)

// TokenSourcer supplies bearer tokens for a query. *auth.TokenProvider implements it.
type TokenSourcer interface {
	TokenSource(ctx context.Context) oauth2.TokenSource
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the order API (REQUIRED).
	BaseURL string

	// Tokens supplies the bearer token (REQUIRED).
	Tokens TokenSourcer

	// HTTPClient is the base client. Its Transport is wrapped with bearer auth.
	HTTPClient *http.Client

	// Search template
	PageSize      int
	MaxCountLimit int
	TimeZone      string

	// RateLimit paces search requests. The zero value is unlimited.
	RateLimit ratelimit.Config
}

// DefaultConfig returns a configuration with the standard search template.
func DefaultConfig(baseURL string, tokens TokenSourcer) Config {
	return Config{
		BaseURL:       baseURL,
		Tokens:        tokens,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		PageSize:      DefaultPageSize,
		MaxCountLimit: DefaultMaxCountLimit,
		TimeZone:      DefaultTimeZone,
		RateLimit:     ratelimit.DefaultConfig(),
	}
}

// Client runs order searches.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	endpoint   string
	logger     zerolog.Logger
}

// New creates a new order API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("page_size must be >= 0 (got %d)", cfg.PageSize)
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := logging.NewLogger(logging.ComponentOrderClient)

	return &Client{
		httpClient: cfg.HTTPClient,
		limiter:    ratelimit.New(cfg.RateLimit, logger),
		config:     cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + SearchPath,
		logger:     logger,
	}, nil
}

// Query fetches every order in the inclusive date range [from, to], applying
// cfg overrides to the search template. Any failed page fails the whole query.
func (c *Client) Query(ctx context.Context, from, to time.Time, cfg *report.Config) (order.ResultSet, error) {
	payload := c.BuildPayload(from, to, cfg)

	c.logger.Info().
		Str("report_id", cfg.ID()).
		Str("view_name", payload.ViewName).
		Str("from", from.Format(DateLayout)).
		Str("to", to.Format(DateLayout)).
		Msg("Starting order search")

	fetcher := &pageFetcher{
		client:  c,
		http:    c.authorizedClient(ctx),
		payload: payload,
	}

	result, err := pagination.Collect(ctx, fetcher, payload.Size)
	if err != nil {
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, err
	}

	c.logger.Info().
		Int("records", len(result.Records)).
		Int("pages", result.Pages).
		Msg("Total records retrieved")

	if result.Records == nil {
		return order.ResultSet{}, nil
	}
	return result.Records, nil
}

// BuildPayload builds the search body with this client's template settings.
func (c *Client) BuildPayload(from, to time.Time, cfg *report.Config) *SearchPayload {
	return BuildPayload(from, to, cfg, PayloadOptions{
		PageSize:      c.config.PageSize,
		MaxCountLimit: c.config.MaxCountLimit,
		TimeZone:      c.config.TimeZone,
	})
}

// authorizedClient returns an http.Client that adds the bearer token. The token
// is obtained once per query and reused while it stays valid.
func (c *Client) authorizedClient(ctx context.Context) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, c.config.Tokens.TokenSource(ctx)),
			Base:   base,
		},
	}
}

// searchResponse is the body of a successful search.
type searchResponse struct {
	Data       []order.Record `json:"data"`
	TotalCount *int           `json:"totalCount"`
}

// pageFetcher implements pagination.PageFetcher over the search endpoint.
type pageFetcher struct {
	client  *Client
	http    *http.Client
	payload *SearchPayload
}

// FetchPage posts the payload for one page. It is never retried.
func (f *pageFetcher) FetchPage(ctx context.Context, page int) (*pagination.Page, error) {
	c := f.client
	endpoint := SearchPath

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	f.payload.Page = page
	body, err := json.Marshal(f.payload)
	if err != nil {
		return nil, fmt.Errorf("encode search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info().Int("page", page).Msg("Searching page")

	startTime := time.Now()
	resp, err := f.http.Do(req)
	apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())

	if err != nil {
		var authErr *auth.AuthenticationError
		if errors.As(err, &authErr) {
			apiRequestsTotal.WithLabelValues(endpoint, "auth_error").Inc()
			return nil, authErr
		}

		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", c.endpoint).Int("page", page).Msg("HTTP request failed")
		return nil, &APIError{
			Endpoint: c.endpoint,
			Page:     page,
			Class:    classify(nil, err),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errClass := classify(resp, nil)
		apiErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Error().
			Str("endpoint", c.endpoint).
			Int("page", page).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Str("body", string(text)).
			Msg("Error in API call")

		return nil, &APIError{
			Endpoint:   c.endpoint,
			Page:       page,
			StatusCode: resp.StatusCode,
			Class:      errClass,
			Body:       string(text),
		}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Error().Err(err).Str("endpoint", c.endpoint).Int("page", page).Msg("Failed to decode search response")
		return nil, &APIError{
			Endpoint:   c.endpoint,
			Page:       page,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Err:        err,
		}
	}

	apiPagesFetched.Inc()
	apiRecordsFetched.Add(float64(len(decoded.Data)))

	result := &pagination.Page{Records: decoded.Data}
	if decoded.TotalCount != nil {
		result.TotalCount = *decoded.TotalCount
		result.HasTotal = true
	}

	c.logger.Debug().
		Int("page", page).
		Int("records", len(decoded.Data)).
		Msg("Retrieved records")

	return result, nil
}
