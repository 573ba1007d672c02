package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 2 << 20

// maxNum is the largest page size the provider accepts
const maxNum = 10

// Config holds search client settings
type Config struct {
	APIKey            string
	EngineID          string
	BaseURL           string
	Timeout           time.Duration
	Num               int
	RequestsPerSecond float64
}

// Client handles communication with the Google Custom Search JSON API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	engineID    string
	baseURL     string
	num         int
	query       *QueryBuilder
	filter      domain.RelevanceFilter
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	disabled    bool
}

// NewClient creates a new search client. When credentials are missing the
// client is disabled: the condition is logged once here and every Search
// returns domain.ErrMissingCredentials without touching the network.
func NewClient(cfg Config, query *QueryBuilder, filter domain.RelevanceFilter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	num := cfg.Num
	if num <= 0 || num > maxNum {
		num = maxNum
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		engineID:    cfg.EngineID,
		baseURL:     cfg.BaseURL,
		num:         num,
		query:       query,
		filter:      filter,
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger.Named("search"),
	}

	if cfg.APIKey == "" || cfg.EngineID == "" {
		c.disabled = true
		c.logger.Error("search disabled", zap.Error(domain.ErrMissingCredentials))
	}

	return c
}

// Search calls the provider once, walks items in provider order, and keeps
// the first maxResults that pass the relevance filter. Every failure is
// returned as a classified error with no partial results.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]domain.SearchResult, error) {
	if c.disabled {
		metrics.SearchRequestsTotal.WithLabelValues("disabled").Inc()
		return nil, domain.ErrMissingCredentials
	}

	q := c.query.Build(term)
	if q == "" || maxResults <= 0 {
		return []domain.SearchResult{}, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrSearchFailure, err)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", q)
	params.Set("num", strconv.Itoa(c.num))

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	c.logger.Debug("search request", zap.String("query", q))

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrSearchFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.classifyStatus(resp.StatusCode, body)
	}

	var searchResp apiResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrSearchFailure, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	results := make([]domain.SearchResult, 0, maxResults)
	for _, item := range searchResp.Items {
		if item.Link == "" {
			continue
		}
		if c.query.IsExcluded(item.Link) || !c.filter.IsRelevant(item.Link, item.Title, term) {
			metrics.CandidatesFilteredTotal.Inc()
			c.logger.Debug("candidate filtered", zap.String("url", item.Link))
			continue
		}

		results = append(results, domain.SearchResult{
			Link:    item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
		if len(results) >= maxResults {
			break
		}
	}

	c.logger.Debug("search done",
		zap.String("query", q),
		zap.Int("items", len(searchResp.Items)),
		zap.Int("kept", len(results)))

	return results, nil
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrSearchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailure, err)
	}

	return resp, nil
}

// classifyStatus maps a non-2xx response to ErrQuotaExceeded or ErrSearchFailure
func (c *Client) classifyStatus(status int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	if status == http.StatusTooManyRequests || (status == http.StatusForbidden && apiErr.isQuotaError()) {
		metrics.SearchRequestsTotal.WithLabelValues("quota").Inc()
		return fmt.Errorf("%w: status %d", domain.ErrQuotaExceeded, status)
	}

	metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
	if apiErr.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", domain.ErrSearchFailure, status, apiErr.Error.Message)
	}
	return fmt.Errorf("%w: status %d", domain.ErrSearchFailure, status)
}
