package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const maxRedirects = 10

// Config holds page fetch settings
type Config struct {
	Timeout      time.Duration
	UserAgent    string // empty omits the header
	MaxBodyBytes int64
}

// Fetcher downloads candidate pages over plain HTTP. No scripts are run.
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewFetcher creates a fetcher that follows redirects and enforces a timeout
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 5 << 20
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: maxBody,
		logger:       logger.Named("fetch"),
	}
}

// Fetch returns the page body decoded to UTF-8. Non-2xx statuses and
// transport errors wrap domain.ErrPageFetchFailure; the body of a
// failed response is never read.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrPageFetchFailure, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPageFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrPageFetchFailure, resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: decode charset: %v", domain.ErrPageFetchFailure, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrPageFetchFailure, err)
	}

	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.String("final_url", resp.Request.URL.String()),
		zap.Int("bytes", len(body)))

	return body, nil
}
