package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pricelens/backend/internal/domain"
	logpkg "github.com/pricelens/backend/internal/logger"
	"github.com/pricelens/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// EnrichmentConfig holds the per-product aggregation policy
type EnrichmentConfig struct {
	MaxSites        int
	OverFetchFactor int
	CacheTTL        time.Duration
	Workers         int
	AbortOnQuota    bool

	// FetchPacer spaces page fetches, ProductPacer spaces products in a
	// batch. Nil disables pacing.
	FetchPacer   domain.Pacer
	ProductPacer domain.Pacer
}

// EnrichmentService finds priced offers for catalog products.
// Flow: check cache -> search -> fetch candidates in order -> stop once
// enough sites are priced.
type EnrichmentService struct {
	cache        domain.CacheRepository
	searchClient domain.SearchClient
	extractor    domain.PriceExtractor
	config       EnrichmentConfig
	logger       *zap.Logger
}

// BatchSummary describes one EnrichCatalog run
type BatchSummary struct {
	RunID          string
	Products       int
	PricedProducts int
	TotalSites     int
	PricedSites    int
	SearchFailures int
	QuotaExceeded  int
	Aborted        bool
}

// NewEnrichmentService creates a new enrichment service with dependencies
func NewEnrichmentService(
	cache domain.CacheRepository,
	searchClient domain.SearchClient,
	extractor domain.PriceExtractor,
	config EnrichmentConfig,
	logger *zap.Logger,
) *EnrichmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxSites <= 0 {
		config.MaxSites = 3
	}
	if config.OverFetchFactor <= 0 {
		config.OverFetchFactor = 2
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.FetchPacer == nil {
		config.FetchPacer = noPacer{}
	}
	if config.ProductPacer == nil {
		config.ProductPacer = noPacer{}
	}

	return &EnrichmentService{
		cache:        cache,
		searchClient: searchClient,
		extractor:    extractor,
		config:       config,
		logger:       logger.Named("enricher"),
	}
}

// MaxSites returns the configured default bound
func (s *EnrichmentService) MaxSites() int {
	return s.config.MaxSites
}

// Enrich returns a copy of product with Sites replaced. A non-positive
// maxSites uses the configured default.
//
// Search failures leave Sites empty and are returned so callers can tell
// "nothing found" from "could not search"; the returned product is always
// usable. Page failures never surface here: they become sentinel entries.
func (s *EnrichmentService) Enrich(ctx context.Context, product domain.Product, maxSites int) (domain.Product, error) {
	out := product.Clone()
	out.Sites = []domain.SiteResult{}

	term := strings.TrimSpace(product.Name)
	if term == "" {
		return out, nil
	}
	if maxSites <= 0 {
		maxSites = s.config.MaxSites
	}

	log := logpkg.FromContext(ctx, s.logger).With(zap.String("product", term))

	candidates, err := s.searchCandidates(ctx, term, maxSites*s.config.OverFetchFactor)
	if err != nil {
		log.Warn("search failed", zap.Error(err))
		return out, err
	}
	if len(candidates) == 0 {
		log.Info("no candidates")
		return out, nil
	}

	priced := 0
	for start := 0; start < len(candidates) && priced < maxSites; start += s.config.Workers {
		end := min(start+s.config.Workers, len(candidates))
		window := candidates[start:end]

		outcomes, err := s.fetchWindow(ctx, window)
		if err != nil {
			return out, err
		}

		for i, candidate := range window {
			site := domain.SiteResult{
				URL:   candidate.Link,
				Title: candidate.Title,
				Price: domain.PriceNotFound,
			}
			if outcomes[i].err == nil {
				site.Price = outcomes[i].price
				priced++
				log.Info("price found",
					zap.String("domain", domainLabel(candidate.Link)),
					zap.String("price", site.Price))
			} else {
				log.Info("price not found",
					zap.String("domain", domainLabel(candidate.Link)),
					zap.Error(outcomes[i].err))
			}
			out.Sites = append(out.Sites, site)

			if priced >= maxSites {
				break
			}
		}
	}

	return out, nil
}

// EnrichCatalog enriches every product in order. Quota exhaustion is
// counted and, with AbortOnQuota, stops further searches. A cancelled
// context stops the run; products not reached are copied through unchanged.
func (s *EnrichmentService) EnrichCatalog(ctx context.Context, catalog *domain.Catalog, maxSites int) (*domain.Catalog, *BatchSummary, error) {
	summary := &BatchSummary{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", summary.RunID))
	ctx = logpkg.ContextWithLogger(ctx, log)

	if catalog == nil {
		catalog = &domain.Catalog{}
	}

	total := len(catalog.Products)
	out := &domain.Catalog{Products: make([]domain.Product, 0, total)}

	log.Info("batch started", zap.Int("products", total))

	for i, product := range catalog.Products {
		if i > 0 && !summary.Aborted {
			if err := s.config.ProductPacer.Wait(ctx); err != nil {
				out.Products = append(out.Products, copyRemaining(catalog.Products[i:])...)
				return out, summary, err
			}
		}

		if summary.Aborted {
			skipped := product.Clone()
			skipped.Sites = []domain.SiteResult{}
			out.Products = append(out.Products, skipped)
			summary.Products++
			continue
		}

		log.Info(fmt.Sprintf("[%d/%d] enriching", i+1, total), zap.String("product", product.Name))

		enriched, err := s.Enrich(ctx, product, maxSites)
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Products = append(out.Products, copyRemaining(catalog.Products[i:])...)
			return out, summary, ctxErr
		}

		switch {
		case errors.Is(err, domain.ErrQuotaExceeded):
			summary.QuotaExceeded++
			if s.config.AbortOnQuota {
				summary.Aborted = true
				log.Warn("search quota exhausted, skipping remaining products",
					zap.Int("remaining", total-i-1))
			}
		case err != nil:
			summary.SearchFailures++
		}

		out.Products = append(out.Products, enriched)
		summary.Products++
		summary.TotalSites += len(enriched.Sites)
		if n := enriched.PricedCount(); n > 0 {
			summary.PricedProducts++
			summary.PricedSites += n
		}
	}

	log.Info("batch finished",
		zap.Int("products", summary.Products),
		zap.Int("priced_products", summary.PricedProducts),
		zap.Int("total_sites", summary.TotalSites),
		zap.Int("search_failures", summary.SearchFailures),
		zap.Int("quota_exceeded", summary.QuotaExceeded),
		zap.Bool("aborted", summary.Aborted))

	return out, summary, nil
}

// fetchOutcome is the extraction result for one candidate
type fetchOutcome struct {
	price string
	err   error
}

// fetchWindow extracts prices for a window of candidates. With one worker
// it runs inline; otherwise candidates are fetched concurrently and the
// outcomes keep candidate order. Only pacing cancellation is returned.
func (s *EnrichmentService) fetchWindow(ctx context.Context, window []domain.SearchResult) ([]fetchOutcome, error) {
	outcomes := make([]fetchOutcome, len(window))

	if len(window) == 1 {
		if err := s.config.FetchPacer.Wait(ctx); err != nil {
			return nil, err
		}
		price, err := s.extractor.ExtractPrice(ctx, window[0].Link)
		outcomes[0] = fetchOutcome{price: price, err: err}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, candidate := range window {
		g.Go(func() error {
			if err := s.config.FetchPacer.Wait(gctx); err != nil {
				return err
			}
			price, err := s.extractor.ExtractPrice(gctx, candidate.Link)
			outcomes[i] = fetchOutcome{price: price, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// searchCandidates returns the filtered candidate list, cache first.
// Only successful searches are cached.
func (s *EnrichmentService) searchCandidates(ctx context.Context, term string, limit int) ([]domain.SearchResult, error) {
	key := generateCacheKey(term, limit)

	if cached, err := s.getFromCache(ctx, key); err == nil {
		metrics.SearchRequestsTotal.WithLabelValues("cached").Inc()
		return cached, nil
	}

	results, err := s.searchClient.Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}

	if err := s.setInCache(ctx, key, results); err != nil {
		logpkg.FromContext(ctx, s.logger).Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return results, nil
}

// generateCacheKey creates a normalized cache key.
// Format: "search:{normalized_term}:{limit}"
func generateCacheKey(term string, limit int) string {
	return fmt.Sprintf("search:%s:%d", normalizeForCacheKey(term), limit)
}

// normalizeForCacheKey lowercases and collapses whitespace. Punctuation is
// kept: the cached list was filtered against the term's first word.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a candidate list from cache
func (s *EnrichmentService) getFromCache(ctx context.Context, key string) ([]domain.SearchResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	if err := json.Unmarshal(value, &results); err != nil {
		return nil, domain.ErrCacheMiss
	}

	return results, nil
}

// setInCache stores a candidate list in cache
func (s *EnrichmentService) setInCache(ctx context.Context, key string, results []domain.SearchResult) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.config.CacheTTL)
}

// domainLabel strips protocol and path from a link
func domainLabel(link string) string {
	label := link
	if i := strings.Index(label, "://"); i >= 0 {
		label = label[i+3:]
	}
	if i := strings.IndexAny(label, "/?#"); i >= 0 {
		label = label[:i]
	}
	return label
}

func copyRemaining(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p.Clone())
	}
	return out
}

// noPacer never blocks
type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return ctx.Err() }
