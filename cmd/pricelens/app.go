package main

import (
	"fmt"
	"io"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/catalog"
	"github.com/pricelens/backend/internal/infrastructure/page"
	"github.com/pricelens/backend/internal/infrastructure/pacing"
	"github.com/pricelens/backend/internal/infrastructure/search"
	"github.com/pricelens/backend/internal/usecase"
	"go.uber.org/zap"
)

// app holds the wired pipeline
type app struct {
	enricher *usecase.EnrichmentService
	catalogs *catalog.FileRepository
	cache    cache.Store
	logger   *zap.Logger
}

// newApp builds every dependency from cfg
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := cache.New(cfg.Cache.Type, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if p, ok := store.(interface{ Prune() (int, error) }); ok {
		if n, err := p.Prune(); err != nil {
			logger.Warn("cache prune failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned expired cache entries", zap.Int("count", n))
		}
	}

	filter := usecase.NewRelevanceFilter(usecase.RelevanceConfig{
		Blocklist: cfg.Filter.Blocklist,
		Allowlist: cfg.Filter.Allowlist,
	})

	searchClient := search.NewClient(search.Config{
		APIKey:            cfg.Search.APIKey,
		EngineID:          cfg.Search.EngineID,
		BaseURL:           cfg.Search.BaseURL,
		Timeout:           cfg.Search.Timeout,
		Num:               cfg.Search.Num,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
	}, search.NewQueryBuilder(cfg.Search.QueryMode, cfg.Search.ExcludedSites), filter, logger)

	fetcher := page.NewFetcher(page.Config{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, logger)

	enricher := usecase.NewEnrichmentService(
		store,
		searchClient,
		usecase.NewPriceExtractor(fetcher, logger),
		usecase.EnrichmentConfig{
			MaxSites:        cfg.Enrich.MaxSites,
			OverFetchFactor: cfg.Enrich.OverFetchFactor,
			CacheTTL:        cfg.Cache.TTL,
			Workers:         cfg.Enrich.Workers,
			AbortOnQuota:    cfg.Enrich.AbortOnQuota,
			FetchPacer:      pacing.New(cfg.Enrich.FetchDelay),
			ProductPacer:    pacing.New(cfg.Enrich.ProductDelay),
		},
		logger,
	)

	return &app{
		enricher: enricher,
		catalogs: catalog.NewFileRepository(logger),
		cache:    store,
		logger:   logger,
	}, nil
}

// Close releases the cache
func (a *app) Close() error {
	return a.cache.Close()
}

// printConfig writes the effective configuration with secrets masked
func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Environment:     %s\n", cfg.Server.Environment)
	fmt.Fprintf(w, "Port:            %s\n", cfg.Server.Port)
	fmt.Fprintf(w, "Search API key:  %s\n", cfg.Search.MaskedAPIKey())
	fmt.Fprintf(w, "Search engine:   %s\n", valueOrUnset(cfg.Search.EngineID))
	fmt.Fprintf(w, "Search URL:      %s\n", cfg.Search.BaseURL)
	fmt.Fprintf(w, "Query mode:      %s\n", cfg.Search.QueryMode)
	fmt.Fprintf(w, "Max sites:       %d (over-fetch x%d)\n", cfg.Enrich.MaxSites, cfg.Enrich.OverFetchFactor)
	fmt.Fprintf(w, "Pacing:          %s per fetch, %s per product\n", cfg.Enrich.FetchDelay, cfg.Enrich.ProductDelay)
	fmt.Fprintf(w, "Workers:         %d\n", cfg.Enrich.Workers)
	fmt.Fprintf(w, "Cache:           %s (ttl %s)\n", cfg.Cache.Type, cfg.Cache.TTL)
	fmt.Fprintf(w, "Catalog:         %s -> %s\n", cfg.Catalog.Input, cfg.Catalog.Output)
	fmt.Fprintf(w, "Log level:       %s\n", cfg.Log.Level)
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
