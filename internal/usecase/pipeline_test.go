package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/page"
	"github.com/pricelens/backend/internal/infrastructure/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipeline wires the real search client, filter, fetcher and extractor
// against a fake provider that returns the given links
func newPipeline(t *testing.T, links func(shopURL string) []string) (*EnrichmentService, *int32) {
	t.Helper()

	var pageHits int32
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pageHits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><h1>Mouse Gamer</h1><div class="price">R$ 129,90</div></body></html>`))
	}))
	t.Cleanup(shop.Close)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]string, 0)
		for _, l := range links(shop.URL) {
			items = append(items, map[string]string{"link": l, "title": "Oferta"})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	t.Cleanup(provider.Close)

	client := search.NewClient(search.Config{
		APIKey:   "key",
		EngineID: "cx",
		BaseURL:  provider.URL,
	}, search.NewQueryBuilder(search.QueryModeIntent, nil), NewRelevanceFilter(RelevanceConfig{}), nil)

	extractor := NewPriceExtractor(page.NewFetcher(page.Config{UserAgent: "Mozilla/5.0"}, nil), nil)

	return NewEnrichmentService(NewMockCacheRepository(), client, extractor, EnrichmentConfig{}, nil), &pageHits
}

func TestPipeline_MarketplaceLinkIsPriced(t *testing.T) {
	var link string
	svc, hits := newPipeline(t, func(shopURL string) []string {
		link = shopURL + "/amazon/mouse-gamer"
		return []string{link}
	})

	catalog := &domain.Catalog{Products: []domain.Product{{Name: "mouse gamer"}}}
	out, _, err := svc.EnrichCatalog(context.Background(), catalog, 3)

	require.NoError(t, err)
	require.Len(t, out.Products, 1)

	got, err := json.Marshal(out.Products[0].Sites)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`[{"url":%q,"titulo":"Oferta","preco":"129,90"}]`, link), string(got))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestPipeline_BlockedLinkIsNeverFetched(t *testing.T) {
	svc, hits := newPipeline(t, func(shopURL string) []string {
		return []string{shopURL + "/wikipedia/Mouse"}
	})

	catalog := &domain.Catalog{Products: []domain.Product{{Name: "mouse gamer"}}}
	out, _, err := svc.EnrichCatalog(context.Background(), catalog, 3)

	require.NoError(t, err)
	assert.Equal(t, []domain.SiteResult{}, out.Products[0].Sites)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}
