package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned pages keyed by URL
type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, domain.ErrPageFetchFailure
	}
	return []byte(page), nil
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    string
		wantErr error
	}{
		{
			name: "div price class",
			html: `<html><body><div class="price">R$ 129,90</div></body></html>`,
			want: "129,90",
		},
		{
			name: "thousands separator",
			html: `<span class="product-price">Por R$ 1.299,00 à vista</span>`,
			want: "1.299,00",
		},
		{
			name: "no space after symbol",
			html: `<span class="preco-final">R$49,90</span>`,
			want: "49,90",
		},
		{
			name: "non-breaking space",
			html: "<p class=\"valor\">R$\u00a089,00</p>",
			want: "89,00",
		},
		{
			name: "itemprop",
			html: `<meta itemprop="name" content="x"><b itemprop="price">R$ 15,50</b>`,
			want: "15,50",
		},
		{
			name: "price split across child nodes",
			html: `<span class="price"><small>R$</small> <b>59</b><b>,99</b></span>`,
			want: "59,99",
		},
		{
			name: "selector order beats document order",
			html: `<div class="price">R$ 10,00</div><span class="price-tag">R$ 20,00</span>`,
			want: "20,00",
		},
		{
			name: "falls through to next element when first has no amount",
			html: `<span class="price">Consulte</span><span class="price">R$ 7,00</span>`,
			want: "7,00",
		},
		{
			name: "visible text fallback",
			html: `<html><body><h1>Mouse</h1><p>Apenas R$ 35,00 hoje</p></body></html>`,
			want: "35,00",
		},
		{
			name:    "script text is not visible",
			html:    `<html><head><script>var p = "R$ 99,99";</script></head><body>sem preço</body></html>`,
			wantErr: domain.ErrPriceNotFound,
		},
		{
			name:    "amount without cents is ignored",
			html:    `<div class="price">R$ 100</div>`,
			wantErr: domain.ErrPriceNotFound,
		},
		{
			name:    "no price",
			html:    `<html><body>Produto indisponível</body></html>`,
			wantErr: domain.ErrPriceNotFound,
		},
		{
			name:    "empty document",
			html:    ``,
			wantErr: domain.ErrPriceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice([]byte(tt.html))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("returns price from fetched page", func(t *testing.T) {
		fetcher := &stubFetcher{pages: map[string]string{
			"https://loja.example.com/mouse": `<div class="price">R$ 129,90</div>`,
		}}
		extractor := NewPriceExtractor(fetcher, nil)

		price, err := extractor.ExtractPrice(ctx, "https://loja.example.com/mouse")

		require.NoError(t, err)
		assert.Equal(t, "129,90", price)
	})

	t.Run("wraps fetch failures", func(t *testing.T) {
		fetcher := &stubFetcher{err: errors.New("connection reset")}
		extractor := NewPriceExtractor(fetcher, nil)

		price, err := extractor.ExtractPrice(ctx, "https://loja.example.com/mouse")

		assert.Empty(t, price)
		assert.ErrorIs(t, err, domain.ErrPageFetchFailure)
	})

	t.Run("keeps classified fetch failures", func(t *testing.T) {
		fetcher := &stubFetcher{pages: map[string]string{}}
		extractor := NewPriceExtractor(fetcher, nil)

		_, err := extractor.ExtractPrice(ctx, "https://missing.example.com")

		assert.ErrorIs(t, err, domain.ErrPageFetchFailure)
	})

	t.Run("reports not found", func(t *testing.T) {
		fetcher := &stubFetcher{pages: map[string]string{
			"https://blog.example.com": `<p>review</p>`,
		}}
		extractor := NewPriceExtractor(fetcher, nil)

		_, err := extractor.ExtractPrice(ctx, "https://blog.example.com")

		assert.ErrorIs(t, err, domain.ErrPriceNotFound)
	})

	t.Run("same page yields same result", func(t *testing.T) {
		fetcher := &stubFetcher{pages: map[string]string{
			"https://loja.example.com": `<span class="price">R$ 5,00</span><p>R$ 6,00</p>`,
		}}
		extractor := NewPriceExtractor(fetcher, nil)

		first, err1 := extractor.ExtractPrice(ctx, "https://loja.example.com")
		second, err2 := extractor.ExtractPrice(ctx, "https://loja.example.com")

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
	})
}
