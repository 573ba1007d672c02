package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/metrics"
	"go.uber.org/zap"
)

// priceRegex matches "R$" followed by a Brazilian-formatted amount. Only the
// amount is captured, so "R$ 1.299,00" yields "1.299,00".
var priceRegex = regexp.MustCompile(`R\$[\s\x{00A0}]*(\d+(?:[.,]\d{3})*[.,]\d{2})`)

// whitespaceRegex collapses runs of whitespace, including NBSP
var whitespaceRegex = regexp.MustCompile(`[\s\x{00A0}]+`)

// PriceSelectors are tried in this order; an earlier selector wins even when
// a later one matches an element that appears first in the document.
var PriceSelectors = []string{
	`span[class*="price"]`,
	`span[class*="preco"]`,
	`div[class*="price"]`,
	`div[class*="preco"]`,
	`[itemprop="price"]`,
	`.price`,
	`.preco`,
	`#price`,
	`p[class*="valor"]`,
	`strong[class*="price"]`,
}

// priceMatcher is one step of the extraction chain
type priceMatcher func(doc *goquery.Document) (string, bool)

// PriceExtractor fetches a candidate page and returns its first plausible price
type PriceExtractor struct {
	fetcher  domain.PageFetcher
	matchers []priceMatcher
	logger   *zap.Logger
}

// NewPriceExtractor creates an extractor over the given fetcher
func NewPriceExtractor(fetcher domain.PageFetcher, logger *zap.Logger) *PriceExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PriceExtractor{
		fetcher:  fetcher,
		matchers: buildMatchers(PriceSelectors),
		logger:   logger.Named("extractor"),
	}
}

// ExtractPrice downloads the page and runs the extraction chain.
// Fetch problems wrap domain.ErrPageFetchFailure; a page without a
// match returns domain.ErrPriceNotFound. Both are per-candidate outcomes.
func (e *PriceExtractor) ExtractPrice(ctx context.Context, url string) (string, error) {
	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		e.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		if errors.Is(err, domain.ErrPageFetchFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrPageFetchFailure, err)
	}

	price, err := e.parse(body)
	if err != nil {
		metrics.PageFetchesTotal.WithLabelValues("not_found").Inc()
		return "", err
	}

	metrics.PageFetchesTotal.WithLabelValues("priced").Inc()
	metrics.PricesFoundTotal.Inc()
	e.logger.Debug("price found", zap.String("url", url), zap.String("price", price))

	return price, nil
}

// ParsePrice runs the default extraction chain over an HTML document
func ParsePrice(html []byte) (string, error) {
	return parseWith(buildMatchers(PriceSelectors), html)
}

func (e *PriceExtractor) parse(html []byte) (string, error) {
	return parseWith(e.matchers, html)
}

func parseWith(matchers []priceMatcher, html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrPriceNotFound, err)
	}

	for _, match := range matchers {
		if price, ok := match(doc); ok {
			return price, nil
		}
	}

	return "", domain.ErrPriceNotFound
}

// buildMatchers returns one matcher per selector followed by the
// visible-text fallback
func buildMatchers(selectors []string) []priceMatcher {
	matchers := make([]priceMatcher, 0, len(selectors)+1)
	for _, sel := range selectors {
		matchers = append(matchers, selectorMatcher(sel))
	}
	return append(matchers, visibleTextMatcher)
}

func selectorMatcher(selector string) priceMatcher {
	return func(doc *goquery.Document) (string, bool) {
		var price string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			var ok bool
			price, ok = findPrice(s.Text())
			return !ok
		})
		return price, price != ""
	}
}

// visibleTextMatcher scans the page text with non-rendered elements removed.
// It mutates the document, so it must run last.
func visibleTextMatcher(doc *goquery.Document) (string, bool) {
	doc.Find("script, style, noscript, template").Remove()
	return findPrice(doc.Text())
}

// findPrice returns the first amount in text, after whitespace normalization
func findPrice(text string) (string, bool) {
	text = strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
	m := priceRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
