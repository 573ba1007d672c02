package search

import (
	"strings"
)

// Query modes
const (
	// QueryModeIntent appends purchase-intent keywords and relies on the
	// relevance filter to drop non-commerce hosts.
	QueryModeIntent = "intent"
	// QueryModeExclude appends provider-side -site: exclusions.
	QueryModeExclude = "exclude"
)

const intentKeywords = "(preço OR comprar OR venda)"

// QueryBuilder turns a product name into a provider query string
type QueryBuilder struct {
	mode     string
	excluded []string
}

// NewQueryBuilder creates a builder; unknown modes behave like QueryModeIntent
func NewQueryBuilder(mode string, excludedSites []string) *QueryBuilder {
	excluded := make([]string, 0, len(excludedSites))
	for _, site := range excludedSites {
		site = strings.TrimSpace(site)
		if site != "" {
			excluded = append(excluded, site)
		}
	}
	if mode != QueryModeExclude {
		mode = QueryModeIntent
	}
	return &QueryBuilder{mode: mode, excluded: excluded}
}

// Build returns the query for term, with whitespace collapsed
func (b *QueryBuilder) Build(term string) string {
	term = strings.Join(strings.Fields(term), " ")
	if term == "" {
		return ""
	}

	if b.mode == QueryModeIntent {
		return term + " " + intentKeywords
	}

	parts := make([]string, 0, len(b.excluded)+1)
	parts = append(parts, term)
	for _, site := range b.excluded {
		parts = append(parts, "-site:"+site)
	}
	return strings.Join(parts, " ")
}

// IsExcluded reports whether link points at an excluded site. Only
// meaningful in exclude mode; the provider does not always honor -site:.
func (b *QueryBuilder) IsExcluded(link string) bool {
	if b.mode != QueryModeExclude {
		return false
	}
	link = strings.ToLower(link)
	for _, site := range b.excluded {
		if strings.Contains(link, strings.ToLower(site)) {
			return true
		}
	}
	return false
}
