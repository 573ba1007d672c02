package usecase

import (
	"strings"
)

// DefaultBlocklist holds non-commerce hosts (encyclopedia, social media,
// review aggregators) whose results are never fetched
var DefaultBlocklist = []string{
	"wikipedia", "instagram", "facebook", "youtube", "linkedin", "reclameaqui",
}

// DefaultAllowlist holds marketplace hosts accepted without a title match
var DefaultAllowlist = []string{
	"amazon", "mercadolivre", "shopee", "magazine", "carrefour", "walmart", "extra",
}

// RelevanceConfig holds the host lists for the relevance filter
type RelevanceConfig struct {
	Blocklist []string
	Allowlist []string
}

// RelevanceFilter decides whether a search result is worth fetching.
// Matching is substring containment on the lower-cased URL, which also
// catches subdomains and hosts mentioned in paths; the resulting false
// positives are accepted.
type RelevanceFilter struct {
	blocklist []string
	allowlist []string
}

// NewRelevanceFilter creates a filter; nil lists fall back to the defaults
func NewRelevanceFilter(cfg RelevanceConfig) *RelevanceFilter {
	blocklist := cfg.Blocklist
	if blocklist == nil {
		blocklist = DefaultBlocklist
	}
	allowlist := cfg.Allowlist
	if allowlist == nil {
		allowlist = DefaultAllowlist
	}

	return &RelevanceFilter{
		blocklist: normalizeHosts(blocklist),
		allowlist: normalizeHosts(allowlist),
	}
}

// IsRelevant applies, in order: blocklist rejection, marketplace
// acceptance, then a match of the term's first word against title or URL.
func (f *RelevanceFilter) IsRelevant(url, title, term string) bool {
	urlLower := strings.ToLower(url)

	if containsAny(urlLower, f.blocklist) {
		return false
	}

	if containsAny(urlLower, f.allowlist) {
		return true
	}

	token := firstToken(term)
	if token == "" {
		return false
	}

	return strings.Contains(strings.ToLower(title), token) || strings.Contains(urlLower, token)
}

// firstToken returns the lower-cased first whitespace-delimited word of term.
// The distinguishing word of a multi-word name is not always first; this
// is kept as-is.
func firstToken(term string) string {
	fields := strings.Fields(term)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
