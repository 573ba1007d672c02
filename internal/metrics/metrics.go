package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricelens",
			Name:      "search_requests_total",
			Help:      "Total number of search requests by outcome",
		},
		[]string{"status"}, // ok, cached, quota, error, disabled
	)

	PageFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricelens",
			Name:      "page_fetches_total",
			Help:      "Total number of candidate page fetches by outcome",
		},
		[]string{"status"}, // priced, not_found, error
	)

	PricesFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pricelens",
			Name:      "prices_found_total",
			Help:      "Total number of prices extracted",
		},
	)

	CandidatesFilteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pricelens",
			Name:      "candidates_filtered_total",
			Help:      "Search results rejected by the relevance filter",
		},
	)
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(PageFetchesTotal)
	prometheus.MustRegister(PricesFoundTotal)
	prometheus.MustRegister(CandidatesFilteredTotal)
}
