package search

// Google Custom Search JSON API response shapes
type apiResponse struct {
	Items []apiItem `json:"items"`
}

type apiItem struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// quotaReasons are the provider error reasons that mean the daily or
// per-minute quota ran out; they arrive with status 403 or 429.
var quotaReasons = map[string]bool{
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// isQuotaError reports whether a decoded error body signals quota exhaustion
func (e *apiErrorResponse) isQuotaError() bool {
	if e.Error.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	for _, item := range e.Error.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}
