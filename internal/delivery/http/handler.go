package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
	logpkg "github.com/pricelens/backend/internal/logger"
	"go.uber.org/zap"
)

// maxSitesLimit bounds the max_sites query parameter
const maxSitesLimit = 10

// ProductEnricher is the usecase behind the enrich endpoint
type ProductEnricher interface {
	Enrich(ctx context.Context, product domain.Product, maxSites int) (domain.Product, error)
}

// errorStatuses maps domain errors to HTTP statuses, first match wins
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidRequest, http.StatusBadRequest},
	{domain.ErrMissingCredentials, http.StatusServiceUnavailable},
	{domain.ErrQuotaExceeded, http.StatusServiceUnavailable},
	{domain.ErrSearchFailure, http.StatusBadGateway},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	enricher ProductEnricher
	version  string
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil enricher makes the enrich
// endpoint answer 501.
func NewHandler(enricher ProductEnricher, version string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		enricher: enricher,
		version:  version,
		logger:   logger.Named("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens",
		"version": h.version,
	})
}

// EnrichProduct handles product enrichment requests.
// Body is a catalog product; every field except "nome" is echoed back.
func (h *Handler) EnrichProduct(c *gin.Context) {
	if h.enricher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "product enrichment not configured",
		})
		return
	}

	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	if strings.TrimSpace(product.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "nome is required",
		})
		return
	}

	maxSites := 0
	if raw := c.Query("max_sites"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSitesLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "max_sites must be an integer between 1 and 10",
			})
			return
		}
		maxSites = n
	}

	enriched, err := h.enricher.Enrich(c.Request.Context(), product, maxSites)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, enriched)
}

// handleError writes the status mapped to err, 500 otherwise
func (h *Handler) handleError(c *gin.Context, err error) {
	log := logpkg.FromContext(c.Request.Context(), h.logger)
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			log.Warn("enrich failed", zap.Int("status", e.status), zap.Error(err))
			c.JSON(e.status, gin.H{"error": e.err.Error()})
			return
		}
	}

	log.Error("internal error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
