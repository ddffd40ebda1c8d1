package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	aggregator *Aggregator
	cache      *Cache
	logger     *zap.Logger
}

func NewHandler(aggregator *Aggregator, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, cache: aggregator.cache, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	dashboard := rg.Group("/dashboard")
	{
		dashboard.GET("/stats", h.GetStats)
		dashboard.GET("/recent-inspections", h.GetRecentInspections)
		dashboard.GET("/cache", h.GetCacheStats)
	}
}

// GetStats returns the fleet overview. refresh=true bypasses the cache.
func (h *Handler) GetStats(c *gin.Context) {
	var (
		stats *Stats
		err   error
	)
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		stats, err = h.aggregator.Refresh(c.Request.Context())
	} else {
		stats, err = h.aggregator.Stats(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("Failed to load dashboard stats", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetRecentInspections(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	recent, err := h.aggregator.RecentInspections(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load recent inspections", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recent)
}

func (h *Handler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}
