package logger

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	path   string
	logger *zap.Logger
}

func NewHandler(path string, logger *zap.Logger) *Handler {
	return &Handler{path: path, logger: logger}
}

// RegisterRoutes exposes the log file tail to administrators.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("/admin/logs", adminOnly, h.tail)
}

func (h *Handler) tail(c *gin.Context) {
	if h.path == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file logging is disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	entries, err := Tail(h.path, c.Query("level"), limit)
	if err != nil {
		h.logger.Error("Failed to read log file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
