package alerts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	engine *Engine
	logger *zap.Logger
}

func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	alerts := rg.Group("/alerts")
	{
		alerts.GET("", h.List)
		alerts.GET("/rules", h.Rules)
		alerts.POST("/evaluate", adminOnly, h.Evaluate)
	}
}

func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	c.JSON(http.StatusOK, h.engine.Recent(limit))
}

func (h *Handler) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Rules())
}

func (h *Handler) Evaluate(c *gin.Context) {
	raised, err := h.engine.Evaluate(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to evaluate alert rules", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"raised": raised, "count": len(raised)})
}
