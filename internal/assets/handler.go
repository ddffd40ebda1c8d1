package assets

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	trailers := rg.Group("/trailers")
	{
		trailers.GET("", h.ListTrailers)
		trailers.GET("/:id", h.GetTrailer)
		trailers.POST("", adminOnly, h.CreateTrailer)
	}
}

// ListTrailers handles GET /trailers?q=
func (h *Handler) ListTrailers(c *gin.Context) {
	trailers, err := h.service.ListTrailers(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.Error("Failed to list trailers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trailers)
}

func (h *Handler) GetTrailer(c *gin.Context) {
	t, err := h.service.GetTrailer(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrTrailerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTrailer(c *gin.Context) {
	var req CreateTrailerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.service.CreateTrailer(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrDuplicateNumber):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, t)
	}
}
