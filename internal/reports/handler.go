package reports

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves tabular exports.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers reporting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.GET("/datasets", h.listDatasets)
		reports.GET("/:dataset/export", h.exportDataset)
	}
}

// listDatasets handles GET /api/v1/reports/datasets
func (h *Handler) listDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"datasets": []Dataset{DatasetInspections, DatasetInventory, DatasetWorkOrders, DatasetTrailers},
		"formats":  []Format{FormatCSV, FormatXLSX},
	})
}

// exportDataset handles GET /api/v1/reports/:dataset/export
func (h *Handler) exportDataset(c *gin.Context) {
	req := ExportRequest{
		Dataset:   Dataset(c.Param("dataset")),
		Format:    Format(c.DefaultQuery("format", string(FormatCSV))),
		TrailerID: c.Query("trailer_id"),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD"})
			return
		}
		req.Since = &t
	}

	var buf bytes.Buffer
	result, err := h.service.Export(c.Request.Context(), &buf, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownDataset):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrUnknownFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to export dataset", zap.Error(err), zap.String("dataset", string(req.Dataset)))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export dataset"})
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	c.Header("X-Row-Count", fmt.Sprint(result.Rows))
	c.Data(http.StatusOK, result.ContentType, buf.Bytes())
}
