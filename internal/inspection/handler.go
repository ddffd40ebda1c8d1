package inspection

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	inspections := rg.Group("/inspections")
	{
		inspections.GET("", h.ListRecords)
		inspections.GET("/:id", h.GetRecord)
		inspections.GET("/:id/pdf", h.DownloadPDF)
		inspections.DELETE("/:id", h.DeleteRecord)

		wizards := inspections.Group("/wizards")
		{
			wizards.POST("", h.StartWizard)
			wizards.GET("/:id", h.GetWizard)
			wizards.DELETE("/:id", h.CancelWizard)
			wizards.GET("/:id/assets", h.SearchAssets)
			wizards.PUT("/:id/asset", h.SelectAsset)
			wizards.PUT("/:id/details", h.UpdateDetails)
			wizards.POST("/:id/next", h.Next)
			wizards.POST("/:id/back", h.Back)
			wizards.PUT("/:id/section", h.SetSection)
			wizards.PUT("/:id/items/:itemId", h.UpdateItem)
			wizards.POST("/:id/photos", h.AttachPhotos)
			wizards.DELETE("/:id/photos/:index", h.RemovePhoto)
			wizards.POST("/:id/submit", h.Submit)
		}
	}
}

func operator(c *gin.Context) (Operator, bool) {
	session, ok := auth.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return Operator{}, false
	}
	return Operator{ID: session.UserID, Name: session.Name}, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *ValidationError
	var pe *PersistenceError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, ErrWizardNotFound), errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrUnknownItem):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSectionOutOfRange), errors.Is(err, ErrPhotoOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusBadGateway, gin.H{"error": pe.Error()})
	default:
		h.logger.Error("Inspection request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) StartWizard(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req CreateWizardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	v, err := h.service.StartWizard(c.Request.Context(), op, req.Kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetWizard(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	v, err := h.service.GetWizard(c.Request.Context(), op, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) CancelWizard(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	if err := h.service.CancelWizard(c.Request.Context(), op, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SearchAssets(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	if _, err := h.service.GetWizard(c.Request.Context(), op, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	assets, err := h.service.SearchAssets(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *Handler) SelectAsset(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req SelectAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.service.SelectAsset(c.Request.Context(), op, c.Param("id"), req.AssetID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateDetails(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.service.UpdateDetails(c.Request.Context(), op, c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) Next(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	v, err := h.service.Next(c.Request.Context(), op, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) Back(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	v, err := h.service.Back(c.Request.Context(), op, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) SetSection(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.service.SetActiveSection(c.Request.Context(), op, c.Param("id"), *req.Index)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.service.UpdateItem(c.Request.Context(), op, c.Param("id"), c.Param("itemId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) AttachPhotos(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form with photos is required"})
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photos are required"})
		return
	}

	var warnings []string
	uploads := make([]PhotoUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s could not be read", fh.Filename))
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s could not be read", fh.Filename))
			continue
		}
		uploads = append(uploads, PhotoUpload{Filename: fh.Filename, Data: data})
	}

	v, rejected, err := h.service.AttachPhotos(c.Request.Context(), op, c.Param("id"), uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}
	warnings = append(warnings, rejected...)
	c.JSON(http.StatusOK, gin.H{"wizard": v, "warnings": warnings})
}

func (h *Handler) RemovePhoto(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo index"})
		return
	}
	v, err := h.service.RemovePhoto(c.Request.Context(), op, c.Param("id"), index)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) Submit(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), op, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListRecords(c *gin.Context) {
	filter := ListFilter{
		TrailerID: c.Query("trailer_id"),
		Outcome:   Outcome(c.Query("outcome")),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD"})
			return
		}
		filter.Since = &t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	records, err := h.service.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.service.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DownloadPDF(c *gin.Context) {
	data, rec, err := h.service.RecordPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", rec.ID))
	c.Data(http.StatusOK, "application/pdf", data)
}
