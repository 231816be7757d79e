package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/service"
)

type PhotoHandler struct {
	photos *service.PhotoService
	gate   Entitler
}

func NewPhotoHandler(photos *service.PhotoService, gate Entitler) *PhotoHandler {
	return &PhotoHandler{photos: photos, gate: gate}
}

// Enhance handles POST /photos/enhance
// Paid AI feature: consumes a free use unless the caller is premium.
// Returns the enhanced image as a JPEG attachment.
func (h *PhotoHandler) Enhance(c *gin.Context) {
	uid := middleware.GetUID(c)

	if respondGateError(c, h.gate.Authorize(c.Request.Context(), uid)) {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.gate.Refund(c.Request.Context(), uid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		h.gate.Refund(c.Request.Context(), uid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	opts := service.DefaultEnhanceOptions()
	if bg := c.PostForm("background"); bg != "" {
		opts.Background = bg
	}
	if v, err := strconv.ParseFloat(c.PostForm("brightness"), 64); err == nil {
		opts.Brightness = v
	}
	if v, err := strconv.ParseFloat(c.PostForm("contrast"), 64); err == nil {
		opts.Contrast = v
	}
	if v, err := strconv.ParseFloat(c.PostForm("sharpness"), 64); err == nil {
		opts.Sharpness = v
	}

	result, err := h.photos.Enhance(c.Request.Context(), imageBytes, opts)
	if err != nil {
		h.gate.Refund(c.Request.Context(), uid)
		if respondValidation(c, err) {
			return
		}
		if errors.Is(err, service.ErrPhotoProcessing) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process photo. Please try a different image."})
			return
		}
		log.Error().Err(err).Msg("Photo enhancement failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process photo"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=enhanced_photo.jpg")
	c.Data(http.StatusOK, "image/jpeg", result)
}
