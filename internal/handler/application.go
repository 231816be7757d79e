package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
)

type ApplicationHandler struct {
	apps ApplicationStore
}

func NewApplicationHandler(apps ApplicationStore) *ApplicationHandler {
	return &ApplicationHandler{apps: apps}
}

// Create handles POST /applications
func (h *ApplicationHandler) Create(c *gin.Context) {
	uid := middleware.GetUID(c)

	var req struct {
		CompanyName   string `json:"companyName" binding:"required"`
		Position      string `json:"position" binding:"required"`
		Status        string `json:"status"`
		JobURL        string `json:"jobUrl"`
		CVAnalysisID  string `json:"cvAnalysisId"`
		CoverLetterID string `json:"coverLetterId"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Default status to "saved" if not specified
	status := req.Status
	if status == "" {
		status = model.StatusSaved
	}
	if !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	app := &model.Application{
		CompanyName:   req.CompanyName,
		Position:      req.Position,
		Status:        status,
		JobURL:        req.JobURL,
		CVAnalysisID:  req.CVAnalysisID,
		CoverLetterID: req.CoverLetterID,
		Notes:         req.Notes,
	}

	created, err := h.apps.Create(c.Request.Context(), uid, app)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List handles GET /applications
func (h *ApplicationHandler) List(c *gin.Context) {
	uid := middleware.GetUID(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	apps, err := h.apps.List(c.Request.Context(), uid, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load applications"})
		return
	}

	c.JSON(http.StatusOK, apps)
}

// Get handles GET /applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	uid := middleware.GetUID(c)

	app, err := h.apps.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load application"})
		return
	}
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.JSON(http.StatusOK, app)
}

// Update handles PATCH /applications/:id
func (h *ApplicationHandler) Update(c *gin.Context) {
	uid := middleware.GetUID(c)

	var upd repository.ApplicationUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if upd.Status != nil && !model.ValidStatus(*upd.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	app, err := h.apps.Update(c.Request.Context(), uid, c.Param("id"), upd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.JSON(http.StatusOK, app)
}

// Delete handles DELETE /applications/:id
func (h *ApplicationHandler) Delete(c *gin.Context) {
	uid := middleware.GetUID(c)

	deleted, err := h.apps.Delete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete application"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
