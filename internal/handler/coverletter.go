package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/service"
)

type CoverLetterHandler struct {
	ai      *service.AIService
	gate    Entitler
	letters CoverLetterStore
}

func NewCoverLetterHandler(ai *service.AIService, gate Entitler, letters CoverLetterStore) *CoverLetterHandler {
	return &CoverLetterHandler{ai: ai, gate: gate, letters: letters}
}

// Generate handles POST /cover-letters/generate
// Paid AI feature: consumes a free use unless the caller is premium.
func (h *CoverLetterHandler) Generate(c *gin.Context) {
	uid := middleware.GetUID(c)

	var req struct {
		JobTitle          string `json:"jobTitle" binding:"required"`
		CompanyName       string `json:"companyName" binding:"required"`
		JobDescription    string `json:"jobDescription" binding:"required"`
		Tone              string `json:"tone"`
		AdditionalContext string `json:"additionalContext"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	if respondGateError(c, h.gate.Authorize(c.Request.Context(), uid)) {
		return
	}

	letter, err := h.ai.GenerateCoverLetter(
		c.Request.Context(),
		req.JobTitle, req.CompanyName, req.JobDescription, req.Tone, req.AdditionalContext,
	)
	if err != nil {
		log.Error().Err(err).Msg("Cover letter generation failed")
		h.gate.Refund(c.Request.Context(), uid)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate cover letter"})
		return
	}

	if _, err := h.letters.Save(c.Request.Context(), uid, letter); err != nil {
		log.Error().Err(err).Msg("Failed to save cover letter")
		h.gate.Refund(c.Request.Context(), uid)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cover letter"})
		return
	}

	c.JSON(http.StatusCreated, letter)
}

// List handles GET /cover-letters
func (h *CoverLetterHandler) List(c *gin.Context) {
	uid := middleware.GetUID(c)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	letters, err := h.letters.List(c.Request.Context(), uid, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list cover letters")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cover letters"})
		return
	}

	c.JSON(http.StatusOK, letters)
}

// Get handles GET /cover-letters/:id
func (h *CoverLetterHandler) Get(c *gin.Context) {
	uid := middleware.GetUID(c)

	letter, err := h.letters.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get cover letter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cover letter"})
		return
	}
	if letter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cover letter not found"})
		return
	}

	c.JSON(http.StatusOK, letter)
}

// Update handles PUT /cover-letters/:id
// Only the content is editable after generation.
func (h *CoverLetterHandler) Update(c *gin.Context) {
	uid := middleware.GetUID(c)

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	letter, err := h.letters.UpdateContent(c.Request.Context(), uid, c.Param("id"), req.Content)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update cover letter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cover letter"})
		return
	}
	if letter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cover letter not found"})
		return
	}

	c.JSON(http.StatusOK, letter)
}

// Delete handles DELETE /cover-letters/:id
func (h *CoverLetterHandler) Delete(c *gin.Context) {
	uid := middleware.GetUID(c)

	deleted, err := h.letters.Delete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete cover letter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete cover letter"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cover letter not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
