package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/service"
)

type CVHandler struct {
	parser   *service.DocumentParser
	ai       *service.AIService
	pdf      *service.PDFRenderer
	gate     Entitler
	analyses AnalysisStore
}

func NewCVHandler(
	parser *service.DocumentParser,
	ai *service.AIService,
	pdf *service.PDFRenderer,
	gate Entitler,
	analyses AnalysisStore,
) *CVHandler {
	return &CVHandler{
		parser:   parser,
		ai:       ai,
		pdf:      pdf,
		gate:     gate,
		analyses: analyses,
	}
}

// readUpload pulls the multipart file and job_description field shared by
// analyze and optimize. Writes the error response itself on failure.
func (h *CVHandler) readUpload(c *gin.Context) (cvText, jobDescription string, ok bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return "", "", false
	}
	defer file.Close()

	jobDescription = c.PostForm("job_description")
	if len(jobDescription) < minJobDescriptionLen {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Job description must be at least 50 characters",
		})
		return "", "", false
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return "", "", false
	}

	cvText, err = h.parser.ExtractText(fileBytes, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		if respondValidation(c, err) {
			return "", "", false
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to extract CV text")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the uploaded file"})
		return "", "", false
	}

	return cvText, jobDescription, true
}

// Analyze handles POST /cv/analyze
// Authenticated callers get the full analysis, persisted to history.
// Anonymous callers get a truncated preview and nothing is stored.
// Analysis never consumes entitlement.
func (h *CVHandler) Analyze(c *gin.Context) {
	cvText, jobDescription, ok := h.readUpload(c)
	if !ok {
		return
	}

	analysis, err := h.ai.AnalyzeCV(c.Request.Context(), cvText, jobDescription)
	if err != nil {
		log.Error().Err(err).Msg("CV analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze CV"})
		return
	}

	uid := middleware.GetUID(c)
	if uid == "" {
		c.JSON(http.StatusOK, service.Preview(analysis))
		return
	}

	if _, err := h.analyses.Save(c.Request.Context(), uid, analysis); err != nil {
		log.Error().Err(err).Msg("Failed to save analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save analysis"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// ListAnalyses handles GET /cv/analyses
func (h *CVHandler) ListAnalyses(c *gin.Context) {
	uid := middleware.GetUID(c)

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	analyses, err := h.analyses.List(c.Request.Context(), uid, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list analyses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analyses"})
		return
	}

	c.JSON(http.StatusOK, analyses)
}

// GetAnalysis handles GET /cv/analyses/:id
func (h *CVHandler) GetAnalysis(c *gin.Context) {
	uid := middleware.GetUID(c)

	analysis, err := h.analyses.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analysis"})
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// DeleteAnalysis handles DELETE /cv/analyses/:id
func (h *CVHandler) DeleteAnalysis(c *gin.Context) {
	uid := middleware.GetUID(c)

	deleted, err := h.analyses.Delete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete analysis"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Optimize handles POST /cv/optimize
// Paid AI feature: consumes a free use unless the caller is premium.
func (h *CVHandler) Optimize(c *gin.Context) {
	uid := middleware.GetUID(c)

	if respondGateError(c, h.gate.Authorize(c.Request.Context(), uid)) {
		return
	}

	cvText, jobDescription, ok := h.readUpload(c)
	if !ok {
		// Authorization charged a use for work that never ran
		h.gate.Refund(c.Request.Context(), uid)
		return
	}

	// Optional prior analysis gives the model extra context
	var analysisSummary string
	var missingKeywords []string
	if analysisID := c.PostForm("analysis_id"); analysisID != "" {
		analysis, err := h.analyses.Get(c.Request.Context(), uid, analysisID)
		if err == nil && analysis != nil {
			analysisSummary = analysis.Summary
			missingKeywords = analysis.MissingKeywords
		}
	}

	optimized, err := h.ai.OptimizeCV(c.Request.Context(), cvText, jobDescription, analysisSummary, missingKeywords)
	if err != nil {
		log.Error().Err(err).Msg("CV optimization failed")
		h.gate.Refund(c.Request.Context(), uid)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to optimize CV"})
		return
	}

	c.JSON(http.StatusOK, optimized)
}

// Export handles POST /cv/export
// Renders an optimized CV to a downloadable PDF. Free feature.
func (h *CVHandler) Export(c *gin.Context) {
	var req struct {
		Template string             `json:"template"`
		CV       *model.OptimizedCV `json:"cv"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CV == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Template == "" {
		req.Template = model.TemplateClassic
	}
	if !model.ValidTemplate(req.Template) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown template"})
		return
	}

	pdfBytes, err := h.pdf.Render(req.CV, req.Template)
	if err != nil {
		log.Error().Err(err).Msg("PDF rendering failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=optimized_cv.pdf")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
