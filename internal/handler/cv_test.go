package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── fakes ──────────────────────────────────────────────

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	return f.response, f.err
}

type fakeAnalysisStore struct {
	saved []model.CVAnalysis
	byID  map[string]*model.CVAnalysis
}

func newFakeAnalysisStore() *fakeAnalysisStore {
	return &fakeAnalysisStore{byID: map[string]*model.CVAnalysis{}}
}

func (f *fakeAnalysisStore) Save(_ context.Context, uid string, a *model.CVAnalysis) (string, error) {
	a.UserID = uid
	a.ID = "analysis-1"
	f.saved = append(f.saved, *a)
	f.byID[a.ID] = a
	return a.ID, nil
}

func (f *fakeAnalysisStore) List(_ context.Context, _ string, _ int) ([]model.CVAnalysis, error) {
	return f.saved, nil
}

func (f *fakeAnalysisStore) Get(_ context.Context, _, id string) (*model.CVAnalysis, error) {
	return f.byID[id], nil
}

func (f *fakeAnalysisStore) Delete(_ context.Context, _, id string) (bool, error) {
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

// allowAllGate satisfies Entitler without any backing store
type allowAllGate struct {
	authorized int
	refunded   int
	authErr    error
}

func (g *allowAllGate) Authorize(context.Context, string) error {
	g.authorized++
	return g.authErr
}

func (g *allowAllGate) Refund(context.Context, string) {
	g.refunded++
}

// ── helpers ────────────────────────────────────────────

// identity injects a fixed UID, standing in for the auth middleware
func identity(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid != "" {
			c.Set(middleware.ContextKeyUID, uid)
		}
		c.Next()
	}
}

func buildTestDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	require.NoError(t, err)

	doc, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	_, err = doc.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const testJobDescription = "We are looking for a senior Go engineer with Kubernetes and PostgreSQL experience to join our platform team."

func cvUploadBody(t *testing.T, fileBytes []byte, jobDescription string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "cv.docx")
	require.NoError(t, err)
	_, err = part.Write(fileBytes)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("job_description", jobDescription))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

const analyzeResponseJSON = `{
  "overall_score": 70,
  "ats_compatibility": 80,
  "keyword_matches": [
    {"keyword": "Go", "found": true, "importance": "high"},
    {"keyword": "Kubernetes", "found": false, "importance": "high"},
    {"keyword": "PostgreSQL", "found": true, "importance": "medium"},
    {"keyword": "gRPC", "found": false, "importance": "medium"},
    {"keyword": "Docker", "found": true, "importance": "low"}
  ],
  "missing_keywords": ["Kubernetes", "gRPC"],
  "sections": [],
  "summary": "A decent CV for the role although several infrastructure keywords the posting emphasizes are absent, which will hold back the automated screening score considerably.",
  "improvement_tips": ["Add Kubernetes"]
}`

func newCVHandler(gen service.TextGenerator, gate Entitler, store AnalysisStore) *CVHandler {
	return NewCVHandler(
		service.NewDocumentParser(10),
		service.NewAIService(gen),
		service.NewPDFRenderer(),
		gate,
		store,
	)
}

// ── analyze ────────────────────────────────────────────

func TestAnalyze_AnonymousGetsPreviewAndNothingPersisted(t *testing.T) {
	store := newFakeAnalysisStore()
	gate := &allowAllGate{}
	h := newCVHandler(&fakeGenerator{response: analyzeResponseJSON}, gate, store)

	r := gin.New()
	r.POST("/cv/analyze", identity(""), h.Analyze)

	body, contentType := cvUploadBody(t, buildTestDOCX(t, "Jane Doe", "Go engineer since 2016"), testJobDescription)
	req := httptest.NewRequest("POST", "/cv/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var preview model.CVAnalysisPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, 70, preview.OverallScore)
	assert.LessOrEqual(t, len(preview.PreviewKeywords), 3)
	assert.NotEmpty(t, preview.UpgradeMessage)
	assert.True(t, len(preview.SummaryPreview) <= 153)

	// Anonymous analysis never reaches storage or the entitlement gate
	assert.Empty(t, store.saved)
	assert.Equal(t, 0, gate.authorized)
}

func TestAnalyze_AuthenticatedGetsFullResultPersisted(t *testing.T) {
	store := newFakeAnalysisStore()
	gate := &allowAllGate{}
	h := newCVHandler(&fakeGenerator{response: analyzeResponseJSON}, gate, store)

	r := gin.New()
	r.POST("/cv/analyze", identity("u1"), h.Analyze)

	body, contentType := cvUploadBody(t, buildTestDOCX(t, "Jane Doe", "Go engineer since 2016"), testJobDescription)
	req := httptest.NewRequest("POST", "/cv/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var analysis model.CVAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Len(t, analysis.KeywordMatches, 5)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "u1", store.saved[0].UserID)
	// Analysis is free: the gate is never consulted
	assert.Equal(t, 0, gate.authorized)
}

func TestAnalyze_ShortJobDescriptionRejected(t *testing.T) {
	h := newCVHandler(&fakeGenerator{response: analyzeResponseJSON}, &allowAllGate{}, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/analyze", identity("u1"), h.Analyze)

	body, contentType := cvUploadBody(t, buildTestDOCX(t, "Jane"), "too short")
	req := httptest.NewRequest("POST", "/cv/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_SpoofedFileRejected(t *testing.T) {
	h := newCVHandler(&fakeGenerator{response: analyzeResponseJSON}, &allowAllGate{}, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/analyze", identity("u1"), h.Analyze)

	body, contentType := cvUploadBody(t, []byte("plain text pretending to be docx"), testJobDescription)
	req := httptest.NewRequest("POST", "/cv/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ── optimize ───────────────────────────────────────────

func TestOptimize_ExhaustedGateReturns402(t *testing.T) {
	gate := &allowAllGate{authErr: service.ErrEntitlementExhausted}
	h := newCVHandler(&fakeGenerator{response: `{"summary":"x"}`}, gate, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/optimize", identity("u1"), h.Optimize)

	body, contentType := cvUploadBody(t, buildTestDOCX(t, "Jane"), testJobDescription)
	req := httptest.NewRequest("POST", "/cv/optimize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var payload service.ExhaustedPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload.FreeUsesRemaining)
	assert.Equal(t, "/pricing", payload.UpgradeURL)
}

func TestOptimize_AIFailureRefundsUse(t *testing.T) {
	gate := &allowAllGate{}
	h := newCVHandler(&fakeGenerator{err: context.DeadlineExceeded}, gate, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/optimize", identity("u1"), h.Optimize)

	body, contentType := cvUploadBody(t, buildTestDOCX(t, "Jane Doe", "Engineer"), testJobDescription)
	req := httptest.NewRequest("POST", "/cv/optimize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, gate.authorized)
	assert.Equal(t, 1, gate.refunded)
}

// ── export ─────────────────────────────────────────────

func TestExport_RendersPDF(t *testing.T) {
	h := newCVHandler(&fakeGenerator{}, &allowAllGate{}, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/export", identity("u1"), h.Export)

	payload, err := json.Marshal(gin.H{
		"template": model.TemplateExecutive,
		"cv": model.OptimizedCV{
			ContactName: "Jane Doe",
			Summary:     "Engineer",
			Skills:      []string{"Go"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/cv/export", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])
}

func TestExport_UnknownTemplateRejected(t *testing.T) {
	h := newCVHandler(&fakeGenerator{}, &allowAllGate{}, newFakeAnalysisStore())

	r := gin.New()
	r.POST("/cv/export", identity("u1"), h.Export)

	payload, err := json.Marshal(gin.H{
		"template": "brutalist",
		"cv":       model.OptimizedCV{ContactName: "Jane"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/cv/export", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ── analyses CRUD ──────────────────────────────────────

func TestGetAnalysis_NotFound(t *testing.T) {
	h := newCVHandler(&fakeGenerator{}, &allowAllGate{}, newFakeAnalysisStore())

	r := gin.New()
	r.GET("/cv/analyses/:id", identity("u1"), h.GetAnalysis)

	req := httptest.NewRequest("GET", "/cv/analyses/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAnalysis(t *testing.T) {
	store := newFakeAnalysisStore()
	_, err := store.Save(context.Background(), "u1", &model.CVAnalysis{OverallScore: 70})
	require.NoError(t, err)

	h := newCVHandler(&fakeGenerator{}, &allowAllGate{}, store)

	r := gin.New()
	r.DELETE("/cv/analyses/:id", identity("u1"), h.DeleteAnalysis)

	req := httptest.NewRequest("DELETE", "/cv/analyses/analysis-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Second delete finds nothing
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/cv/analyses/analysis-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
