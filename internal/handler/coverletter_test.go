package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
	"github.com/yourusername/recruitai-api/internal/service"
)

// letterUsageStore backs a real EntitlementService with an in-memory user
type letterUsageStore struct {
	user *model.User
}

func (s *letterUsageStore) Get(context.Context, string) (*model.User, error) {
	return s.user, nil
}

func (s *letterUsageStore) ConsumeFreeUse(context.Context, string) (int, error) {
	if s.user.FreeUsesRemaining <= 0 {
		return 0, repository.ErrNoFreeUses
	}
	s.user.FreeUsesRemaining--
	return s.user.FreeUsesRemaining, nil
}

func (s *letterUsageStore) RefundFreeUse(context.Context, string) error {
	s.user.FreeUsesRemaining++
	return nil
}

type fakeLetterStore struct {
	letters map[string]*model.CoverLetter
	saveErr error
	nextID  int
}

func newFakeLetterStore() *fakeLetterStore {
	return &fakeLetterStore{letters: map[string]*model.CoverLetter{}}
}

func (f *fakeLetterStore) Save(_ context.Context, uid string, letter *model.CoverLetter) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.nextID++
	letter.ID = fmt.Sprintf("letter-%d", f.nextID)
	letter.UserID = uid
	f.letters[letter.ID] = letter
	return letter.ID, nil
}

func (f *fakeLetterStore) List(_ context.Context, _ string, _ int) ([]model.CoverLetter, error) {
	out := make([]model.CoverLetter, 0, len(f.letters))
	for _, l := range f.letters {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLetterStore) Get(_ context.Context, _, id string) (*model.CoverLetter, error) {
	return f.letters[id], nil
}

func (f *fakeLetterStore) UpdateContent(_ context.Context, _, id, content string) (*model.CoverLetter, error) {
	l, ok := f.letters[id]
	if !ok {
		return nil, nil
	}
	l.Content = content
	return l, nil
}

func (f *fakeLetterStore) Delete(_ context.Context, _, id string) (bool, error) {
	if _, ok := f.letters[id]; !ok {
		return false, nil
	}
	delete(f.letters, id)
	return true, nil
}

func generateRequest(t *testing.T) *http.Request {
	t.Helper()
	payload, err := json.Marshal(gin.H{
		"jobTitle":       "Backend Engineer",
		"companyName":    "Acme",
		"jobDescription": "Build and operate Go services on Kubernetes.",
	})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/cover-letters/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGenerate_FreeUserBlockedAfterThreeUses(t *testing.T) {
	usage := &letterUsageStore{user: &model.User{UID: "u1", Plan: model.PlanFree, FreeUsesRemaining: 3}}
	gate := service.NewEntitlementService(usage)
	store := newFakeLetterStore()
	h := NewCoverLetterHandler(
		service.NewAIService(&fakeGenerator{response: "Dear hiring team, I am writing to apply."}),
		gate,
		store,
	)

	r := gin.New()
	r.POST("/cover-letters/generate", identity("u1"), h.Generate)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, generateRequest(t))
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, generateRequest(t))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var payload service.ExhaustedPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload.FreeUsesRemaining)
	assert.Equal(t, "/pricing", payload.UpgradeURL)
	assert.Contains(t, payload.Message, "Upgrade to Premium")

	assert.Len(t, store.letters, 3)
	assert.Equal(t, 0, usage.user.FreeUsesRemaining)
}

func TestGenerate_PremiumUserNeverBlocked(t *testing.T) {
	usage := &letterUsageStore{user: &model.User{UID: "u1", Plan: model.PlanPremium, FreeUsesRemaining: 0}}
	h := NewCoverLetterHandler(
		service.NewAIService(&fakeGenerator{response: "Dear hiring team,"}),
		service.NewEntitlementService(usage),
		newFakeLetterStore(),
	)

	r := gin.New()
	r.POST("/cover-letters/generate", identity("u1"), h.Generate)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, generateRequest(t))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 0, usage.user.FreeUsesRemaining)
}

func TestGenerate_SaveFailureRefundsUse(t *testing.T) {
	usage := &letterUsageStore{user: &model.User{UID: "u1", Plan: model.PlanFree, FreeUsesRemaining: 2}}
	store := newFakeLetterStore()
	store.saveErr = fmt.Errorf("firestore unavailable")
	h := NewCoverLetterHandler(
		service.NewAIService(&fakeGenerator{response: "Dear hiring team,"}),
		service.NewEntitlementService(usage),
		store,
	)

	r := gin.New()
	r.POST("/cover-letters/generate", identity("u1"), h.Generate)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, generateRequest(t))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 2, usage.user.FreeUsesRemaining)
}

func TestGenerate_MissingFieldsRejectedBeforeGate(t *testing.T) {
	usage := &letterUsageStore{user: &model.User{UID: "u1", Plan: model.PlanFree, FreeUsesRemaining: 1}}
	h := NewCoverLetterHandler(
		service.NewAIService(&fakeGenerator{response: "x"}),
		service.NewEntitlementService(usage),
		newFakeLetterStore(),
	)

	r := gin.New()
	r.POST("/cover-letters/generate", identity("u1"), h.Generate)

	payload, err := json.Marshal(gin.H{"jobTitle": "Backend Engineer"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/cover-letters/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Validation failures cost nothing
	assert.Equal(t, 1, usage.user.FreeUsesRemaining)
}

func TestUpdateLetter_ContentOnly(t *testing.T) {
	store := newFakeLetterStore()
	id, err := store.Save(context.Background(), "u1", &model.CoverLetter{
		JobTitle: "Backend Engineer", Content: "original",
	})
	require.NoError(t, err)

	h := NewCoverLetterHandler(service.NewAIService(&fakeGenerator{}), &allowAllGate{}, store)

	r := gin.New()
	r.PUT("/cover-letters/:id", identity("u1"), h.Update)

	payload, err := json.Marshal(gin.H{"content": "rewritten"})
	require.NoError(t, err)
	req := httptest.NewRequest("PUT", "/cover-letters/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rewritten", store.letters[id].Content)
	assert.Equal(t, "Backend Engineer", store.letters[id].JobTitle)
}

func TestDeleteLetter_NotFound(t *testing.T) {
	h := NewCoverLetterHandler(service.NewAIService(&fakeGenerator{}), &allowAllGate{}, newFakeLetterStore())

	r := gin.New()
	r.DELETE("/cover-letters/:id", identity("u1"), h.Delete)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/cover-letters/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
