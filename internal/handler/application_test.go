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
)

type fakeApplicationStore struct {
	apps   map[string]*model.Application
	nextID int
}

func newFakeApplicationStore() *fakeApplicationStore {
	return &fakeApplicationStore{apps: map[string]*model.Application{}}
}

func (f *fakeApplicationStore) Create(_ context.Context, uid string, app *model.Application) (*model.Application, error) {
	f.nextID++
	app.ID = fmt.Sprintf("app-%d", f.nextID)
	app.UserID = uid
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeApplicationStore) List(_ context.Context, _ string, _ int) ([]model.Application, error) {
	out := make([]model.Application, 0, len(f.apps))
	for _, a := range f.apps {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeApplicationStore) Get(_ context.Context, _, id string) (*model.Application, error) {
	return f.apps[id], nil
}

func (f *fakeApplicationStore) Update(_ context.Context, _, id string, upd repository.ApplicationUpdate) (*model.Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, nil
	}
	if upd.CompanyName != nil {
		app.CompanyName = *upd.CompanyName
	}
	if upd.Position != nil {
		app.Position = *upd.Position
	}
	if upd.Status != nil {
		app.Status = *upd.Status
	}
	if upd.Notes != nil {
		app.Notes = *upd.Notes
	}
	return app, nil
}

func (f *fakeApplicationStore) Delete(_ context.Context, _, id string) (bool, error) {
	if _, ok := f.apps[id]; !ok {
		return false, nil
	}
	delete(f.apps, id)
	return true, nil
}

func applicationRouter(store *fakeApplicationStore) *gin.Engine {
	h := NewApplicationHandler(store)
	r := gin.New()
	grp := r.Group("/applications", identity("u1"))
	grp.POST("", h.Create)
	grp.GET("/:id", h.Get)
	grp.PATCH("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	return r
}

func jsonRequest(t *testing.T, method, path string, body gin.H) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateApplication_DefaultsToSaved(t *testing.T) {
	store := newFakeApplicationStore()
	r := applicationRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "POST", "/applications", gin.H{
		"companyName": "Acme",
		"position":    "Backend Engineer",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)

	var app model.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
	assert.Equal(t, model.StatusSaved, app.Status)
	assert.NotEmpty(t, app.ID)
}

func TestCreateApplication_RejectsUnknownStatus(t *testing.T) {
	r := applicationRouter(newFakeApplicationStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "POST", "/applications", gin.H{
		"companyName": "Acme",
		"position":    "Backend Engineer",
		"status":      "ghosted",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateApplication_RequiresCompanyAndPosition(t *testing.T) {
	r := applicationRouter(newFakeApplicationStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "POST", "/applications", gin.H{"companyName": "Acme"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateApplication_PartialPatch(t *testing.T) {
	store := newFakeApplicationStore()
	created, err := store.Create(context.Background(), "u1", &model.Application{
		CompanyName: "Acme", Position: "Backend Engineer", Status: model.StatusSaved,
	})
	require.NoError(t, err)

	r := applicationRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "PATCH", "/applications/"+created.ID, gin.H{
		"status": model.StatusInterview,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusInterview, store.apps[created.ID].Status)
	// Untouched fields survive the patch
	assert.Equal(t, "Acme", store.apps[created.ID].CompanyName)
}

func TestUpdateApplication_RejectsUnknownStatus(t *testing.T) {
	store := newFakeApplicationStore()
	created, err := store.Create(context.Background(), "u1", &model.Application{
		CompanyName: "Acme", Position: "Engineer", Status: model.StatusSaved,
	})
	require.NoError(t, err)

	r := applicationRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "PATCH", "/applications/"+created.ID, gin.H{
		"status": "ghosted",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.StatusSaved, store.apps[created.ID].Status)
}

func TestApplication_NotFoundPaths(t *testing.T) {
	r := applicationRouter(newFakeApplicationStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/applications/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, jsonRequest(t, "PATCH", "/applications/missing", gin.H{"notes": "n"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/applications/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
