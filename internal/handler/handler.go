package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
	"github.com/yourusername/recruitai-api/internal/service"
)

// Store interfaces let handler tests substitute in-memory fakes for the
// Firestore-backed repositories.

type AnalysisStore interface {
	Save(ctx context.Context, uid string, a *model.CVAnalysis) (string, error)
	List(ctx context.Context, uid string, limit int) ([]model.CVAnalysis, error)
	Get(ctx context.Context, uid, id string) (*model.CVAnalysis, error)
	Delete(ctx context.Context, uid, id string) (bool, error)
}

type CoverLetterStore interface {
	Save(ctx context.Context, uid string, letter *model.CoverLetter) (string, error)
	List(ctx context.Context, uid string, limit int) ([]model.CoverLetter, error)
	Get(ctx context.Context, uid, id string) (*model.CoverLetter, error)
	UpdateContent(ctx context.Context, uid, id, content string) (*model.CoverLetter, error)
	Delete(ctx context.Context, uid, id string) (bool, error)
}

type ApplicationStore interface {
	Create(ctx context.Context, uid string, app *model.Application) (*model.Application, error)
	List(ctx context.Context, uid string, limit int) ([]model.Application, error)
	Get(ctx context.Context, uid, id string) (*model.Application, error)
	Update(ctx context.Context, uid, id string, upd repository.ApplicationUpdate) (*model.Application, error)
	Delete(ctx context.Context, uid, id string) (bool, error)
}

// Entitler gates the paid AI features
type Entitler interface {
	Authorize(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string)
}

// respondGateError writes the response for a failed entitlement check and
// reports whether err was non-nil.
func respondGateError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, service.ErrEntitlementExhausted):
		c.JSON(http.StatusPaymentRequired, service.NewExhaustedPayload())
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
	return true
}

// respondValidation maps document/photo validation failures to 400 and
// reports whether err was handled.
func respondValidation(c *gin.Context, err error) bool {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
		return true
	}
	return false
}

const minJobDescriptionLen = 50
