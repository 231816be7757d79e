package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yourusername/recruitai-api/internal/model"
)

const analysesSubcollection = "cv_analyses"

// AnalysisRepo stores CV analysis results under users/{uid}/cv_analyses.
// Records are immutable after creation; only deletion mutates the set.
type AnalysisRepo struct {
	client *firestore.Client
}

func NewAnalysisRepo(client *firestore.Client) *AnalysisRepo {
	return &AnalysisRepo{client: client}
}

func (r *AnalysisRepo) col(uid string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(analysesSubcollection)
}

// Save persists a new analysis and returns its generated ID
func (r *AnalysisRepo) Save(ctx context.Context, uid string, a *model.CVAnalysis) (string, error) {
	id := uuid.NewString()
	a.UserID = uid
	a.CreatedAt = time.Now().UTC()

	if _, err := r.col(uid).Doc(id).Create(ctx, a); err != nil {
		return "", fmt.Errorf("saving analysis: %w", err)
	}
	a.ID = id
	return id, nil
}

// List returns the user's analyses, newest first
func (r *AnalysisRepo) List(ctx context.Context, uid string, limit int) ([]model.CVAnalysis, error) {
	iter := r.col(uid).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	analyses := []model.CVAnalysis{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return analyses, nil
		}
		if err != nil {
			return nil, fmt.Errorf("listing analyses: %w", err)
		}

		var a model.CVAnalysis
		if err := snap.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
		a.ID = snap.Ref.ID
		analyses = append(analyses, a)
	}
}

// Get looks up one analysis. Returns (nil, nil) when absent.
func (r *AnalysisRepo) Get(ctx context.Context, uid, id string) (*model.CVAnalysis, error) {
	snap, err := r.col(uid).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}

	var a model.CVAnalysis
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

// Delete removes one analysis. Returns false when it did not exist.
func (r *AnalysisRepo) Delete(ctx context.Context, uid, id string) (bool, error) {
	ref := r.col(uid).Doc(id)

	_, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking analysis: %w", err)
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, fmt.Errorf("deleting analysis: %w", err)
	}
	return true, nil
}
