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

const applicationsSubcollection = "applications"

// ApplicationUpdate carries partial-update fields for an application.
// Nil pointers leave the stored value unchanged.
type ApplicationUpdate struct {
	CompanyName   *string `json:"companyName"`
	Position      *string `json:"position"`
	Status        *string `json:"status"`
	JobURL        *string `json:"jobUrl"`
	CVAnalysisID  *string `json:"cvAnalysisId"`
	CoverLetterID *string `json:"coverLetterId"`
	Notes         *string `json:"notes"`
}

// ApplicationRepo stores tracked job applications under
// users/{uid}/applications.
type ApplicationRepo struct {
	client *firestore.Client
}

func NewApplicationRepo(client *firestore.Client) *ApplicationRepo {
	return &ApplicationRepo{client: client}
}

func (r *ApplicationRepo) col(uid string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(applicationsSubcollection)
}

// Create persists a new application and returns it with its generated ID
func (r *ApplicationRepo) Create(ctx context.Context, uid string, app *model.Application) (*model.Application, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	app.UserID = uid
	app.CreatedAt = now
	app.UpdatedAt = now

	if _, err := r.col(uid).Doc(id).Create(ctx, app); err != nil {
		return nil, fmt.Errorf("creating application: %w", err)
	}
	app.ID = id
	return app, nil
}

// List returns the user's applications, newest first
func (r *ApplicationRepo) List(ctx context.Context, uid string, limit int) ([]model.Application, error) {
	iter := r.col(uid).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	apps := []model.Application{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return apps, nil
		}
		if err != nil {
			return nil, fmt.Errorf("listing applications: %w", err)
		}

		var a model.Application
		if err := snap.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decoding application: %w", err)
		}
		a.ID = snap.Ref.ID
		apps = append(apps, a)
	}
}

// Get looks up one application. Returns (nil, nil) when absent.
func (r *ApplicationRepo) Get(ctx context.Context, uid, id string) (*model.Application, error) {
	snap, err := r.col(uid).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting application: %w", err)
	}

	var a model.Application
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decoding application: %w", err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

// Update applies a partial update. Returns (nil, nil) when absent.
func (r *ApplicationRepo) Update(ctx context.Context, uid, id string, upd ApplicationUpdate) (*model.Application, error) {
	updates := []firestore.Update{}
	if upd.CompanyName != nil {
		updates = append(updates, firestore.Update{Path: "companyName", Value: *upd.CompanyName})
	}
	if upd.Position != nil {
		updates = append(updates, firestore.Update{Path: "position", Value: *upd.Position})
	}
	if upd.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *upd.Status})
	}
	if upd.JobURL != nil {
		updates = append(updates, firestore.Update{Path: "jobUrl", Value: *upd.JobURL})
	}
	if upd.CVAnalysisID != nil {
		updates = append(updates, firestore.Update{Path: "cvAnalysisId", Value: *upd.CVAnalysisID})
	}
	if upd.CoverLetterID != nil {
		updates = append(updates, firestore.Update{Path: "coverLetterId", Value: *upd.CoverLetterID})
	}
	if upd.Notes != nil {
		updates = append(updates, firestore.Update{Path: "notes", Value: *upd.Notes})
	}

	if len(updates) > 0 {
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})
		_, err := r.col(uid).Doc(id).Update(ctx, updates)
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("updating application: %w", err)
		}
	}

	return r.Get(ctx, uid, id)
}

// Delete removes one application. Returns false when it did not exist.
func (r *ApplicationRepo) Delete(ctx context.Context, uid, id string) (bool, error) {
	ref := r.col(uid).Doc(id)

	_, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking application: %w", err)
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, fmt.Errorf("deleting application: %w", err)
	}
	return true, nil
}
