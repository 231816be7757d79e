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

const coverLettersSubcollection = "cover_letters"

// CoverLetterRepo stores generated cover letters under
// users/{uid}/cover_letters. Content is mutable via Update.
type CoverLetterRepo struct {
	client *firestore.Client
}

func NewCoverLetterRepo(client *firestore.Client) *CoverLetterRepo {
	return &CoverLetterRepo{client: client}
}

func (r *CoverLetterRepo) col(uid string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(coverLettersSubcollection)
}

// Save persists a new cover letter and returns its generated ID
func (r *CoverLetterRepo) Save(ctx context.Context, uid string, letter *model.CoverLetter) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	letter.UserID = uid
	letter.CreatedAt = now
	letter.UpdatedAt = now

	if _, err := r.col(uid).Doc(id).Create(ctx, letter); err != nil {
		return "", fmt.Errorf("saving cover letter: %w", err)
	}
	letter.ID = id
	return id, nil
}

// List returns the user's cover letters, newest first
func (r *CoverLetterRepo) List(ctx context.Context, uid string, limit int) ([]model.CoverLetter, error) {
	iter := r.col(uid).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	letters := []model.CoverLetter{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return letters, nil
		}
		if err != nil {
			return nil, fmt.Errorf("listing cover letters: %w", err)
		}

		var l model.CoverLetter
		if err := snap.DataTo(&l); err != nil {
			return nil, fmt.Errorf("decoding cover letter: %w", err)
		}
		l.ID = snap.Ref.ID
		letters = append(letters, l)
	}
}

// Get looks up one cover letter. Returns (nil, nil) when absent.
func (r *CoverLetterRepo) Get(ctx context.Context, uid, id string) (*model.CoverLetter, error) {
	snap, err := r.col(uid).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cover letter: %w", err)
	}

	var l model.CoverLetter
	if err := snap.DataTo(&l); err != nil {
		return nil, fmt.Errorf("decoding cover letter: %w", err)
	}
	l.ID = snap.Ref.ID
	return &l, nil
}

// UpdateContent replaces the letter body. Returns (nil, nil) when absent.
func (r *CoverLetterRepo) UpdateContent(ctx context.Context, uid, id, content string) (*model.CoverLetter, error) {
	ref := r.col(uid).Doc(id)

	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "content", Value: content},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating cover letter: %w", err)
	}

	return r.Get(ctx, uid, id)
}

// Delete removes one cover letter. Returns false when it did not exist.
func (r *CoverLetterRepo) Delete(ctx context.Context, uid, id string) (bool, error) {
	ref := r.col(uid).Doc(id)

	_, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking cover letter: %w", err)
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, fmt.Errorf("deleting cover letter: %w", err)
	}
	return true, nil
}
