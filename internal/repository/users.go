package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yourusername/recruitai-api/internal/model"
)

const usersCollection = "users"

// Subcollections cascaded on account deletion
var userSubcollections = []string{
	"cv_analyses",
	"cover_letters",
	"photos",
	"applications",
}

type UserRepo struct {
	client *firestore.Client
}

func NewUserRepo(client *firestore.Client) *UserRepo {
	return &UserRepo{client: client}
}

func (r *UserRepo) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(uid)
}

// Get looks up a user by Firebase UID. Returns (nil, nil) when absent.
func (r *UserRepo) Get(ctx context.Context, uid string) (*model.User, error) {
	snap, err := r.doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	var u model.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	u.UID = snap.Ref.ID
	return &u, nil
}

// Create provisions a new user document keyed by the Firebase UID
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := r.doc(u.UID).Create(ctx, u); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// Update applies the mutable profile fields and returns the fresh record
func (r *UserRepo) Update(ctx context.Context, uid string, upd model.UserUpdate) (*model.User, error) {
	updates := []firestore.Update{}
	if upd.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *upd.DisplayName})
	}
	if upd.ConsentMarketing != nil {
		updates = append(updates, firestore.Update{Path: "consentMarketing", Value: *upd.ConsentMarketing})
	}

	if len(updates) > 0 {
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})
		if _, err := r.doc(uid).Update(ctx, updates); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}

	return r.Get(ctx, uid)
}

// UpdatePlan sets the user's plan to an absolute value. Used only by the
// Stripe webhook handlers and checkout completion, which makes webhook
// redelivery naturally idempotent.
func (r *UserRepo) UpdatePlan(ctx context.Context, uid, plan string) error {
	_, err := r.doc(uid).Update(ctx, []firestore.Update{
		{Path: "plan", Value: plan},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return nil
}

// UpdateStripeCustomerID stores the payment-provider customer mapping
func (r *UserRepo) UpdateStripeCustomerID(ctx context.Context, uid, customerID string) error {
	_, err := r.doc(uid).Update(ctx, []firestore.Update{
		{Path: "stripeCustomerId", Value: customerID},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("updating stripe customer id: %w", err)
	}
	return nil
}

// FindByStripeCustomerID looks up the user owning a Stripe customer record.
// Returns (nil, nil) when no user matches.
func (r *UserRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	iter := r.client.Collection(usersCollection).
		Where("stripeCustomerId", "==", customerID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by stripe customer id: %w", err)
	}

	var u model.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	u.UID = snap.Ref.ID
	return &u, nil
}

// ConsumeFreeUse decrements freeUsesRemaining by one inside a transaction,
// failing with ErrNoFreeUses when the counter is already zero. The
// conditional decrement runs as a single transactional read-update so
// concurrent requests for the same user cannot both observe a positive
// counter. Returns the remaining count after the decrement.
func (r *UserRepo) ConsumeFreeUse(ctx context.Context, uid string) (int, error) {
	ref := r.doc(uid)
	var remaining int

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var u model.User
		if err := snap.DataTo(&u); err != nil {
			return err
		}

		if u.FreeUsesRemaining <= 0 {
			return ErrNoFreeUses
		}

		remaining = u.FreeUsesRemaining - 1
		return tx.Update(ref, []firestore.Update{
			{Path: "freeUsesRemaining", Value: remaining},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// RefundFreeUse credits one use back. Called when a gated operation fails
// downstream after the counter was already consumed.
func (r *UserRepo) RefundFreeUse(ctx context.Context, uid string) error {
	ref := r.doc(uid)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var u model.User
		if err := snap.DataTo(&u); err != nil {
			return err
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "freeUsesRemaining", Value: u.FreeUsesRemaining + 1},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
}

// DeleteAllData removes the user document and every record under it.
// Supports account deletion (GDPR).
func (r *UserRepo) DeleteAllData(ctx context.Context, uid string) error {
	userRef := r.doc(uid)

	for _, sub := range userSubcollections {
		iter := userRef.Collection(sub).Documents(ctx)
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return fmt.Errorf("listing %s for deletion: %w", sub, err)
			}
			if _, err := snap.Ref.Delete(ctx); err != nil {
				iter.Stop()
				return fmt.Errorf("deleting %s/%s: %w", sub, snap.Ref.ID, err)
			}
		}
		iter.Stop()
	}

	if _, err := userRef.Delete(ctx); err != nil {
		return fmt.Errorf("deleting user document: %w", err)
	}
	return nil
}

// CountStats aggregates subcollection counts and the latest analysis score
// for the dashboard.
func (r *UserRepo) CountStats(ctx context.Context, uid string) (*model.UserStats, error) {
	userRef := r.doc(uid)

	counts := map[string]int{}
	for _, sub := range userSubcollections {
		n, err := r.countDocs(ctx, userRef.Collection(sub))
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", sub, err)
		}
		counts[sub] = n
	}

	stats := &model.UserStats{
		CVCount:          counts["cv_analyses"],
		LetterCount:      counts["cover_letters"],
		PhotoCount:       counts["photos"],
		ApplicationCount: counts["applications"],
		Completeness: model.Completeness{
			HasCV:          counts["cv_analyses"] > 0,
			HasPhoto:       counts["photos"] > 0,
			HasLetter:      counts["cover_letters"] > 0,
			HasApplication: counts["applications"] > 0,
		},
	}

	if stats.CVCount > 0 {
		iter := userRef.Collection("cv_analyses").
			OrderBy("createdAt", firestore.Desc).
			Limit(1).
			Documents(ctx)
		snap, err := iter.Next()
		iter.Stop()
		if err == nil {
			var a model.CVAnalysis
			if err := snap.DataTo(&a); err == nil {
				score := a.OverallScore
				stats.LatestCVScore = &score
			}
		}
	}

	return stats, nil
}

func (r *UserRepo) countDocs(ctx context.Context, col *firestore.CollectionRef) (int, error) {
	iter := col.Limit(100).Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		n++
	}
}
