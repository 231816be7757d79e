package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
)

// UsageStore is the slice of UserRepo the entitlement gate needs
type UsageStore interface {
	Get(ctx context.Context, uid string) (*model.User, error)
	ConsumeFreeUse(ctx context.Context, uid string) (int, error)
	RefundFreeUse(ctx context.Context, uid string) error
}

// ErrEntitlementExhausted is returned by Authorize when a free user has no
// uses left. Handlers translate it to HTTP 402 with ExhaustedPayload.
var ErrEntitlementExhausted = errors.New("free AI uses exhausted")

// ExhaustedPayload is the response body for an exhausted entitlement
type ExhaustedPayload struct {
	Message           string `json:"message"`
	FreeUsesRemaining int    `json:"free_uses_remaining"`
	UpgradeURL        string `json:"upgrade_url"`
}

func NewExhaustedPayload() ExhaustedPayload {
	return ExhaustedPayload{
		Message:           "You've used all your free AI uses. Upgrade to Premium for unlimited access.",
		FreeUsesRemaining: 0,
		UpgradeURL:        "/pricing",
	}
}

// EntitlementService gates the paid AI features (CV optimization, cover
// letter generation, photo enhancement). ATS analysis is always free and
// never passes through here.
type EntitlementService struct {
	store UsageStore
}

func NewEntitlementService(store UsageStore) *EntitlementService {
	return &EntitlementService{store: store}
}

// Authorize allows or denies one AI use.
//
// Premium users always pass with no state change. Free users consume one
// use via a transactional decrement-if-positive, so two concurrent
// requests against a counter of 1 cannot both succeed and the counter is
// never observed negative. Returns repository.ErrNotFound when the user
// document is absent and ErrEntitlementExhausted when the counter is zero.
func (s *EntitlementService) Authorize(ctx context.Context, uid string) error {
	user, err := s.store.Get(ctx, uid)
	if err != nil {
		return fmt.Errorf("loading user for entitlement: %w", err)
	}
	if user == nil {
		return repository.ErrNotFound
	}

	if user.Plan == model.PlanPremium {
		return nil
	}

	remaining, err := s.store.ConsumeFreeUse(ctx, uid)
	if errors.Is(err, repository.ErrNoFreeUses) {
		return ErrEntitlementExhausted
	}
	if err != nil {
		return fmt.Errorf("consuming free use: %w", err)
	}

	log.Info().Str("uid", uid).Int("remaining", remaining).Msg("Free AI use consumed")
	return nil
}

// Refund credits one use back after a gated operation failed downstream.
// Premium users are skipped since Authorize never charged them. Refund
// failures are logged, not propagated: the caller is already handling the
// original error.
func (s *EntitlementService) Refund(ctx context.Context, uid string) {
	user, err := s.store.Get(ctx, uid)
	if err != nil || user == nil || user.Plan == model.PlanPremium {
		return
	}

	if err := s.store.RefundFreeUse(ctx, uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Failed to refund free use")
		return
	}
	log.Info().Str("uid", uid).Msg("Free AI use refunded after downstream failure")
}
