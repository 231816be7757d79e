package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v81"
	billingportalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	stripecustomer "github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/yourusername/recruitai-api/internal/config"
	"github.com/yourusername/recruitai-api/internal/model"
)

// PlanStore is the slice of UserRepo the billing service needs
type PlanStore interface {
	Get(ctx context.Context, uid string) (*model.User, error)
	UpdatePlan(ctx context.Context, uid, plan string) error
	UpdateStripeCustomerID(ctx context.Context, uid, customerID string) error
	FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
}

// StripeService handles checkout, the billing portal and webhook-driven
// plan transitions. Webhook handlers set the plan to an absolute value, so
// redelivered events are naturally idempotent.
type StripeService struct {
	cfg   *config.Config
	users PlanStore
}

func NewStripeService(cfg *config.Config, users PlanStore) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{cfg: cfg, users: users}
}

// GetOrCreateCustomer ensures a Stripe customer exists for the user and
// returns its ID. The mapping is stored on the user document.
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, uid, email string) (string, error) {
	user, err := s.users.Get(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}
	if user != nil && user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.AddMetadata("firebase_uid", uid)

	cust, err := stripecustomer.New(params)
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}

	if err := s.users.UpdateStripeCustomerID(ctx, uid, cust.ID); err != nil {
		return "", fmt.Errorf("saving stripe customer id: %w", err)
	}

	log.Info().Str("uid", uid).Str("stripeId", cust.ID).Msg("Stripe customer created")
	return cust.ID, nil
}

// CreateCheckoutSession builds a subscription Checkout Session for the
// premium plan and returns its URL
func (s *StripeService) CreateCheckoutSession(ctx context.Context, uid, email string) (string, error) {
	if s.cfg.StripePricePremium == "" {
		return "", fmt.Errorf("premium price not configured")
	}

	customerID, err := s.GetOrCreateCustomer(ctx, uid, email)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.StripePricePremium),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.FrontendURL + "?checkout=success"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "?checkout=cancel"),
	}
	params.AddMetadata("firebase_uid", uid)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	log.Info().Str("uid", uid).Msg("Checkout session created")
	return sess.URL, nil
}

// CreatePortalSession builds a Billing Portal session and returns its URL.
// Fails when the user has no Stripe customer yet.
func (s *StripeService) CreatePortalSession(ctx context.Context, uid string) (string, error) {
	user, err := s.users.Get(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}
	if user == nil || user.StripeCustomerID == "" {
		return "", fmt.Errorf("no stripe customer found for user")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.FrontendURL),
	}

	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return sess.URL, nil
}

// VerifyWebhook checks the Stripe signature and returns the event.
// Verification failures are terminal: an unsigned event is never processed.
func (s *StripeService) VerifyWebhook(body io.Reader, signature string) (*stripe.Event, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading webhook body: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.StripeWebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verifying webhook signature: %w", err)
	}
	return &event, nil
}

// HandleWebhookEvent dispatches a verified Stripe event
func (s *StripeService) HandleWebhookEvent(ctx context.Context, event *stripe.Event) error {
	log.Info().
		Str("type", string(event.Type)).
		Str("id", event.ID).
		Msg("Processing Stripe webhook")

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		log.Debug().Str("type", string(event.Type)).Msg("Ignoring unhandled webhook type")
		return nil
	}
}

func (s *StripeService) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("unmarshaling checkout session: %w", err)
	}

	uid := session.Metadata["firebase_uid"]
	if uid == "" {
		log.Warn().Str("eventId", event.ID).Msg("Checkout completed without firebase_uid metadata")
		return nil
	}

	if err := s.users.UpdatePlan(ctx, uid, model.PlanPremium); err != nil {
		return fmt.Errorf("upgrading plan: %w", err)
	}

	log.Info().Str("uid", uid).Msg("Plan upgraded to premium via checkout")
	return nil
}

func (s *StripeService) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var sub struct {
		Customer string `json:"customer"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshaling subscription event: %w", err)
	}

	user, err := s.users.FindByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		return fmt.Errorf("looking up customer: %w", err)
	}
	if user == nil {
		log.Warn().Str("stripeCustomer", sub.Customer).Msg("Webhook for unknown customer")
		return nil
	}

	switch sub.Status {
	case "active":
		if err := s.users.UpdatePlan(ctx, user.UID, model.PlanPremium); err != nil {
			return fmt.Errorf("upgrading plan: %w", err)
		}
	case "canceled", "unpaid", "past_due":
		if err := s.users.UpdatePlan(ctx, user.UID, model.PlanFree); err != nil {
			return fmt.Errorf("downgrading plan: %w", err)
		}
	default:
		log.Debug().Str("status", sub.Status).Msg("Ignoring subscription status")
		return nil
	}

	log.Info().Str("uid", user.UID).Str("status", sub.Status).Msg("Plan updated via subscription webhook")
	return nil
}

func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshaling subscription deleted event: %w", err)
	}

	user, err := s.users.FindByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		return fmt.Errorf("looking up customer: %w", err)
	}
	if user == nil {
		log.Warn().Str("stripeCustomer", sub.Customer).Msg("Deletion webhook for unknown customer")
		return nil
	}

	if err := s.users.UpdatePlan(ctx, user.UID, model.PlanFree); err != nil {
		return fmt.Errorf("downgrading plan: %w", err)
	}

	log.Info().Str("uid", user.UID).Msg("Plan downgraded to free via subscription deletion")
	return nil
}

func (s *StripeService) handlePaymentFailed(ctx context.Context, event *stripe.Event) error {
	// The plan transition happens on customer.subscription.updated once
	// Stripe marks the subscription past_due. Here we only log.
	var invoice struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshaling invoice event: %w", err)
	}

	log.Warn().Str("stripeCustomer", invoice.Customer).Msg("Invoice payment failed")
	return nil
}
