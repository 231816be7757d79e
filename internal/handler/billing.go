package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
	"github.com/yourusername/recruitai-api/internal/service"
)

type BillingHandler struct {
	stripe   *service.StripeService
	userRepo *repository.UserRepo
}

func NewBillingHandler(stripe *service.StripeService, userRepo *repository.UserRepo) *BillingHandler {
	return &BillingHandler{stripe: stripe, userRepo: userRepo}
}

// Status handles GET /subscriptions/status
func (h *BillingHandler) Status(c *gin.Context) {
	uid := middleware.GetUID(c)

	user, err := h.userRepo.Get(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":   user.Plan,
		"status": "active",
	})
}

// PlanStatus handles GET /subscriptions/plan-status
// Combined plan + free uses view for the frontend.
func (h *BillingHandler) PlanStatus(c *gin.Context) {
	uid := middleware.GetUID(c)

	user, err := h.userRepo.Get(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	subStatus := "none"
	if user.Plan == model.PlanPremium {
		subStatus = "active"
	}

	c.JSON(http.StatusOK, model.PlanStatus{
		Plan:               user.Plan,
		SubscriptionStatus: subStatus,
		FreeUsesRemaining:  user.FreeUsesRemaining,
	})
}

// Checkout handles POST /subscriptions/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	uid := middleware.GetUID(c)

	email := middleware.GetEmail(c)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User email is required for checkout"})
		return
	}

	url, err := h.stripe.CreateCheckoutSession(c.Request.Context(), uid, email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create checkout session")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkoutUrl": url})
}

// Portal handles POST /subscriptions/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	uid := middleware.GetUID(c)

	url, err := h.stripe.CreatePortalSession(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create portal session")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No subscription found. Please subscribe first."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"portalUrl": url})
}

// Webhook handles POST /subscriptions/webhook
// Unauthenticated; trust comes from the Stripe signature header.
func (h *BillingHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe signature"})
		return
	}

	event, err := h.stripe.VerifyWebhook(c.Request.Body, signature)
	if err != nil {
		log.Warn().Err(err).Msg("Webhook verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if err := h.stripe.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		log.Error().Err(err).Str("eventId", event.ID).Msg("Webhook handling failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
