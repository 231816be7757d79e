package handler

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/model"
	"github.com/yourusername/recruitai-api/internal/repository"
)

type AuthHandler struct {
	userRepo   *repository.UserRepo
	freeAIUses int
}

func NewAuthHandler(userRepo *repository.UserRepo, freeAIUses int) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, freeAIUses: freeAIUses}
}

// Session handles POST /auth/session
// Creates or fetches the user profile from Firebase token claims
func (h *AuthHandler) Session(c *gin.Context) {
	uid := middleware.GetUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.userRepo.Get(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	if user == nil {
		var req struct {
			ConsentTerms     bool `json:"consentTerms"`
			ConsentMarketing bool `json:"consentMarketing"`
		}
		c.ShouldBindJSON(&req)

		user = &model.User{
			UID:               uid,
			Email:             middleware.GetEmail(c),
			DisplayName:       c.GetString(middleware.ContextKeyName),
			PhotoURL:          c.GetString(middleware.ContextKeyPicture),
			Plan:              model.PlanFree,
			FreeUsesRemaining: h.freeAIUses,
			ConsentTerms:      req.ConsentTerms,
			ConsentMarketing:  req.ConsentMarketing,
		}
		if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
			log.Error().Err(err).Msg("Failed to create user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		log.Info().Str("uid", uid).Msg("New user created")
		c.JSON(http.StatusCreated, user)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UserHandler handles the /users/me surface
type UserHandler struct {
	userRepo   *repository.UserRepo
	authClient *auth.Client
}

func NewUserHandler(userRepo *repository.UserRepo, authClient *auth.Client) *UserHandler {
	return &UserHandler{userRepo: userRepo, authClient: authClient}
}

// Me handles GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	uid := middleware.GetUID(c)

	user, err := h.userRepo.Get(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User profile not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	uid := middleware.GetUID(c)

	var upd model.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userRepo.Update(c.Request.Context(), uid, upd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User profile not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteMe handles DELETE /users/me
// Removes all stored data and the Firebase Auth account (GDPR)
func (h *UserHandler) DeleteMe(c *gin.Context) {
	uid := middleware.GetUID(c)

	if err := h.userRepo.DeleteAllData(c.Request.Context(), uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Failed to delete user data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account data"})
		return
	}

	if err := h.authClient.DeleteUser(c.Request.Context(), uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Failed to delete auth account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete authentication account"})
		return
	}

	log.Info().Str("uid", uid).Msg("Account deleted")
	c.Status(http.StatusNoContent)
}

// Stats handles GET /users/me/stats
func (h *UserHandler) Stats(c *gin.Context) {
	uid := middleware.GetUID(c)

	stats, err := h.userRepo.CountStats(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
