package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const (
	// ContextKeyUID is the key for the Firebase UID in the Gin context
	ContextKeyUID = "uid"
	// ContextKeyEmail is the key for the token email claim
	ContextKeyEmail = "email"
	// ContextKeyName is the key for the token name claim
	ContextKeyName = "name"
	// ContextKeyPicture is the key for the token picture claim
	ContextKeyPicture = "picture"
)

// AuthMiddleware validates Firebase ID tokens and injects identity claims
// into the request context. The Firebase UID doubles as the Firestore
// document ID for the user's record.
type AuthMiddleware struct {
	client *auth.Client
}

// NewAuthMiddleware creates a new Firebase auth middleware
func NewAuthMiddleware(projectID string) (*AuthMiddleware, error) {
	ctx := context.Background()

	var app *firebase.App
	var err error

	if projectID != "" {
		conf := &firebase.Config{ProjectID: projectID}
		app, err = firebase.NewApp(ctx, conf)
	} else {
		// Falls back to GOOGLE_APPLICATION_CREDENTIALS or default credentials
		app, err = firebase.NewApp(ctx, nil, option.WithoutAuthentication())
	}

	if err != nil {
		return nil, err
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	return &AuthMiddleware{client: client}, nil
}

// AuthClient exposes the underlying Firebase auth client for account
// operations (user deletion).
func (am *AuthMiddleware) AuthClient() *auth.Client {
	return am.client
}

// Authenticate rejects requests without a valid bearer token
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := am.verifyBearer(c)
		if !ok {
			return
		}
		setClaims(c, token)
		c.Next()
	}
}

// OptionalAuthenticate injects identity when a valid token is present and
// lets anonymous requests through. Used by CV analysis, which branches
// between full and preview results on caller identity.
func (am *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Next()
			return
		}

		token, err := am.client.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			// A bad token on an optional route downgrades to anonymous
			log.Debug().Err(err).Msg("Ignoring invalid token on optional route")
			c.Next()
			return
		}

		setClaims(c, token)
		c.Next()
	}
}

func (am *AuthMiddleware) verifyBearer(c *gin.Context) (*auth.Token, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Missing Authorization header",
		})
		return nil, false
	}

	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid Authorization header format",
		})
		return nil, false
	}

	token, err := am.client.VerifyIDToken(c.Request.Context(), parts[1])
	if err != nil {
		log.Warn().Err(err).Msg("Failed to verify Firebase token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired token",
		})
		return nil, false
	}

	return token, true
}

func setClaims(c *gin.Context, token *auth.Token) {
	c.Set(ContextKeyUID, token.UID)
	if email, ok := token.Claims["email"].(string); ok {
		c.Set(ContextKeyEmail, email)
	}
	if name, ok := token.Claims["name"].(string); ok {
		c.Set(ContextKeyName, name)
	}
	if pic, ok := token.Claims["picture"].(string); ok {
		c.Set(ContextKeyPicture, pic)
	}
}

// GetUID extracts the Firebase UID from the Gin context.
// Empty string means the request is anonymous.
func GetUID(c *gin.Context) string {
	uid, _ := c.Get(ContextKeyUID)
	if s, ok := uid.(string); ok {
		return s
	}
	return ""
}

// GetEmail extracts the token email claim from the Gin context
func GetEmail(c *gin.Context) string {
	email, _ := c.Get(ContextKeyEmail)
	if s, ok := email.(string); ok {
		return s
	}
	return ""
}
