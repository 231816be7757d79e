package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/config"
	"github.com/yourusername/recruitai-api/internal/handler"
	"github.com/yourusername/recruitai-api/internal/middleware"
	"github.com/yourusername/recruitai-api/internal/repository"
	"github.com/yourusername/recruitai-api/internal/service"
)

func main() {
	// ── Logging ──────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// ── Config ───────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting RecruitAI API")

	// ── Firestore ────────────────────────────────────────
	ctx := context.Background()
	fsClient, err := firestore.NewClient(ctx, cfg.FirebaseProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer fsClient.Close()
	log.Info().Str("project", cfg.FirebaseProjectID).Msg("Firestore connected")

	// ── Middleware ───────────────────────────────────────
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.FirebaseProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase auth")
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS)

	// ── Repositories ─────────────────────────────────────
	userRepo := repository.NewUserRepo(fsClient)
	analysisRepo := repository.NewAnalysisRepo(fsClient)
	letterRepo := repository.NewCoverLetterRepo(fsClient)
	appRepo := repository.NewApplicationRepo(fsClient)

	// ── Services ─────────────────────────────────────────
	claude := service.NewClaudeClient(cfg.ClaudeAPIKey, cfg.ClaudeBaseURL, cfg.ClaudeModel)
	aiService := service.NewAIService(claude)
	entitlements := service.NewEntitlementService(userRepo)
	parser := service.NewDocumentParser(cfg.MaxUploadMB)
	pdfRenderer := service.NewPDFRenderer()
	rembg := service.NewRembgClient(cfg.RembgURL)
	photoService := service.NewPhotoService(rembg, cfg.MaxUploadMB)
	stripeService := service.NewStripeService(cfg, userRepo)

	// ── Handlers ─────────────────────────────────────────
	authHandler := handler.NewAuthHandler(userRepo, cfg.FreeAIUses)
	userHandler := handler.NewUserHandler(userRepo, authMiddleware.AuthClient())
	cvHandler := handler.NewCVHandler(parser, aiService, pdfRenderer, entitlements, analysisRepo)
	letterHandler := handler.NewCoverLetterHandler(aiService, entitlements, letterRepo)
	appHandler := handler.NewApplicationHandler(appRepo)
	photoHandler := handler.NewPhotoHandler(photoService, entitlements)
	billingHandler := handler.NewBillingHandler(stripeService, userRepo)

	// ── Router ───────────────────────────────────────────
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	// CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check (unauthenticated)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "recruitai-api",
			"time":    time.Now().UTC(),
		})
	})

	// Stripe webhook: unauthenticated, verified by signature
	r.POST("/subscriptions/webhook", billingHandler.Webhook)

	// CV analysis accepts anonymous callers and returns a preview for them
	r.POST("/cv/analyze", authMiddleware.OptionalAuthenticate(), rateLimiter.Limit(), cvHandler.Analyze)

	// ── Authenticated Routes ─────────────────────────────
	api := r.Group("/", authMiddleware.Authenticate(), rateLimiter.Limit())
	{
		// Auth
		api.POST("/auth/session", authHandler.Session)

		// Profile
		api.GET("/users/me", userHandler.Me)
		api.PATCH("/users/me", userHandler.UpdateMe)
		api.DELETE("/users/me", userHandler.DeleteMe)
		api.GET("/users/me/stats", userHandler.Stats)

		// CV
		api.GET("/cv/analyses", cvHandler.ListAnalyses)
		api.GET("/cv/analyses/:id", cvHandler.GetAnalysis)
		api.DELETE("/cv/analyses/:id", cvHandler.DeleteAnalysis)
		api.POST("/cv/optimize", cvHandler.Optimize)
		api.POST("/cv/export", cvHandler.Export)

		// Cover letters
		api.POST("/cover-letters/generate", letterHandler.Generate)
		api.GET("/cover-letters", letterHandler.List)
		api.GET("/cover-letters/:id", letterHandler.Get)
		api.PUT("/cover-letters/:id", letterHandler.Update)
		api.DELETE("/cover-letters/:id", letterHandler.Delete)

		// Applications
		api.POST("/applications", appHandler.Create)
		api.GET("/applications", appHandler.List)
		api.GET("/applications/:id", appHandler.Get)
		api.PATCH("/applications/:id", appHandler.Update)
		api.DELETE("/applications/:id", appHandler.Delete)

		// Photos
		api.POST("/photos/enhance", photoHandler.Enhance)

		// Subscriptions
		api.GET("/subscriptions/status", billingHandler.Status)
		api.GET("/subscriptions/plan-status", billingHandler.PlanStatus)
		api.POST("/subscriptions/checkout", billingHandler.Checkout)
		api.POST("/subscriptions/portal", billingHandler.Portal)
	}

	// ── Server ───────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("RecruitAI API server running")

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// requestLogger logs every request with zerolog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= 400 {
			event = log.Warn()
		}
		if status >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg(fmt.Sprintf("%s %s", c.Request.Method, path))
	}
}
