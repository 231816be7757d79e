package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Firebase
	FirebaseProjectID string

	// Claude API
	ClaudeAPIKey  string
	ClaudeBaseURL string
	ClaudeModel   string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePricePremium  string

	// Background removal service (rembg-compatible HTTP endpoint)
	RembgURL string

	// Freemium
	FreeAIUses int

	// Uploads
	MaxUploadMB int

	// Rate Limiting
	RateLimitRPS int

	// Frontend
	FrontendURL    string
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (development only)
	loadEnvFile(".env")

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		ClaudeAPIKey:        getEnv("CLAUDE_API_KEY", ""),
		ClaudeBaseURL:       getEnv("CLAUDE_BASE_URL", "https://api.anthropic.com"),
		ClaudeModel:         getEnv("CLAUDE_MODEL", "claude-sonnet-4-5-20250929"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePricePremium:  getEnv("STRIPE_PRICE_ID_PREMIUM", ""),
		RembgURL:            getEnv("REMBG_URL", ""),
		FreeAIUses:          getEnvInt("FREE_AI_USES", 3),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 10),
		RateLimitRPS:        getEnvInt("RATE_LIMIT_RPS", 10),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: []string{
			"http://localhost:3000",
			"https://recruitai.app",
		},
	}

	if cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	return cfg, nil
}

// loadEnvFile reads a .env file and sets environment variables.
// Silently skips if the file doesn't exist (production uses real env vars).
func loadEnvFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on first = sign
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't overwrite existing env vars (real env takes precedence)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
