package model

import (
	"time"
)

// Subscription plan constants
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// User is the profile document stored at users/{uid}.
// The Firebase Auth UID is the document ID.
type User struct {
	UID               string    `json:"uid" firestore:"-"`
	Email             string    `json:"email" firestore:"email"`
	DisplayName       string    `json:"displayName" firestore:"displayName"`
	PhotoURL          string    `json:"photoUrl,omitempty" firestore:"photoURL"`
	Plan              string    `json:"plan" firestore:"plan"`
	FreeUsesRemaining int       `json:"freeUsesRemaining" firestore:"freeUsesRemaining"`
	StripeCustomerID  string    `json:"-" firestore:"stripeCustomerId"`
	ConsentTerms      bool      `json:"consentTerms" firestore:"consentTerms"`
	ConsentMarketing  bool      `json:"consentMarketing" firestore:"consentMarketing"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// UserUpdate carries the mutable profile fields. Nil means "leave unchanged".
type UserUpdate struct {
	DisplayName      *string `json:"displayName"`
	ConsentMarketing *bool   `json:"consentMarketing"`
}

// ── CV analysis ────────────────────────────────────────

// KeywordMatch is one keyword checked against the CV
type KeywordMatch struct {
	Keyword    string `json:"keyword" firestore:"keyword"`
	Found      bool   `json:"found" firestore:"found"`
	Importance string `json:"importance" firestore:"importance"` // low, medium, high
	Suggestion string `json:"suggestion,omitempty" firestore:"suggestion,omitempty"`
}

// CVSection is per-section feedback from the analysis
type CVSection struct {
	Name        string   `json:"name" firestore:"name"`
	Score       int      `json:"score" firestore:"score"`
	Feedback    string   `json:"feedback" firestore:"feedback"`
	Suggestions []string `json:"suggestions" firestore:"suggestions"`
}

// CVAnalysis is a full analysis result, persisted under
// users/{uid}/cv_analyses for authenticated callers.
// Immutable after creation except for deletion.
type CVAnalysis struct {
	ID               string         `json:"id,omitempty" firestore:"-"`
	UserID           string         `json:"userId,omitempty" firestore:"userId"`
	OverallScore     int            `json:"overallScore" firestore:"overallScore"`
	ATSCompatibility int            `json:"atsCompatibility" firestore:"atsCompatibility"`
	KeywordMatches   []KeywordMatch `json:"keywordMatches" firestore:"keywordMatches"`
	MissingKeywords  []string       `json:"missingKeywords" firestore:"missingKeywords"`
	Sections         []CVSection    `json:"sections" firestore:"sections"`
	Summary          string         `json:"summary" firestore:"summary"`
	ImprovementTips  []string       `json:"improvementTips" firestore:"improvementTips"`
	CreatedAt        time.Time      `json:"createdAt" firestore:"createdAt"`
}

// CVAnalysisPreview is the truncated result returned to anonymous callers.
// Never persisted.
type CVAnalysisPreview struct {
	OverallScore    int            `json:"overallScore"`
	PreviewKeywords []KeywordMatch `json:"previewKeywords"`
	SummaryPreview  string         `json:"summaryPreview"`
	UpgradeMessage  string         `json:"upgradeMessage"`
}

// ── Optimized CV (transient, PDF-render input only) ────

type OptimizedCVSection struct {
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Period       string   `json:"period"`
	Bullets      []string `json:"bullets,omitempty"`
	Details      string   `json:"details,omitempty"`
}

type OptimizedCV struct {
	ContactName     string               `json:"contactName"`
	ContactEmail    string               `json:"contactEmail,omitempty"`
	ContactPhone    string               `json:"contactPhone,omitempty"`
	ContactLocation string               `json:"contactLocation,omitempty"`
	ContactLinkedin string               `json:"contactLinkedin,omitempty"`
	Summary         string               `json:"summary"`
	Experience      []OptimizedCVSection `json:"experience"`
	Education       []OptimizedCVSection `json:"education"`
	Skills          []string             `json:"skills"`
	Certifications  []string             `json:"certifications"`
	EstimatedScore  int                  `json:"estimatedScore"`
}

// CV export templates
const (
	TemplateMinimalist = "minimalist"
	TemplateExecutive  = "executive"
	TemplateClassic    = "classic"
)

func ValidTemplate(t string) bool {
	switch t {
	case TemplateMinimalist, TemplateExecutive, TemplateClassic:
		return true
	}
	return false
}

// ── Cover letters ──────────────────────────────────────

// CoverLetter is stored under users/{uid}/cover_letters
type CoverLetter struct {
	ID          string    `json:"id,omitempty" firestore:"-"`
	UserID      string    `json:"userId,omitempty" firestore:"userId"`
	JobTitle    string    `json:"jobTitle" firestore:"jobTitle"`
	CompanyName string    `json:"companyName" firestore:"companyName"`
	Tone        string    `json:"tone" firestore:"tone"`
	Content     string    `json:"content" firestore:"content"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// ── Applications ───────────────────────────────────────

// Valid application statuses
const (
	StatusSaved     = "saved"
	StatusApplied   = "applied"
	StatusInterview = "interview"
	StatusOffer     = "offer"
	StatusRejected  = "rejected"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusSaved, StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Application is a tracked job application, stored under
// users/{uid}/applications
type Application struct {
	ID            string    `json:"id,omitempty" firestore:"-"`
	UserID        string    `json:"userId,omitempty" firestore:"userId"`
	CompanyName   string    `json:"companyName" firestore:"companyName"`
	Position      string    `json:"position" firestore:"position"`
	Status        string    `json:"status" firestore:"status"`
	JobURL        string    `json:"jobUrl,omitempty" firestore:"jobUrl,omitempty"`
	CVAnalysisID  string    `json:"cvAnalysisId,omitempty" firestore:"cvAnalysisId,omitempty"`
	CoverLetterID string    `json:"coverLetterId,omitempty" firestore:"coverLetterId,omitempty"`
	Notes         string    `json:"notes,omitempty" firestore:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// ── Subscription / plan status ─────────────────────────

// PlanStatus is the combined plan + free uses view for the frontend
type PlanStatus struct {
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	FreeUsesRemaining  int    `json:"freeUsesRemaining"`
}

// ── Dashboard stats ────────────────────────────────────

type Completeness struct {
	HasCV          bool `json:"hasCv"`
	HasPhoto       bool `json:"hasPhoto"`
	HasLetter      bool `json:"hasLetter"`
	HasApplication bool `json:"hasApplication"`
}

// UserStats aggregates per-user record counts for the dashboard
type UserStats struct {
	CVCount          int          `json:"cvCount"`
	LetterCount      int          `json:"letterCount"`
	PhotoCount       int          `json:"photoCount"`
	ApplicationCount int          `json:"applicationCount"`
	LatestCVScore    *int         `json:"latestCvScore"`
	Completeness     Completeness `json:"completeness"`
}
