package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/recruitai-api/internal/model"
)

const (
	previewKeywordLimit = 3
	previewSummaryChars = 150
	previewUpsell       = "Sign up to see the full analysis: every keyword match, section-by-section feedback, and concrete improvement tips."
)

// jsonObjectPattern grabs the first-to-last brace span so prose around the
// object is tolerated
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// AIService implements the CV analysis, CV optimization and cover letter
// features on top of a text-completion backend. Responses are parsed
// defensively: every missing field defaults to a neutral value and a
// malformed response yields a deterministic fallback, never an error.
type AIService struct {
	gen TextGenerator
}

func NewAIService(gen TextGenerator) *AIService {
	return &AIService{gen: gen}
}

// ── CV analysis ────────────────────────────────────────

const analyzeSystemPrompt = `You are an expert ATS (Applicant Tracking System) analyst. You compare a CV against a job description and score how well the CV would pass automated screening.

Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "overall_score": <number 0-100, how well the CV matches the job>,
  "ats_compatibility": <number 0-100, how parseable the CV is for ATS software>,
  "keyword_matches": [
    {"keyword": "<keyword from the job description>", "found": <true|false>, "importance": "<low|medium|high>", "suggestion": "<how to incorporate it, empty if found>"}
  ],
  "missing_keywords": ["<important keywords absent from the CV>"],
  "sections": [
    {"name": "<section name>", "score": <0-100>, "feedback": "<1-2 sentences>", "suggestions": ["<specific improvement>"]}
  ],
  "summary": "<3-4 sentence overall assessment>",
  "improvement_tips": ["<ordered, actionable tips>"]
}

Rules:
- Extract 10-15 keywords from the job description, ordered by importance.
- Only report what the CV actually contains. Do not invent content.
- Sections to evaluate: contact info, summary, experience, education, skills.
- Be direct and actionable in feedback and tips.`

type analysisPayload struct {
	OverallScore     int    `json:"overall_score"`
	ATSCompatibility int    `json:"ats_compatibility"`
	KeywordMatches   []struct {
		Keyword    string `json:"keyword"`
		Found      bool   `json:"found"`
		Importance string `json:"importance"`
		Suggestion string `json:"suggestion"`
	} `json:"keyword_matches"`
	MissingKeywords []string `json:"missing_keywords"`
	Sections        []struct {
		Name        string   `json:"name"`
		Score       int      `json:"score"`
		Feedback    string   `json:"feedback"`
		Suggestions []string `json:"suggestions"`
	} `json:"sections"`
	Summary         string   `json:"summary"`
	ImprovementTips []string `json:"improvement_tips"`
}

// AnalyzeCV scores a CV against a job description. The caller always
// receives a well-formed result: parse failures produce the neutral
// fallback rather than an error.
func (s *AIService) AnalyzeCV(ctx context.Context, cvText, jobDescription string) (*model.CVAnalysis, error) {
	user := fmt.Sprintf("CV:\n%s\n\nJob description:\n%s\n\nAnalyze the CV and return the JSON.", cvText, jobDescription)

	text, err := s.gen.Generate(ctx, analyzeSystemPrompt, user, 3000)
	if err != nil {
		return nil, fmt.Errorf("generating analysis: %w", err)
	}

	var payload analysisPayload
	if !decodeJSONObject(text, &payload) {
		log.Warn().Msg("Analysis response had no parseable JSON, returning fallback")
		return fallbackAnalysis(), nil
	}

	result := &model.CVAnalysis{
		OverallScore:     clampScore(payload.OverallScore),
		ATSCompatibility: clampScore(payload.ATSCompatibility),
		KeywordMatches:   []model.KeywordMatch{},
		MissingKeywords:  payload.MissingKeywords,
		Sections:         []model.CVSection{},
		Summary:          payload.Summary,
		ImprovementTips:  payload.ImprovementTips,
	}
	for _, km := range payload.KeywordMatches {
		result.KeywordMatches = append(result.KeywordMatches, model.KeywordMatch{
			Keyword:    km.Keyword,
			Found:      km.Found,
			Importance: km.Importance,
			Suggestion: km.Suggestion,
		})
	}
	for _, sec := range payload.Sections {
		suggestions := sec.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		result.Sections = append(result.Sections, model.CVSection{
			Name:        sec.Name,
			Score:       clampScore(sec.Score),
			Feedback:    sec.Feedback,
			Suggestions: suggestions,
		})
	}
	if result.MissingKeywords == nil {
		result.MissingKeywords = []string{}
	}
	if result.ImprovementTips == nil {
		result.ImprovementTips = []string{}
	}
	if result.Summary == "" {
		result.Summary = "Analysis completed."
	}
	return result, nil
}

func fallbackAnalysis() *model.CVAnalysis {
	return &model.CVAnalysis{
		OverallScore:     50,
		ATSCompatibility: 50,
		KeywordMatches:   []model.KeywordMatch{},
		MissingKeywords:  []string{},
		Sections:         []model.CVSection{},
		Summary:          "Unable to analyze the CV in detail. Please try again.",
		ImprovementTips:  []string{},
	}
}

// Preview truncates a full analysis for anonymous callers: at most 3
// keyword matches, a shortened summary and an upsell message.
func Preview(a *model.CVAnalysis) *model.CVAnalysisPreview {
	keywords := a.KeywordMatches
	if len(keywords) > previewKeywordLimit {
		keywords = keywords[:previewKeywordLimit]
	}

	summary := a.Summary
	if len(summary) > previewSummaryChars {
		summary = summary[:previewSummaryChars] + "..."
	}

	return &model.CVAnalysisPreview{
		OverallScore:    a.OverallScore,
		PreviewKeywords: keywords,
		SummaryPreview:  summary,
		UpgradeMessage:  previewUpsell,
	}
}

// ── CV optimization ────────────────────────────────────

const optimizeSystemPrompt = `You are an expert CV writer and ATS optimization specialist. Based on the original CV content and the job description, create an optimized version of the CV that maximizes ATS compatibility while remaining honest and accurate.

Instructions:
1. Rewrite and optimize the CV content to better match the job description
2. Naturally incorporate the missing keywords where relevant
3. Improve section structure and wording for ATS scanners
4. Keep all information truthful: enhance wording, don't fabricate experience
5. Use strong action verbs and quantified achievements
6. Ensure clean formatting with clear section headers

Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "contact": {
    "name": "<full name>",
    "email": "<email if found>",
    "phone": "<phone if found>",
    "location": "<city, country if found>",
    "linkedin": "<linkedin URL if found>"
  },
  "summary": "<2-3 sentence professional summary optimized for the role>",
  "experience": [
    {"title": "<job title>", "company": "<company name>", "period": "<date range>", "bullets": ["<achievement-focused bullet points with metrics>"]}
  ],
  "education": [
    {"degree": "<degree name>", "institution": "<school name>", "period": "<date range>", "details": "<honors, GPA, relevant coursework if applicable>"}
  ],
  "skills": ["<list of skills, prioritizing those matching the job description>"],
  "certifications": ["<list of certifications if any>"],
  "estimated_score": <number 0-100, estimated ATS score after optimization>
}`

type optimizePayload struct {
	Contact struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Location string `json:"location"`
		Linkedin string `json:"linkedin"`
	} `json:"contact"`
	Summary    string `json:"summary"`
	Experience []struct {
		Title   string   `json:"title"`
		Company string   `json:"company"`
		Period  string   `json:"period"`
		Bullets []string `json:"bullets"`
	} `json:"experience"`
	Education []struct {
		Degree      string `json:"degree"`
		Institution string `json:"institution"`
		Period      string `json:"period"`
		Details     string `json:"details"`
	} `json:"education"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
	EstimatedScore int      `json:"estimated_score"`
}

// OptimizeCV rewrites a CV for a target job. The optional analysis summary
// and missing keywords give the model context from a prior analysis.
func (s *AIService) OptimizeCV(ctx context.Context, cvText, jobDescription, analysisSummary string, missingKeywords []string) (*model.OptimizedCV, error) {
	if analysisSummary == "" {
		analysisSummary = "No prior analysis available."
	}
	keywords := "None identified."
	if len(missingKeywords) > 0 {
		keywords = strings.Join(missingKeywords, ", ")
	}

	user := fmt.Sprintf(
		"Original CV:\n%s\n\nJob description:\n%s\n\nATS analysis summary:\n%s\n\nMissing keywords:\n%s\n\nReturn the optimized CV JSON.",
		cvText, jobDescription, analysisSummary, keywords,
	)

	text, err := s.gen.Generate(ctx, optimizeSystemPrompt, user, 4096)
	if err != nil {
		return nil, fmt.Errorf("generating optimized CV: %w", err)
	}

	var payload optimizePayload
	if !decodeJSONObject(text, &payload) {
		log.Warn().Msg("Optimization response had no parseable JSON, returning fallback")
		return &model.OptimizedCV{
			Summary:        "Unable to optimize CV. Please try again.",
			Experience:     []model.OptimizedCVSection{},
			Education:      []model.OptimizedCVSection{},
			Skills:         []string{},
			Certifications: []string{},
			EstimatedScore: 50,
		}, nil
	}

	result := &model.OptimizedCV{
		ContactName:     payload.Contact.Name,
		ContactEmail:    payload.Contact.Email,
		ContactPhone:    payload.Contact.Phone,
		ContactLocation: payload.Contact.Location,
		ContactLinkedin: payload.Contact.Linkedin,
		Summary:         payload.Summary,
		Experience:      []model.OptimizedCVSection{},
		Education:       []model.OptimizedCVSection{},
		Skills:          payload.Skills,
		Certifications:  payload.Certifications,
		EstimatedScore:  clampScore(payload.EstimatedScore),
	}
	for _, exp := range payload.Experience {
		result.Experience = append(result.Experience, model.OptimizedCVSection{
			Title:        exp.Title,
			Organization: exp.Company,
			Period:       exp.Period,
			Bullets:      exp.Bullets,
		})
	}
	for _, edu := range payload.Education {
		result.Education = append(result.Education, model.OptimizedCVSection{
			Title:        edu.Degree,
			Organization: edu.Institution,
			Period:       edu.Period,
			Details:      edu.Details,
		})
	}
	if result.Skills == nil {
		result.Skills = []string{}
	}
	if result.Certifications == nil {
		result.Certifications = []string{}
	}
	if result.EstimatedScore == 0 {
		result.EstimatedScore = 80
	}
	return result, nil
}

// ── Cover letters ──────────────────────────────────────

const coverLetterSystemPrompt = `You are an expert cover letter writer. Write a personalized, compelling cover letter for the given job.

Rules:
- Three to four paragraphs, roughly 250-350 words.
- Open with genuine interest in the specific role and company.
- Connect the candidate's strengths to the job requirements.
- Close with a confident call to action.
- Match the requested tone exactly.
- No placeholders like [Your Name]; write a complete, ready-to-send letter.
- Respond with ONLY the letter text, no preamble or commentary.`

// GenerateCoverLetter produces a cover letter. The response is free text,
// not JSON.
func (s *AIService) GenerateCoverLetter(ctx context.Context, jobTitle, companyName, jobDescription, tone, additionalContext string) (*model.CoverLetter, error) {
	user := fmt.Sprintf(
		"Job title: %s\nCompany: %s\nTone: %s\n\nJob description:\n%s",
		jobTitle, companyName, tone, jobDescription,
	)
	if additionalContext != "" {
		user += "\n\nAdditional context about the candidate:\n" + additionalContext
	}

	text, err := s.gen.Generate(ctx, coverLetterSystemPrompt, user, 2000)
	if err != nil {
		return nil, fmt.Errorf("generating cover letter: %w", err)
	}

	content := strings.TrimSpace(text)
	if content == "" {
		return nil, fmt.Errorf("empty cover letter from model")
	}

	return &model.CoverLetter{
		JobTitle:    jobTitle,
		CompanyName: companyName,
		Tone:        tone,
		Content:     content,
	}, nil
}

// ── Helpers ────────────────────────────────────────────

// decodeJSONObject extracts the first balanced-brace span from text and
// unmarshals it into v. Returns false when no object is found or it does
// not parse.
func decodeJSONObject(text string, v any) bool {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return false
	}
	return json.Unmarshal([]byte(match), v) == nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
