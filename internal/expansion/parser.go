package expansion

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/talentmatch/matchd/internal/llm"
)

// Parser extracts structured facets from a raw job description using an LLM.
type Parser struct {
	llmClient llm.LLM
	model     string
}

// NewParser creates a new job description parser.
func NewParser(llmClient llm.LLM, model string) *Parser {
	return &Parser{llmClient: llmClient, model: model}
}

// parsedJob is the structured output requested from the LLM.
type parsedJob struct {
	Title          string   `json:"title"`
	RequiredSkills []string `json:"required_skills"`
	Seniority      string   `json:"seniority"`
	Department     string   `json:"department"`
}

const parsePrompt = `You are a professional HR data extractor.
From the provided job description text, extract:
1. A concise professional job title.
2. A list of specific technical and soft required skills.
3. The seniority level (one of: junior, mid, senior, lead).
4. The department or team, if mentioned.

Output ONLY valid JSON in this exact format:
{"title": "...", "required_skills": ["..."], "seniority": "...", "department": "..."}

Job Description Text:
`

// Parse builds a structured Query from a raw description. Extraction
// failures never fail the request: the fallback is a query with the raw
// description, no skills, and mid seniority.
func (p *Parser) Parse(ctx context.Context, description string) Query {
	fallback := Query{
		Title:       "Unknown",
		Description: description,
		Seniority:   "mid",
	}

	response, err := p.llmClient.Generate(ctx, parsePrompt+description, llm.GenerateOptions{
		Model:       p.model,
		Temperature: 0.0,
		MaxTokens:   512,
	})
	if err != nil {
		slog.Warn("job description parsing failed, using fallback", "error", err)
		return fallback
	}

	var parsed parsedJob
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		slog.Warn("job description parse output not valid JSON, using fallback", "error", err)
		return fallback
	}

	query := Query{
		Title:          parsed.Title,
		Description:    description,
		RequiredSkills: parsed.RequiredSkills,
		Seniority:      strings.ToLower(parsed.Seniority),
		Department:     parsed.Department,
	}
	if query.Title == "" {
		query.Title = "Unknown"
	}
	switch query.Seniority {
	case "junior", "mid", "senior", "lead":
	default:
		query.Seniority = "mid"
	}

	return query
}

// extractJSON strips markdown code fences some models wrap around JSON output.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	return response
}
