// Package evaluation provides evidence-grounded candidate evaluation.
//
// An LLM judge audits candidates against the job description using only the
// profile text as evidence, producing per-candidate relevancy, faithfulness,
// and a narrative summary. Candidates are audited in small batches with
// bounded concurrency to respect the judge's rate limits.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/talentmatch/matchd/internal/llm"
	"github.com/talentmatch/matchd/internal/reranker"
	"github.com/talentmatch/matchd/internal/scoring"
)

const (
	// DefaultBatchSize is how many candidates share one judge call.
	DefaultBatchSize = 3

	// DefaultConcurrency bounds in-flight judge calls.
	DefaultConcurrency = 3
)

// Evaluator judges candidates against a job description.
type Evaluator interface {
	Evaluate(ctx context.Context, description string, candidates []reranker.RankedCandidate) (map[string]scoring.Evaluation, error)
}

// LLMEvaluator implements Evaluator with an LLM judge.
type LLMEvaluator struct {
	llmClient   llm.LLM
	model       string
	batchSize   int
	concurrency int
}

// LLMEvaluatorOption is a functional option for configuring LLMEvaluator.
type LLMEvaluatorOption func(*LLMEvaluator)

// WithModel sets the judge model.
func WithModel(model string) LLMEvaluatorOption {
	return func(e *LLMEvaluator) {
		e.model = model
	}
}

// WithBatchSize sets how many candidates share one judge call.
func WithBatchSize(size int) LLMEvaluatorOption {
	return func(e *LLMEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// WithConcurrency bounds the number of in-flight judge calls.
func WithConcurrency(n int) LLMEvaluatorOption {
	return func(e *LLMEvaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewLLMEvaluator creates a new LLM-backed evaluator.
func NewLLMEvaluator(llmClient llm.LLM, opts ...LLMEvaluatorOption) *LLMEvaluator {
	e := &LLMEvaluator{
		llmClient:   llmClient,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// batchEvaluation is the structured output requested from the judge.
type batchEvaluation struct {
	Evaluations []struct {
		CandidateID       string  `json:"candidate_id"`
		Summary           string  `json:"summary"`
		FaithfulnessScore float64 `json:"faithfulness_score"`
		RelevancyScore    float64 `json:"relevancy_score"`
	} `json:"evaluations"`
}

// Evaluate audits all candidates in batches and returns evaluations keyed by
// candidate ID. Failed batches are logged and skipped; the result map then
// simply lacks those candidates and scoring falls back per candidate.
// Concurrency never reorders anything because results are keyed, not ordered.
func (e *LLMEvaluator) Evaluate(ctx context.Context, description string, candidates []reranker.RankedCandidate) (map[string]scoring.Evaluation, error) {
	if len(candidates) == 0 {
		return map[string]scoring.Evaluation{}, nil
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.Card.ID] = true
	}

	pool, err := ants.NewPool(e.concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]scoring.Evaluation)
	)

	for start := 0; start < len(candidates); start += e.batchSize {
		end := start + e.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			evals, err := e.evaluateBatch(ctx, description, batch)
			if err != nil {
				slog.Warn("candidate evaluation batch failed", "batch_size", len(batch), "error", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for id, eval := range evals {
				if !known[id] {
					// Judge returned an ID we never sent; drop it.
					slog.Warn("dropping evaluation for unknown candidate", "candidate_id", id)
					continue
				}
				results[id] = eval
			}
		})
		if submitErr != nil {
			wg.Done()
			slog.Warn("failed to submit evaluation batch", "error", submitErr)
		}
	}

	wg.Wait()
	return results, nil
}

// evaluateBatch runs one judge call for a group of candidates.
func (e *LLMEvaluator) evaluateBatch(ctx context.Context, description string, batch []reranker.RankedCandidate) (map[string]scoring.Evaluation, error) {
	prompt := e.buildAuditPrompt(description, batch)

	response, err := e.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       e.model,
		Temperature: 0.0, // Deterministic judging
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	var parsed batchEvaluation
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse judge response: %w", err)
	}

	evals := make(map[string]scoring.Evaluation, len(parsed.Evaluations))
	for _, ev := range parsed.Evaluations {
		id := strings.TrimSpace(ev.CandidateID)
		if id == "" {
			continue
		}
		evals[id] = scoring.Evaluation{
			CandidateID:  id,
			Relevancy:    clamp01(ev.RelevancyScore),
			Faithfulness: clamp01(ev.FaithfulnessScore),
			Summary:      strings.TrimSpace(ev.Summary),
		}
	}

	return evals, nil
}

// buildAuditPrompt constructs the evidence-only audit prompt for one batch.
func (e *LLMEvaluator) buildAuditPrompt(description string, batch []reranker.RankedCandidate) string {
	var sb strings.Builder

	sb.WriteString("You are an expert senior HR technical auditor conducting a strict, evidence-based audit.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Evaluate candidates based ONLY on the text provided below.\n")
	sb.WriteString("- If a skill, tool, or certification is not explicitly mentioned, treat it as non-existent.\n")
	sb.WriteString("- Do not infer knowledge from job titles.\n")
	sb.WriteString("- Preserve candidate_id exactly.\n\n")

	sb.WriteString("Job description:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nCandidates to audit:\n")
	for _, c := range batch {
		sb.WriteString("CANDIDATE_ID: ")
		sb.WriteString(c.Card.ID)
		sb.WriteString("\nName: ")
		sb.WriteString(c.Card.Name)
		sb.WriteString("\nTitle: ")
		sb.WriteString(c.Card.Title)
		sb.WriteString("\nSkills: ")
		sb.WriteString(strings.Join(c.Card.Skills, ", "))
		sb.WriteString("\nProfile:\n")
		sb.WriteString(truncateContent(c.Document.Content, 1500))
		sb.WriteString("\n---\n")
	}

	sb.WriteString(`
Score each candidate's relevancy to the job (0.0-1.0) and the faithfulness
of your summary to the profile evidence (0.0-1.0). Write the summary as
"Evidence-based analysis: [strengths] vs [missing requirements]".

Output ONLY valid JSON in this exact format:
{"evaluations": [{"candidate_id": "string", "summary": "string", "faithfulness_score": 0.0, "relevancy_score": 0.0}]}
`)

	return sb.String()
}

func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
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

// Ensure LLMEvaluator implements Evaluator.
var _ Evaluator = (*LLMEvaluator)(nil)
