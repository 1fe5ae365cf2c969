package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talentmatch/matchd/internal/llm"
)

// Expander generates alternative search queries for a job query using an LLM.
type Expander struct {
	llmClient llm.LLM
	model     string
}

// ExpanderOption is a functional option for configuring Expander.
type ExpanderOption func(*Expander)

// WithModel sets the model used for query expansion.
func WithModel(model string) ExpanderOption {
	return func(e *Expander) {
		e.model = model
	}
}

// NewExpander creates a new query expander.
func NewExpander(llmClient llm.LLM, opts ...ExpanderOption) *Expander {
	e := &Expander{llmClient: llmClient}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns n search query variants for the job query. Variant zero is
// always the original query text; later variants are LLM rephrasings focused
// on skills, responsibilities, and seniority.
//
// Expansion never fails the request: if the generator produces fewer than n
// usable lines the result is padded with the original query, and if the
// generator call fails entirely the result is exactly one variant equal to
// the original query so retrieval still runs.
func (e *Expander) Expand(ctx context.Context, query Query, n int) []string {
	if n < 1 {
		n = 1
	}

	base := query.baseQueryText()
	variants := []string{base}
	if n == 1 {
		return variants
	}

	generated, err := e.generateVariants(ctx, query, n-1)
	if err != nil {
		slog.Warn("query expansion failed, falling back to original query", "error", err)
		return variants
	}

	variants = append(variants, generated...)

	// Pad with the original query on under-generation.
	for len(variants) < n {
		variants = append(variants, base)
	}

	return variants[:n]
}

func (e *Expander) generateVariants(ctx context.Context, query Query, n int) ([]string, error) {
	prompt := e.buildExpansionPrompt(query, n)

	response, err := e.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       e.model,
		Temperature: 0.0, // Deterministic expansion
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("generating query variants: %w", err)
	}

	variants := parseVariantLines(response, n)
	if len(variants) == 0 {
		return nil, fmt.Errorf("no usable variants in generator output")
	}

	return variants, nil
}

// buildExpansionPrompt asks for variants in the "VERSION k: <text>" line
// format, one per line. This is the only output convention the parser accepts.
func (e *Expander) buildExpansionPrompt(query Query, n int) string {
	var sb strings.Builder

	sb.WriteString("You are a professional technical recruiter with expertise in CV matching.\n")
	sb.WriteString(fmt.Sprintf("Generate %d different alternative search queries based on the following job details\n", n))
	sb.WriteString("to help find the best candidate profiles in a search index.\n\n")
	sb.WriteString("Focus on:\n")
	sb.WriteString("- Technical skills and technologies required\n")
	sb.WriteString("- Core job responsibilities\n")
	sb.WriteString("- Experience level and seniority\n\n")
	sb.WriteString("Job Details:\n")
	sb.WriteString(query.SearchText())
	sb.WriteString("\nOutput format, one query per line:\n")
	for i := 1; i <= n; i++ {
		sb.WriteString(fmt.Sprintf("VERSION %d: [query %d]\n", i, i))
	}

	return sb.String()
}

// parseVariantLines extracts up to n variants from "VERSION k: <text>" lines.
// Lines that do not match the convention are skipped.
func parseVariantLines(response string, n int) []string {
	var variants []string

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "VERSION") {
			continue
		}

		_, text, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "[]"))
		if text == "" {
			continue
		}

		variants = append(variants, text)
		if len(variants) == n {
			break
		}
	}

	return variants
}
