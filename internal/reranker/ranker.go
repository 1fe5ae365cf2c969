package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/talentmatch/matchd/internal/candidate"
	"github.com/talentmatch/matchd/internal/retrieval"
)

// PairwiseReranker scores each candidate against the query with a
// cross-encoder relevance model and re-orders by normalized relevance.
type PairwiseReranker struct {
	model RelevanceModel
}

// NewPairwiseReranker creates a reranker backed by the given relevance model.
func NewPairwiseReranker(model RelevanceModel) *PairwiseReranker {
	return &PairwiseReranker{model: model}
}

// Rerank builds (query, candidate summary) pairs, scores them, and returns
// candidates sorted descending by relevance in [0,1]. The sort is stable:
// candidates with equal relevance keep their fusion order.
//
// If the relevance model is unavailable every candidate gets relevance 0.0
// in fusion order; the pipeline continues and scoring falls back to skills
// and experience signals.
func (r *PairwiseReranker) Rerank(ctx context.Context, query string, candidates []retrieval.FusedCandidate) []RankedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]RankedCandidate, len(candidates))
	pairs := make([]Pair, len(candidates))
	for i, fused := range candidates {
		card := candidate.FromMetadata(fused.Document.Metadata, fmt.Sprintf("candidate-%d", i))
		ranked[i] = RankedCandidate{FusedCandidate: fused, Card: card}
		pairs[i] = Pair{
			TextA: query,
			TextB: summarize(card, fused.Document.Content),
		}
	}

	scores, err := r.model.Predict(ctx, pairs)
	if err != nil {
		slog.Warn("relevance model unavailable, degrading to zero relevance", "error", err)
		return ranked
	}
	if len(scores) != len(pairs) {
		slog.Warn("relevance model returned mismatched score count, degrading to zero relevance",
			"pairs", len(pairs), "scores", len(scores))
		return ranked
	}

	for i, score := range scores {
		ranked[i].Relevance = sigmoid(score)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Relevance > ranked[b].Relevance
	})

	return ranked
}

// summarize builds the bounded candidate-side text for the pairwise model:
// role title plus skill list rather than the full profile, keeping the
// cross-encoder input short.
func summarize(card candidate.Card, content string) string {
	var parts []string
	if card.Title != "" && card.Title != "Unknown" {
		parts = append(parts, card.Title)
	}
	if len(card.Skills) > 0 {
		parts = append(parts, strings.Join(card.Skills, " "))
	}

	if len(parts) == 0 {
		// No structured fields: fall back to a truncated content prefix.
		if len(content) > 500 {
			content = content[:500]
		}
		return content
	}

	return strings.Join(parts, " ")
}

// sigmoid maps an unbounded cross-encoder logit into [0,1].
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Ensure PairwiseReranker implements Reranker.
var _ Reranker = (*PairwiseReranker)(nil)
