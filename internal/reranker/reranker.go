// Package reranker re-scores fused retrieval candidates with a pairwise
// relevance model.
//
// Re-ranking evaluates (query, candidate) pairs together rather than
// independently, which improves precision when retrieval scores from the
// fused sources are close or incomparable. The relevance model is an
// external cross-encoder service; when it is unreachable the reranker
// degrades to zero relevance instead of failing, so downstream scoring can
// still rank on skills and experience.
package reranker

import (
	"context"

	"github.com/talentmatch/matchd/internal/candidate"
	"github.com/talentmatch/matchd/internal/retrieval"
)

// Pair is one (query, candidate summary) input to the relevance model.
type Pair struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

// RelevanceModel scores text pairs with a cross-encoder. Scores are
// unbounded reals; higher means more relevant. Implementations are
// stateless and batched.
type RelevanceModel interface {
	Predict(ctx context.Context, pairs []Pair) ([]float64, error)
}

// RankedCandidate is a fused candidate plus its normalized relevance in
// [0,1] and the strongly-typed card derived from its metadata.
type RankedCandidate struct {
	retrieval.FusedCandidate
	Card      candidate.Card
	Relevance float64
}

// Reranker re-orders fused candidates by pairwise relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []retrieval.FusedCandidate) []RankedCandidate
}
