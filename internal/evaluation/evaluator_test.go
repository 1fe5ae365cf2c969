package evaluation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/matchd/internal/candidate"
	"github.com/talentmatch/matchd/internal/llm"
	"github.com/talentmatch/matchd/internal/reranker"
	"github.com/talentmatch/matchd/internal/retrieval"
	"github.com/talentmatch/matchd/internal/scoring"
)

// fakeLLM returns a canned response or error for every Generate call.
type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func ranked(id string) reranker.RankedCandidate {
	return reranker.RankedCandidate{
		FusedCandidate: retrieval.FusedCandidate{
			Document: retrieval.Document{Content: "profile of " + id},
		},
		Card: candidate.Card{ID: id, Name: id, Title: "Engineer", Skills: []string{"Go"}},
	}
}

func TestEvaluate_ParsesJudgeOutput(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{
		response: `{"evaluations": [
			{"candidate_id": "a", "summary": "Evidence-based analysis: solid", "faithfulness_score": 0.9, "relevancy_score": 0.8},
			{"candidate_id": "b", "summary": "Evidence-based analysis: weak", "faithfulness_score": 0.4, "relevancy_score": 0.2}
		]}`,
	})

	evals, err := e.Evaluate(context.Background(), "job description", []reranker.RankedCandidate{ranked("a"), ranked("b")})
	require.NoError(t, err)
	require.Len(t, evals, 2)

	assert.Equal(t, 0.8, evals["a"].Relevancy)
	assert.Equal(t, 0.9, evals["a"].Faithfulness)
	assert.Equal(t, "Evidence-based analysis: solid", evals["a"].Summary)
	assert.Equal(t, 0.2, evals["b"].Relevancy)
}

func TestEvaluate_StripsMarkdownFences(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{
		response: "```json\n{\"evaluations\": [{\"candidate_id\": \"a\", \"summary\": \"ok\", \"faithfulness_score\": 0.7, \"relevancy_score\": 0.6}]}\n```",
	})

	evals, err := e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a")})
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, 0.6, evals["a"].Relevancy)
}

func TestEvaluate_DropsUnknownCandidateIDs(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{
		response: `{"evaluations": [
			{"candidate_id": "a", "summary": "ok", "faithfulness_score": 0.9, "relevancy_score": 0.8},
			{"candidate_id": "hallucinated", "summary": "??", "faithfulness_score": 0.9, "relevancy_score": 0.9}
		]}`,
	})

	evals, err := e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a")})
	require.NoError(t, err)
	require.Len(t, evals, 1)
	_, ok := evals["hallucinated"]
	assert.False(t, ok, "IDs the judge invented must be dropped")
}

func TestEvaluate_ClampsScores(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{
		response: `{"evaluations": [{"candidate_id": "a", "summary": "ok", "faithfulness_score": 1.7, "relevancy_score": -0.2}]}`,
	})

	evals, err := e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, evals["a"].Faithfulness)
	assert.Equal(t, 0.0, evals["a"].Relevancy)
}

func TestEvaluate_FailedBatchSkipsNotFails(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{err: errors.New("model down")})

	evals, err := e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a"), ranked("b")})
	require.NoError(t, err, "a failed batch degrades to missing evaluations, not an error")
	assert.Empty(t, evals)
}

func TestEvaluate_EmptyCandidates(t *testing.T) {
	e := NewLLMEvaluator(&fakeLLM{})

	evals, err := e.Evaluate(context.Background(), "desc", nil)
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestCache_PutGetAndExpiry(t *testing.T) {
	c := NewCache(50 * time.Millisecond)
	key := CacheKey("job description", "a")

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, scoring.Evaluation{CandidateID: "a", Relevancy: 0.8})
	eval, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 0.8, eval.Relevancy)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok, "entries past the TTL must not be served")
}

func TestCacheKey_NormalizesDescription(t *testing.T) {
	assert.Equal(t,
		CacheKey("Senior  Go Engineer", "a"),
		CacheKey("senior go engineer", "a"),
	)
	assert.NotEqual(t,
		CacheKey("senior go engineer", "a"),
		CacheKey("senior go engineer", "b"),
	)
}

func TestCachedEvaluator_ServesHitsAndJudgesMisses(t *testing.T) {
	calls := 0
	inner := evaluatorFunc(func(ctx context.Context, desc string, cands []reranker.RankedCandidate) (map[string]scoring.Evaluation, error) {
		calls++
		out := make(map[string]scoring.Evaluation, len(cands))
		for _, c := range cands {
			out[c.Card.ID] = scoring.Evaluation{CandidateID: c.Card.ID, Relevancy: 0.5}
		}
		return out, nil
	})

	e := NewCachedEvaluator(inner, DefaultCache())

	evals, err := e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a"), ranked("b")})
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, 1, calls)

	// Second request is served entirely from cache.
	evals, err = e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a"), ranked("b")})
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, 1, calls)

	// A new candidate triggers one more judge call for the miss only.
	_, err = e.Evaluate(context.Background(), "desc", []reranker.RankedCandidate{ranked("a"), ranked("c")})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// evaluatorFunc adapts a function to the Evaluator interface for tests.
type evaluatorFunc func(ctx context.Context, description string, candidates []reranker.RankedCandidate) (map[string]scoring.Evaluation, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, description string, candidates []reranker.RankedCandidate) (map[string]scoring.Evaluation, error) {
	return f(ctx, description, candidates)
}
