package evaluation

import (
	"context"

	"github.com/talentmatch/matchd/internal/reranker"
	"github.com/talentmatch/matchd/internal/scoring"
)

// CachedEvaluator wraps an Evaluator with a TTL cache so unchanged
// job/candidate pairs are judged at most once per cache window.
type CachedEvaluator struct {
	inner Evaluator
	cache *Cache
}

// NewCachedEvaluator wraps inner with the given cache.
func NewCachedEvaluator(inner Evaluator, cache *Cache) *CachedEvaluator {
	return &CachedEvaluator{
		inner: inner,
		cache: cache,
	}
}

// Evaluate serves cached evaluations where possible and only sends cache
// misses to the inner evaluator. Freshly judged candidates are cached on the
// way out.
func (e *CachedEvaluator) Evaluate(ctx context.Context, description string, candidates []reranker.RankedCandidate) (map[string]scoring.Evaluation, error) {
	results := make(map[string]scoring.Evaluation, len(candidates))
	misses := make([]reranker.RankedCandidate, 0, len(candidates))

	for _, c := range candidates {
		if eval, ok := e.cache.Get(CacheKey(description, c.Card.ID)); ok {
			results[c.Card.ID] = eval
			continue
		}
		misses = append(misses, c)
	}

	if len(misses) == 0 {
		return results, nil
	}

	fresh, err := e.inner.Evaluate(ctx, description, misses)
	if err != nil {
		return nil, err
	}

	for id, eval := range fresh {
		e.cache.Put(CacheKey(description, id), eval)
		results[id] = eval
	}

	return results, nil
}

var _ Evaluator = (*CachedEvaluator)(nil)
