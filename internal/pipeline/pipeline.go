// Package pipeline orchestrates the full ranking flow: job parsing, query
// expansion, dual retrieval, fusion, reranking, evaluation, and scoring.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talentmatch/matchd/internal/evaluation"
	"github.com/talentmatch/matchd/internal/expansion"
	"github.com/talentmatch/matchd/internal/reranker"
	"github.com/talentmatch/matchd/internal/retrieval"
	"github.com/talentmatch/matchd/internal/scoring"
)

const (
	// DefaultTopK is how many matches a response carries when the request
	// does not say otherwise.
	DefaultTopK = 10

	// DefaultKFetch caps the fused candidate pool entering the reranker.
	DefaultKFetch = 15

	// DefaultVariants is the expansion width, original query included.
	DefaultVariants = 3

	// retrievalConcurrency bounds simultaneous retriever calls.
	retrievalConcurrency = 4
)

// MatchRequest is a ranking request for one job description.
type MatchRequest struct {
	Description string
	TopK        int
}

// MatchMetadata carries per-stage timings for observability.
type MatchMetadata struct {
	RetrievalTimeMs  int64
	RerankTimeMs     int64
	EvaluationTimeMs int64
	TotalTimeMs      int64
	VariantsUsed     int
	PoolSize         int
}

// MatchResponse is the ranked result set for one job description.
type MatchResponse struct {
	Query           expansion.Query
	TotalCandidates int
	Matches         []scoring.ScoredCandidate
	Metadata        MatchMetadata
}

// Pipeline wires the ranking stages together. Retrievers run in their
// configured order, which fixes fusion priority: earlier retrievers win
// duplicate conflicts.
type Pipeline struct {
	parser     *expansion.Parser
	expander   *expansion.Expander
	retrievers []retrieval.Retriever
	reranker   reranker.Reranker
	scorer     *scoring.Scorer
	evaluator  evaluation.Evaluator
	variants   int
	kFetch     int
	topK       int
	timeout    time.Duration
}

// Option is a functional option for configuring Pipeline.
type Option func(*Pipeline)

// WithEvaluator enables evidence-grounded evaluation of reranked candidates.
func WithEvaluator(e evaluation.Evaluator) Option {
	return func(p *Pipeline) {
		p.evaluator = e
	}
}

// WithVariants sets the query expansion width.
func WithVariants(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.variants = n
		}
	}
}

// WithKFetch caps the fused candidate pool size.
func WithKFetch(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.kFetch = k
		}
	}
}

// WithTopK sets the default response size.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithTimeout bounds total request duration.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a ranking pipeline. Retriever order is significant and should
// list the dense retriever before the keyword retriever.
func New(
	parser *expansion.Parser,
	expander *expansion.Expander,
	retrievers []retrieval.Retriever,
	rr reranker.Reranker,
	scorer *scoring.Scorer,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		parser:     parser,
		expander:   expander,
		retrievers: retrievers,
		reranker:   rr,
		scorer:     scorer,
		variants:   DefaultVariants,
		kFetch:     DefaultKFetch,
		topK:       DefaultTopK,
		timeout:    60 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Match ranks the candidate pool against the job description. Individual
// stage failures degrade rather than abort: a failed retriever contributes
// nothing, a failed reranker yields zero relevance, a failed evaluator drops
// back to heuristic scoring. An empty pool is a valid result, not an error.
func (p *Pipeline) Match(ctx context.Context, req MatchRequest) (*MatchResponse, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := p.parser.Parse(ctx, req.Description)
	variants := p.expander.Expand(ctx, query, p.variants)

	retrievalStart := time.Now()
	results := p.retrieveAll(ctx, variants)
	fused := retrieval.Fuse(results, p.kFetch)
	retrievalTime := time.Since(retrievalStart)

	if len(fused) == 0 {
		slog.Info("no candidates retrieved", "title", query.Title)
		return &MatchResponse{
			Query:           query,
			TotalCandidates: 0,
			Matches:         []scoring.ScoredCandidate{},
			Metadata: MatchMetadata{
				RetrievalTimeMs: retrievalTime.Milliseconds(),
				TotalTimeMs:     time.Since(startTime).Milliseconds(),
				VariantsUsed:    len(variants),
			},
		}, nil
	}

	rerankStart := time.Now()
	ranked := p.reranker.Rerank(ctx, variants[0], fused)
	rerankTime := time.Since(rerankStart)

	var evaluations map[string]scoring.Evaluation
	evaluationStart := time.Now()
	if p.evaluator != nil {
		evals, err := p.evaluator.Evaluate(ctx, req.Description, ranked)
		if err != nil {
			slog.Warn("evaluation failed, scoring falls back to heuristics", "error", err)
		} else {
			evaluations = evals
		}
	}
	evaluationTime := time.Since(evaluationStart)

	scored := p.scorer.Score(query.RequiredSkills, ranked, evaluations)

	topK := req.TopK
	if topK <= 0 {
		topK = p.topK
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}

	return &MatchResponse{
		Query:           query,
		TotalCandidates: len(scored),
		Matches:         scored,
		Metadata: MatchMetadata{
			RetrievalTimeMs:  retrievalTime.Milliseconds(),
			RerankTimeMs:     rerankTime.Milliseconds(),
			EvaluationTimeMs: evaluationTime.Milliseconds(),
			TotalTimeMs:      time.Since(startTime).Milliseconds(),
			VariantsUsed:     len(variants),
			PoolSize:         len(fused),
		},
	}, nil
}

// retrieveAll fans every query variant out to every retriever concurrently.
// Results land in slots indexed by (retriever, variant) so fusion order is
// independent of goroutine completion order. A failed call leaves its slot
// empty and the rest of the pool proceeds.
func (p *Pipeline) retrieveAll(ctx context.Context, variants []string) []retrieval.SourceResults {
	results := make([]retrieval.SourceResults, len(p.retrievers)*len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(retrievalConcurrency)

	for ri, r := range p.retrievers {
		for vi, variant := range variants {
			slot := ri*len(variants) + vi
			r, variant, vi := r, variant, vi

			results[slot] = retrieval.SourceResults{
				Source:  r.Name(),
				Variant: vi,
			}

			g.Go(func() error {
				docs, err := r.Retrieve(gctx, variant, p.kFetch)
				if err != nil {
					slog.Warn("retrieval failed",
						"source", r.Name(),
						"variant", vi,
						"error", err)
					return nil
				}
				results[slot].Docs = docs
				return nil
			})
		}
	}

	// Workers never return errors, so Wait only orders the writes.
	_ = g.Wait()

	return results
}
