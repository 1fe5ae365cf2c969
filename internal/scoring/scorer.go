// Package scoring combines reranked relevance, skill overlap, experience,
// and optional evidence-grounded evaluation signals into a final match score.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talentmatch/matchd/internal/reranker"
)

// Base-term weights. Each formula's weights sum to 1; the final score is
// then clipped into [0.01, 0.99] so no candidate is ever reported as a
// certain match or a certain miss, and sort ties stay meaningful.
const (
	// Evaluation-backed mode: the external judge's relevancy dominates.
	weightRerankWithEval = 0.3
	weightEvalRelevancy  = 0.7

	// Fallback mode, no evaluation for this candidate.
	weightRerank     = 0.5
	weightSkills     = 0.3
	weightExperience = 0.2

	// Normalization caps: 5 matched skills or 10 years of experience
	// saturate their term.
	skillsSaturation     = 5
	experienceSaturation = 10

	minFinalScore = 0.01
	maxFinalScore = 0.99
)

// Evaluation is an externally computed evidence-grounded judgment for one
// candidate. The scorer consumes it but never computes it.
type Evaluation struct {
	CandidateID  string
	Relevancy    float64
	Faithfulness float64
	Summary      string
}

// Trustworthy reports whether the evaluation clears both the faithfulness
// and relevancy thresholds.
func (e Evaluation) Trustworthy() bool {
	return e.Faithfulness >= 0.75 && e.Relevancy >= 0.70
}

// ScoredCandidate is the terminal ranking entity: one candidate with its
// final score in [0.01, 0.99], a short justification, and the evaluation
// pair when one was available. Immutable after creation.
type ScoredCandidate struct {
	reranker.RankedCandidate
	FinalScore    float64
	MatchedSkills []string
	Reasoning     string
	Faithfulness  float64
	Evaluated     bool
}

// Scorer computes final match scores.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score combines each candidate's signals into a final score and returns
// candidates sorted descending by it. The sort is stable, so candidates
// with equal final scores keep their reranked order.
//
// Mode selection is per candidate: a candidate with an entry in evaluations
// is scored against the judge's relevancy, and a candidate without one
// falls back to skills and experience. Given identical inputs the output
// ordering and scores are identical.
func (s *Scorer) Score(requiredSkills []string, candidates []reranker.RankedCandidate, evaluations map[string]Evaluation) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))

	for i, ranked := range candidates {
		matched := ranked.Card.MatchSkills(requiredSkills)

		sc := ScoredCandidate{
			RankedCandidate: ranked,
			MatchedSkills:   matched,
		}

		if eval, ok := evaluations[ranked.Card.ID]; ok {
			sc.FinalScore = clip(weightRerankWithEval*ranked.Relevance + weightEvalRelevancy*eval.Relevancy)
			sc.Faithfulness = eval.Faithfulness
			sc.Evaluated = true
			sc.Reasoning = eval.Summary
		} else {
			skillsNorm := saturate(len(matched), skillsSaturation)
			experienceNorm := saturate(ranked.Card.YearsExperience, experienceSaturation)
			sc.FinalScore = clip(weightRerank*ranked.Relevance + weightSkills*skillsNorm + weightExperience*experienceNorm)
		}

		if sc.Reasoning == "" {
			sc.Reasoning = synthesizeReasoning(matched)
		}

		scored[i] = sc
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].FinalScore > scored[b].FinalScore
	})

	return scored
}

// saturate normalizes a count against its saturation point into [0,1].
func saturate(value, limit int) float64 {
	if value >= limit {
		return 1
	}
	if value <= 0 {
		return 0
	}
	return float64(value) / float64(limit)
}

// clip bounds a score into [0.01, 0.99].
func clip(score float64) float64 {
	if score < minFinalScore {
		return minFinalScore
	}
	if score > maxFinalScore {
		return maxFinalScore
	}
	return score
}

// synthesizeReasoning builds the fallback justification when no evaluation
// narrative exists.
func synthesizeReasoning(matched []string) string {
	if len(matched) == 0 {
		return "Matched based on profile similarity"
	}
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return fmt.Sprintf("Matched based on profile similarity with focus on %s", strings.Join(matched, ", "))
}
