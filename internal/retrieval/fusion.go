package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Origin records one retrieval path that surfaced a candidate.
type Origin struct {
	Source  Source
	Variant int // query variant index, 0 = original query
}

// FusedCandidate owns one retrieved document plus the provenance of every
// retrieval path that produced it and a content fingerprint used for
// deduplication.
type FusedCandidate struct {
	Document    Document
	Fingerprint string
	Provenance  []Origin
}

// FromSource reports whether any provenance entry came from the given source.
func (c *FusedCandidate) FromSource(source Source) bool {
	for _, origin := range c.Provenance {
		if origin.Source == source {
			return true
		}
	}
	return false
}

// SourceResults is one retriever's output for one query variant.
type SourceResults struct {
	Source  Source
	Variant int
	Docs    []Document
}

// Fuse merges result sets from all retrievers and query variants into one
// ordered, deduplicated candidate list of at most kFetch entries.
//
// Callers must pass sources in priority order (vector before keyword,
// variant zero before later variants); the first retrieval path to surface
// a piece of content wins its placement and its document, and later
// duplicates only accumulate provenance. The output order is the candidate
// set handed to the reranker, not a ranking signal.
func Fuse(results []SourceResults, kFetch int) []FusedCandidate {
	seen := make(map[string]int) // fingerprint -> index in fused
	var fused []FusedCandidate

	for _, source := range results {
		for _, doc := range source.Docs {
			fp := Fingerprint(doc.Content)
			origin := Origin{Source: source.Source, Variant: source.Variant}

			if idx, ok := seen[fp]; ok {
				// Repeat content: merge provenance, keep first-seen
				// document and position.
				fused[idx].Provenance = append(fused[idx].Provenance, origin)
				continue
			}

			seen[fp] = len(fused)
			fused = append(fused, FusedCandidate{
				Document:    doc,
				Fingerprint: fp,
				Provenance:  []Origin{origin},
			})
		}
	}

	if kFetch > 0 && len(fused) > kFetch {
		fused = fused[:kFetch]
	}

	return fused
}

// Fingerprint computes the deduplication key for document content:
// SHA-256 over whitespace-normalized, lowercased text. Exact-content
// duplicates collapse to one key regardless of spacing or case.
func Fingerprint(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
