package retrieval

import (
	"math"
	"sort"
	"strings"
)

// BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalization. These are the standard Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is an immutable inverted index over a corpus snapshot.
// Once built it is read-only, so concurrent searches need no locking.
type bm25Index struct {
	docs      []Document
	docTokens [][]string
	docLens   []int
	avgDocLen float64
	// termFreqs[i] maps term -> occurrences in document i
	termFreqs []map[string]int
	// docFreq maps term -> number of documents containing it
	docFreq map[string]int
}

// newBM25Index builds an index over the given documents. Document order is
// preserved and used as the tie-break for equal scores, so callers must pass
// a deterministically ordered corpus.
func newBM25Index(docs []Document) *bm25Index {
	idx := &bm25Index{
		docs:      docs,
		docTokens: make([][]string, len(docs)),
		docLens:   make([]int, len(docs)),
		termFreqs: make([]map[string]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, doc := range docs {
		tokens := tokenizeText(doc.Content)
		idx.docTokens[i] = tokens
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)

		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		idx.termFreqs[i] = freqs

		for term := range freqs {
			idx.docFreq[term]++
		}
	}

	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	return idx
}

// search scores every document against the query terms and returns up to k
// documents best-first. Ties keep corpus order (stable sort).
func (idx *bm25Index) search(query string, k int) []Document {
	if len(idx.docs) == 0 || k <= 0 {
		return nil
	}

	queryTokens := tokenizeText(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type scoredDoc struct {
		index int
		score float64
	}

	scored := make([]scoredDoc, 0, len(idx.docs))
	for i := range idx.docs {
		score := idx.scoreDocument(i, queryTokens)
		if score > 0 {
			scored = append(scored, scoredDoc{index: i, score: score})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	results := make([]Document, len(scored))
	for i, s := range scored {
		doc := idx.docs[s.index]
		results[i] = Document{
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Score:    s.score,
		}
	}

	return results
}

// scoreDocument computes the BM25 score of document i for the query terms:
// sum over terms of IDF(term) * tf*(k1+1) / (tf + k1*(1 - b + b*len/avgLen)).
func (idx *bm25Index) scoreDocument(i int, queryTokens []string) float64 {
	freqs := idx.termFreqs[i]
	docLen := float64(idx.docLens[i])

	score := 0.0
	for _, term := range queryTokens {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}

		idf := idx.idf(term)
		norm := tf + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen)
		score += idf * tf * (bm25K1 + 1) / norm
	}

	return score
}

// idf uses the non-negative BM25+ style formulation, ln(1 + (N-df+0.5)/(df+0.5)),
// so common terms never contribute negative scores.
func (idx *bm25Index) idf(term string) float64 {
	df := float64(idx.docFreq[term])
	n := float64(len(idx.docs))
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// size returns the number of indexed documents.
func (idx *bm25Index) size() int {
	return len(idx.docs)
}

// tokenizeText lowercases and splits content into terms, trimming common
// punctuation. Single-character tokens are kept: skill names like "C" and
// "R" matter in this corpus.
func tokenizeText(content string) []string {
	fields := strings.Fields(strings.ToLower(content))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,!?;:\"'()[]{}=<>")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
