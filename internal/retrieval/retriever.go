// Package retrieval provides candidate document retrieval and result fusion.
//
// Two independent strategies search the same profile corpus: dense vector
// similarity (embedding index) and sparse keyword ranking (BM25). Both are
// exposed through one Retriever interface so a third strategy can be added
// without touching fusion logic. Their native scores live on different
// scales and must never be compared directly.
package retrieval

import (
	"context"
)

// Source tags which retrieval strategy produced a document.
type Source string

const (
	// SourceVector is the dense embedding similarity retriever.
	SourceVector Source = "vector"

	// SourceKeyword is the sparse BM25 keyword retriever.
	SourceKeyword Source = "keyword"
)

// Document is the unit returned by a retriever: opaque profile content,
// a metadata map, and the retriever's native relevance score.
type Document struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Retriever retrieves up to k documents for a query string, ordered
// best-first by the retriever's native score.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
	Name() Source
}
