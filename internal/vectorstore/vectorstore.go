// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
)

// Point represents a profile document with its embedding
type Point struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult represents a search result from the vector store.
// Score is the store's native similarity score; it is not comparable to
// scores from other retrieval strategies without normalization.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// VectorStore defines the interface for vector storage operations
type VectorStore interface {
	// CreateCollection creates a collection with the given embedding dimension
	CreateCollection(ctx context.Context, collection string, dimension int) error

	// CollectionExists checks if a collection exists
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates points in the vector store
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs dense similarity search, returning up to topK results
	// ordered best-first by the store's native score
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)

	// Delete removes points by their IDs
	Delete(ctx context.Context, collection string, ids []string) error
}
