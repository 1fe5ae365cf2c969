package retrieval

import (
	"context"
	"fmt"

	"github.com/talentmatch/matchd/internal/embedder"
	"github.com/talentmatch/matchd/internal/vectorstore"
)

// VectorRetriever retrieves profiles by dense embedding similarity.
type VectorRetriever struct {
	embedder   embedder.Embedder
	store      vectorstore.VectorStore
	collection string
}

// NewVectorRetriever creates a retriever backed by an embedding index.
func NewVectorRetriever(embed embedder.Embedder, store vectorstore.VectorStore, collection string) *VectorRetriever {
	return &VectorRetriever{
		embedder:   embed,
		store:      store,
		collection: collection,
	}
}

// Retrieve embeds the query and searches the vector index.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, r.collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	docs := make([]Document, len(results))
	for i, result := range results {
		docs[i] = Document{
			Content:  result.Content,
			Metadata: result.Metadata,
			Score:    float64(result.Score),
		}
	}

	return docs, nil
}

// Name returns the source tag for this retriever.
func (r *VectorRetriever) Name() Source {
	return SourceVector
}

// Ensure VectorRetriever implements Retriever
var _ Retriever = (*VectorRetriever)(nil)
