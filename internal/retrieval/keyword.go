package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// CorpusLoader supplies the profile corpus snapshot the keyword index is
// built from. It must return documents in a deterministic order.
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) ([]Document, error)
}

// CorpusLoaderFunc adapts a function to the CorpusLoader interface.
type CorpusLoaderFunc func(ctx context.Context) ([]Document, error)

// LoadCorpus calls the wrapped function.
func (f CorpusLoaderFunc) LoadCorpus(ctx context.Context) ([]Document, error) {
	return f(ctx)
}

// KeywordRetriever retrieves profiles by sparse BM25 term ranking.
//
// The index is cached across requests rather than rebuilt per request:
// profile ingestion is rare compared to match requests, and rebuilding a
// corpus-wide index on every query would dominate latency. The trade-off is
// that a request racing an ingestion may search a snapshot that is one
// rebuild behind. Rebuilds follow a single-writer/many-reader discipline:
// Rebuild constructs a fresh index off to the side and publishes it with an
// atomic pointer swap, so readers never observe a partially built index.
type KeywordRetriever struct {
	loader CorpusLoader
	index  atomic.Pointer[bm25Index]

	// buildMu serializes the lazy first build so concurrent first requests
	// trigger a single corpus load. A failed build is not cached; the next
	// request retries.
	buildMu sync.Mutex
}

// NewKeywordRetriever creates a BM25 retriever over the loader's corpus.
// The index is built lazily on first use; call Rebuild to build it eagerly.
func NewKeywordRetriever(loader CorpusLoader) *KeywordRetriever {
	return &KeywordRetriever{loader: loader}
}

// Retrieve searches the current index snapshot.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	idx, err := r.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.search(query, k), nil
}

// Name returns the source tag for this retriever.
func (r *KeywordRetriever) Name() Source {
	return SourceKeyword
}

// Rebuild loads a fresh corpus snapshot and atomically replaces the index.
// Intended to be called by the single writer (ingestion) after the corpus
// changes; concurrent readers keep using the previous snapshot until the swap.
func (r *KeywordRetriever) Rebuild(ctx context.Context) error {
	docs, err := r.loader.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	idx := newBM25Index(docs)
	r.index.Store(idx)
	slog.Info("keyword index rebuilt", "documents", idx.size())
	return nil
}

// IndexSize returns the number of documents in the current snapshot,
// or 0 if the index has not been built yet.
func (r *KeywordRetriever) IndexSize() int {
	if idx := r.index.Load(); idx != nil {
		return idx.size()
	}
	return 0
}

func (r *KeywordRetriever) currentIndex(ctx context.Context) (*bm25Index, error) {
	if idx := r.index.Load(); idx != nil {
		return idx, nil
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	// Another request, or an ingestion-triggered rebuild, may have built the
	// index while we waited on the lock.
	if idx := r.index.Load(); idx != nil {
		return idx, nil
	}
	if err := r.Rebuild(ctx); err != nil {
		return nil, err
	}
	return r.index.Load(), nil
}

// Ensure KeywordRetriever implements Retriever
var _ Retriever = (*KeywordRetriever)(nil)
