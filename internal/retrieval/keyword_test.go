package retrieval

import (
	"context"
	"errors"
	"testing"
)

func staticLoader(docs []Document) CorpusLoaderFunc {
	return func(ctx context.Context) ([]Document, error) {
		return docs, nil
	}
}

func TestKeywordRetriever_LazyBuildOnFirstUse(t *testing.T) {
	loads := 0
	r := NewKeywordRetriever(CorpusLoaderFunc(func(ctx context.Context) ([]Document, error) {
		loads++
		return []Document{{Content: "Go engineer"}}, nil
	}))

	if r.IndexSize() != 0 {
		t.Error("index should not exist before first use")
	}

	results, err := r.Retrieve(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	if _, err := r.Retrieve(context.Background(), "go", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loads != 1 {
		t.Errorf("expected exactly one corpus load, got %d", loads)
	}
}

func TestKeywordRetriever_RebuildSwapsSnapshot(t *testing.T) {
	r := NewKeywordRetriever(staticLoader([]Document{
		{Content: "Go engineer"},
	}))
	if err := r.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if r.IndexSize() != 1 {
		t.Fatalf("expected 1 indexed doc, got %d", r.IndexSize())
	}

	r.loader = staticLoader([]Document{
		{Content: "Go engineer"},
		{Content: "Rust engineer"},
	})
	if err := r.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if r.IndexSize() != 2 {
		t.Errorf("expected 2 indexed docs after rebuild, got %d", r.IndexSize())
	}

	results, err := r.Retrieve(context.Background(), "rust", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("new snapshot should serve the new doc, got %d results", len(results))
	}
}

func TestKeywordRetriever_LoaderError(t *testing.T) {
	loadErr := errors.New("database down")
	r := NewKeywordRetriever(CorpusLoaderFunc(func(ctx context.Context) ([]Document, error) {
		return nil, loadErr
	}))

	if _, err := r.Retrieve(context.Background(), "go", 5); err == nil {
		t.Fatal("expected error when corpus load fails")
	}

	// A later successful rebuild recovers the retriever.
	r.loader = staticLoader([]Document{{Content: "Go engineer"}})
	if err := r.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	results, err := r.Retrieve(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("retriever should recover after rebuild: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result after recovery, got %d", len(results))
	}
}

func TestKeywordRetriever_LazyBuildRetriesAfterFailure(t *testing.T) {
	loads := 0
	r := NewKeywordRetriever(CorpusLoaderFunc(func(ctx context.Context) ([]Document, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("database down")
		}
		return []Document{{Content: "Go engineer"}}, nil
	}))

	if _, err := r.Retrieve(context.Background(), "go", 5); err == nil {
		t.Fatal("expected error from the first corpus load")
	}

	// A transient failure must not pin the retriever; the next request
	// retries the build without an explicit Rebuild.
	results, err := r.Retrieve(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("second request should retry the build: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result after retry, got %d", len(results))
	}
	if loads != 2 {
		t.Errorf("expected 2 corpus loads, got %d", loads)
	}
}

func TestKeywordRetriever_Name(t *testing.T) {
	r := NewKeywordRetriever(staticLoader(nil))
	if r.Name() != SourceKeyword {
		t.Errorf("expected %q, got %q", SourceKeyword, r.Name())
	}
}
