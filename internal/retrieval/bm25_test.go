package retrieval

import (
	"testing"
)

func TestTokenizeText(t *testing.T) {
	tokens := tokenizeText("Senior Go Developer, (Kubernetes) experience!")
	expected := []string{"senior", "go", "developer", "kubernetes", "experience"}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tok := range tokens {
		if tok != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], tok)
		}
	}
}

func TestTokenizeText_KeepsSingleCharTokens(t *testing.T) {
	tokens := tokenizeText("C and R programmer")
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %v", tokens)
	}
	if tokens[0] != "c" || tokens[2] != "r" {
		t.Errorf("single-character skill tokens should survive, got %v", tokens)
	}
}

func TestBM25Index_RanksMatchingDocsHigher(t *testing.T) {
	docs := []Document{
		{Content: "Python data scientist with pandas and numpy"},
		{Content: "Go backend engineer building microservices in Go"},
		{Content: "Frontend developer working with React and CSS"},
	}
	idx := newBM25Index(docs)

	results := idx.search("Go engineer", 3)
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Content != docs[1].Content {
		t.Errorf("expected Go engineer doc first, got %q", results[0].Content)
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Errorf("returned doc has non-positive score %f", r.Score)
		}
	}
}

func TestBM25Index_NoMatchReturnsNothing(t *testing.T) {
	docs := []Document{
		{Content: "Go backend engineer"},
		{Content: "Python data scientist"},
	}
	idx := newBM25Index(docs)

	results := idx.search("haskell compiler", 5)
	if len(results) != 0 {
		t.Errorf("expected no results for unmatched query, got %d", len(results))
	}
}

func TestBM25Index_EmptyInputs(t *testing.T) {
	idx := newBM25Index(nil)
	if results := idx.search("anything", 5); results != nil {
		t.Errorf("empty index should return nil, got %v", results)
	}

	idx = newBM25Index([]Document{{Content: "Go engineer"}})
	if results := idx.search("", 5); results != nil {
		t.Errorf("empty query should return nil, got %v", results)
	}
	if results := idx.search("go", 0); results != nil {
		t.Errorf("k=0 should return nil, got %v", results)
	}
}

func TestBM25Index_RespectsK(t *testing.T) {
	docs := []Document{
		{Content: "Go engineer one"},
		{Content: "Go engineer two"},
		{Content: "Go engineer three"},
		{Content: "Go engineer four"},
	}
	idx := newBM25Index(docs)

	results := idx.search("go engineer", 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestBM25Index_TiesKeepCorpusOrder(t *testing.T) {
	docs := []Document{
		{Content: "Go developer", Metadata: map[string]string{"candidate_id": "a"}},
		{Content: "Go developer today", Metadata: map[string]string{"candidate_id": "b"}},
		{Content: "Go developer now", Metadata: map[string]string{"candidate_id": "c"}},
	}
	idx := newBM25Index(docs)

	// Docs b and c have identical length and term statistics for this
	// query, so their relative order must match the corpus.
	results := idx.search("go developer", 3)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	posB, posC := -1, -1
	for i, r := range results {
		switch r.Metadata["candidate_id"] {
		case "b":
			posB = i
		case "c":
			posC = i
		}
	}
	if posB == -1 || posC == -1 {
		t.Fatal("expected both tied docs in results")
	}
	if posB > posC {
		t.Errorf("tied docs reordered: b at %d, c at %d", posB, posC)
	}
}

func TestBM25Index_IDFNeverNegative(t *testing.T) {
	docs := []Document{
		{Content: "go go go"},
		{Content: "go again"},
		{Content: "go third"},
	}
	idx := newBM25Index(docs)

	// "go" appears in every document; the BM25+ style IDF must stay positive.
	if idf := idx.idf("go"); idf <= 0 {
		t.Errorf("expected positive IDF for ubiquitous term, got %f", idf)
	}
}
