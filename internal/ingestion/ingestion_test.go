package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/matchd/internal/repository"
	"github.com/talentmatch/matchd/internal/vectorstore"
)

// memRepo is an in-memory ProfileRepository.
type memRepo struct {
	byID   map[uuid.UUID]*repository.Profile
	byHash map[string]*repository.Profile
}

func newMemRepo() *memRepo {
	return &memRepo{
		byID:   make(map[uuid.UUID]*repository.Profile),
		byHash: make(map[string]*repository.Profile),
	}
}

func (r *memRepo) Create(ctx context.Context, p *repository.Profile) error {
	r.byID[p.ID] = p
	r.byHash[p.ContentHash] = p
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Profile, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) GetByHash(ctx context.Context, hash string) (*repository.Profile, error) {
	if p, ok := r.byHash[hash]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*repository.Profile, int, error) {
	all, err := r.ListAll(ctx)
	return all, len(all), err
}

func (r *memRepo) ListAll(ctx context.Context) ([]*repository.Profile, error) {
	var all []*repository.Profile
	for _, p := range r.byID {
		all = append(all, p)
	}
	return all, nil
}

func (r *memRepo) Update(ctx context.Context, p *repository.Profile) error {
	r.byID[p.ID] = p
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// fakeEmbedder returns fixed-size zero vectors.
type fakeEmbedder struct {
	err        error
	batchCalls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, 4), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 4 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

// fakeStore records vector store operations.
type fakeStore struct {
	collections map[string]bool
	points      map[string]vectorstore.Point
	deleted     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]bool),
		points:      make(map[string]vectorstore.Point),
	}
}

func (s *fakeStore) CreateCollection(ctx context.Context, collection string, dimension int) error {
	s.collections[collection] = true
	return nil
}

func (s *fakeStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return s.collections[collection], nil
}

func (s *fakeStore) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *fakeStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (s *fakeStore) Delete(ctx context.Context, collection string, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	for _, id := range ids {
		delete(s.points, id)
	}
	return nil
}

// countingRebuilder counts keyword index rebuilds.
type countingRebuilder struct {
	rebuilds int
}

func (c *countingRebuilder) Rebuild(ctx context.Context) error {
	c.rebuilds++
	return nil
}

func TestIngest_PersistsAndIndexes(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	rebuilder := &countingRebuilder{}
	svc := NewService(repo, &fakeEmbedder{}, store, rebuilder, "profiles")

	result, err := svc.Ingest(context.Background(), ProfileInput{
		CandidateID:     "cand-1",
		Name:            "Priya Raman",
		Title:           "Backend Engineer",
		Content:         "Ten years building Go services.",
		Skills:          []string{"Go", "PostgreSQL"},
		YearsExperience: 10,
	})
	require.NoError(t, err)
	require.False(t, result.Duplicate)

	stored, err := repo.GetByID(context.Background(), result.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "cand-1", stored.CandidateID)
	assert.NotEmpty(t, stored.ContentHash)

	point, ok := store.points[result.Profile.ID.String()]
	require.True(t, ok, "profile should be upserted into the vector store")
	assert.Equal(t, "cand-1", point.Metadata["candidate_id"])
	assert.Equal(t, "Go, PostgreSQL", point.Metadata["skills"])

	assert.Equal(t, 1, rebuilder.rebuilds, "ingestion should trigger a keyword index rebuild")
}

func TestIngest_DuplicateContentReturnsExisting(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	rebuilder := &countingRebuilder{}
	svc := NewService(repo, &fakeEmbedder{}, store, rebuilder, "profiles")

	input := ProfileInput{CandidateID: "cand-1", Name: "A", Content: "same content"}

	first, err := svc.Ingest(context.Background(), input)
	require.NoError(t, err)

	second, err := svc.Ingest(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)
	assert.Len(t, store.points, 1, "duplicate must not be indexed twice")
	assert.Equal(t, 1, rebuilder.rebuilds)
}

func TestIngest_SameContentDifferentCandidates(t *testing.T) {
	svc := NewService(newMemRepo(), &fakeEmbedder{}, newFakeStore(), &countingRebuilder{}, "profiles")

	first, err := svc.Ingest(context.Background(), ProfileInput{CandidateID: "cand-1", Content: "identical text"})
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), ProfileInput{CandidateID: "cand-2", Content: "identical text"})
	require.NoError(t, err)

	assert.False(t, second.Duplicate, "identical text from another candidate is a distinct profile")
	assert.NotEqual(t, first.Profile.ID, second.Profile.ID)
}

func TestIngest_Validation(t *testing.T) {
	svc := NewService(newMemRepo(), &fakeEmbedder{}, newFakeStore(), &countingRebuilder{}, "profiles")

	_, err := svc.Ingest(context.Background(), ProfileInput{Content: "no id"})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = svc.Ingest(context.Background(), ProfileInput{CandidateID: "cand-1"})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestIngest_EmbedFailureKeepsProfileRow(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &fakeEmbedder{err: errors.New("ollama down")}, newFakeStore(), &countingRebuilder{}, "profiles")

	_, err := svc.Ingest(context.Background(), ProfileInput{CandidateID: "cand-1", Content: "text"})
	require.Error(t, err)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1, "the row should survive an embedding failure for later reindexing")
}

func TestReindexAll_RecoversMissingVectors(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()

	// Ingestion-time embedding fails; the row survives without a vector.
	broken := NewService(repo, &fakeEmbedder{err: errors.New("ollama down")}, store, &countingRebuilder{}, "profiles")
	_, err := broken.Ingest(context.Background(), ProfileInput{CandidateID: "cand-1", Content: "Go services"})
	require.Error(t, err)
	require.Empty(t, store.points)

	emb := &fakeEmbedder{}
	rebuilder := &countingRebuilder{}
	svc := NewService(repo, emb, store, rebuilder, "profiles")

	count, err := svc.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, emb.batchCalls, "the corpus should be embedded in one batch")
	assert.Len(t, store.points, 1, "reindexing should backfill the missing vector")
	assert.Equal(t, 1, rebuilder.rebuilds)

	for _, p := range store.points {
		assert.Equal(t, "cand-1", p.Metadata["candidate_id"])
	}
}

func TestReindexAll_EmptyCorpus(t *testing.T) {
	rebuilder := &countingRebuilder{}
	svc := NewService(newMemRepo(), &fakeEmbedder{}, newFakeStore(), rebuilder, "profiles")

	count, err := svc.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, rebuilder.rebuilds, "an empty corpus still refreshes the keyword index")
}

func TestDelete_RemovesEverywhere(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	rebuilder := &countingRebuilder{}
	svc := NewService(repo, &fakeEmbedder{}, store, rebuilder, "profiles")

	result, err := svc.Ingest(context.Background(), ProfileInput{CandidateID: "cand-1", Content: "text"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), result.Profile.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), result.Profile.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.points)
	assert.Equal(t, 2, rebuilder.rebuilds, "ingest and delete each rebuild the keyword index")

	err = svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(newMemRepo(), &fakeEmbedder{}, store, nil, "profiles")

	require.NoError(t, svc.EnsureCollection(context.Background()))
	assert.True(t, store.collections["profiles"])
	require.NoError(t, svc.EnsureCollection(context.Background()))
}
