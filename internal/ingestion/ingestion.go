// Package ingestion handles candidate profile intake: validation,
// deduplication, persistence, embedding, and index maintenance.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/talentmatch/matchd/internal/embedder"
	"github.com/talentmatch/matchd/internal/repository"
	"github.com/talentmatch/matchd/internal/vectorstore"
)

// ErrInvalidProfile is returned when a submitted profile fails validation.
var ErrInvalidProfile = errors.New("invalid profile")

// IndexRebuilder rebuilds a derived search index after the profile corpus
// changes. Satisfied by the keyword retriever.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) error
}

// ProfileInput is a profile submission before ingestion.
type ProfileInput struct {
	CandidateID     string
	Name            string
	Title           string
	Content         string
	Skills          []string
	YearsExperience int
	Seniority       string
	Metadata        map[string]string
}

// Result reports the outcome of one ingestion.
type Result struct {
	Profile   *repository.Profile
	Duplicate bool
}

// Service ingests profiles into Postgres and the vector index, and keeps the
// keyword index in sync.
type Service struct {
	profileRepo repository.ProfileRepository
	embedder    embedder.Embedder
	vectorDB    vectorstore.VectorStore
	rebuilder   IndexRebuilder
	collection  string
}

// NewService creates an ingestion service.
func NewService(
	profileRepo repository.ProfileRepository,
	emb embedder.Embedder,
	vectorDB vectorstore.VectorStore,
	rebuilder IndexRebuilder,
	collection string,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		embedder:    emb,
		vectorDB:    vectorDB,
		rebuilder:   rebuilder,
		collection:  collection,
	}
}

// EnsureCollection creates the profile collection if it does not exist.
func (s *Service) EnsureCollection(ctx context.Context) error {
	exists, err := s.vectorDB.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.vectorDB.CreateCollection(ctx, s.collection, s.embedder.Dimension()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	slog.Info("created profile collection",
		"collection", s.collection,
		"dimension", s.embedder.Dimension())
	return nil
}

// Ingest validates, deduplicates, persists, and indexes one profile.
// Resubmitting identical content for the same candidate returns the existing
// profile with Duplicate set rather than indexing it twice.
func (s *Service) Ingest(ctx context.Context, input ProfileInput) (*Result, error) {
	if input.CandidateID == "" {
		return nil, fmt.Errorf("%w: candidate_id is required", ErrInvalidProfile)
	}
	if input.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidProfile)
	}

	// Hash includes the candidate ID so two candidates with identical
	// profile text are still distinct records.
	contentHash := hashContent(input.CandidateID + "\n" + input.Content)

	existing, err := s.profileRepo.GetByHash(ctx, contentHash)
	if err == nil && existing != nil {
		return &Result{Profile: existing, Duplicate: true}, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	now := time.Now()
	profile := &repository.Profile{
		ID:              uuid.New(),
		CandidateID:     input.CandidateID,
		Name:            input.Name,
		Title:           input.Title,
		Content:         input.Content,
		ContentHash:     contentHash,
		Skills:          input.Skills,
		YearsExperience: input.YearsExperience,
		Seniority:       input.Seniority,
		Metadata:        input.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if profile.Name == "" {
		profile.Name = "Unknown"
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, profile.Content)
	if err != nil {
		// The profile row survives; reindexing can recover the vector later.
		return nil, fmt.Errorf("failed to embed profile: %w", err)
	}

	point := vectorstore.Point{
		ID:       profile.ID.String(),
		Content:  profile.Content,
		Vector:   vector,
		Metadata: profile.SearchMetadata(),
	}
	if err := s.vectorDB.Upsert(ctx, s.collection, []vectorstore.Point{point}); err != nil {
		return nil, fmt.Errorf("failed to index profile: %w", err)
	}

	s.rebuildIndex(ctx)

	slog.Info("profile ingested",
		"profile_id", profile.ID,
		"candidate_id", profile.CandidateID,
		"skills", len(profile.Skills))

	return &Result{Profile: profile}, nil
}

// Delete removes a profile from Postgres and both search indexes.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.profileRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.vectorDB.Delete(ctx, s.collection, []string{id.String()}); err != nil {
		return fmt.Errorf("failed to remove profile vector: %w", err)
	}
	s.rebuildIndex(ctx)
	return nil
}

// ReindexAll re-embeds every stored profile, rewrites the vector index, and
// rebuilds the keyword index. Recovers profiles whose ingestion-time embedding
// failed and backfills after an embedding model change. Returns the number of
// profiles reindexed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	profiles, err := s.profileRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load profiles: %w", err)
	}
	if len(profiles) == 0 {
		s.rebuildIndex(ctx)
		return 0, nil
	}

	contents := make([]string, len(profiles))
	for i, p := range profiles {
		contents[i] = p.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return 0, fmt.Errorf("failed to embed profiles: %w", err)
	}
	if len(vectors) != len(profiles) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d profiles", len(vectors), len(profiles))
	}

	points := make([]vectorstore.Point, len(profiles))
	for i, p := range profiles {
		points[i] = vectorstore.Point{
			ID:       p.ID.String(),
			Content:  p.Content,
			Vector:   vectors[i],
			Metadata: p.SearchMetadata(),
		}
	}
	if err := s.vectorDB.Upsert(ctx, s.collection, points); err != nil {
		return 0, fmt.Errorf("failed to rewrite vector index: %w", err)
	}

	s.rebuildIndex(ctx)

	slog.Info("profile corpus reindexed", "profiles", len(profiles))
	return len(profiles), nil
}

// RebuildIndex forces a keyword index rebuild from the current corpus.
func (s *Service) RebuildIndex(ctx context.Context) error {
	if s.rebuilder == nil {
		return nil
	}
	return s.rebuilder.Rebuild(ctx)
}

func (s *Service) rebuildIndex(ctx context.Context) {
	if s.rebuilder == nil {
		return
	}
	if err := s.rebuilder.Rebuild(ctx); err != nil {
		slog.Warn("keyword index rebuild failed", "error", err)
	}
}

// hashContent computes a SHA256 hash of content for deduplication.
func hashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
