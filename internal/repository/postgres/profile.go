package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentmatch/matchd/internal/repository"
)

// ProfileRepo implements repository.ProfileRepository
type ProfileRepo struct {
	db *DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, candidate_id, name, title, content, content_hash, skills, years_experience, seniority, metadata, created_at, updated_at`

// Create creates a new profile
func (r *ProfileRepo) Create(ctx context.Context, profile *repository.Profile) error {
	metadataJSON, err := json.Marshal(profile.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		profile.ID, profile.CandidateID, profile.Name, profile.Title,
		profile.Content, profile.ContentHash, profile.Skills,
		profile.YearsExperience, profile.Seniority, metadataJSON,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return r.scanProfile(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByHash retrieves a profile by content hash
func (r *ProfileRepo) GetByHash(ctx context.Context, hash string) (*repository.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE content_hash = $1`
	return r.scanProfile(r.db.Pool.QueryRow(ctx, query, hash))
}

func (r *ProfileRepo) scanProfile(row pgx.Row) (*repository.Profile, error) {
	var profile repository.Profile
	var metadataJSON []byte

	err := row.Scan(
		&profile.ID, &profile.CandidateID, &profile.Name, &profile.Title,
		&profile.Content, &profile.ContentHash, &profile.Skills,
		&profile.YearsExperience, &profile.Seniority, &metadataJSON,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.Metadata = make(map[string]string)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &profile.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &profile, nil
}

// List retrieves profiles with pagination
func (r *ProfileRepo) List(ctx context.Context, limit, offset int) ([]*repository.Profile, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles, err := r.collectProfiles(rows)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListAll retrieves every stored profile ordered by creation time.
// Ordering matters: the keyword index assigns document positions from this
// order, and ranking tie-breaks depend on stable positions across rebuilds.
func (r *ProfileRepo) ListAll(ctx context.Context) ([]*repository.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at, id`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	return r.collectProfiles(rows)
}

func (r *ProfileRepo) collectProfiles(rows pgx.Rows) ([]*repository.Profile, error) {
	var profiles []*repository.Profile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// Update updates an existing profile
func (r *ProfileRepo) Update(ctx context.Context, profile *repository.Profile) error {
	metadataJSON, err := json.Marshal(profile.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		UPDATE profiles
		SET candidate_id = $2, name = $3, title = $4, content = $5,
		    content_hash = $6, skills = $7, years_experience = $8,
		    seniority = $9, metadata = $10, updated_at = $11
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		profile.ID, profile.CandidateID, profile.Name, profile.Title,
		profile.Content, profile.ContentHash, profile.Skills,
		profile.YearsExperience, profile.Seniority, metadataJSON,
		profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a profile by ID
func (r *ProfileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure ProfileRepo implements ProfileRepository
var _ repository.ProfileRepository = (*ProfileRepo)(nil)
