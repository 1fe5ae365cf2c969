// Package repository defines the candidate profile domain model and its data access interface.
package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Profile represents an ingested candidate profile
type Profile struct {
	ID              uuid.UUID
	CandidateID     string
	Name            string
	Title           string
	Content         string
	ContentHash     string
	Skills          []string
	YearsExperience int
	Seniority       string
	Metadata        map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SearchMetadata flattens profile fields into the metadata map stored in the
// vector index payload. Retrieval components read candidate fields back from
// this map, so the keys here must match what scoring normalization expects.
func (p *Profile) SearchMetadata() map[string]string {
	md := make(map[string]string, len(p.Metadata)+6)
	for k, v := range p.Metadata {
		md[k] = v
	}
	md["candidate_id"] = p.CandidateID
	md["name"] = p.Name
	md["title"] = p.Title
	md["skills"] = strings.Join(p.Skills, ", ")
	md["years_experience"] = strconv.Itoa(p.YearsExperience)
	if p.Seniority != "" {
		md["seniority"] = p.Seniority
	}
	return md
}

// ProfileRepository defines operations for profile persistence
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByHash(ctx context.Context, hash string) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	// ListAll returns every stored profile. Used to build keyword index
	// snapshots; the profile corpus is small enough to hold in memory.
	ListAll(ctx context.Context) ([]*Profile, error)
	Update(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
}
