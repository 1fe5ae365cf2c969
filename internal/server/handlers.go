package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talentmatch/matchd/internal/ingestion"
	"github.com/talentmatch/matchd/internal/pipeline"
	"github.com/talentmatch/matchd/internal/repository"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	pipeline    *pipeline.Pipeline
	ingestor    *ingestion.Service
	profileRepo repository.ProfileRepository
}

// NewHandler creates the API handler.
func NewHandler(p *pipeline.Pipeline, ing *ingestion.Service, repo repository.ProfileRepository) *Handler {
	return &Handler{
		pipeline:    p,
		ingestor:    ing,
		profileRepo: repo,
	}
}

type matchRequest struct {
	Description string `json:"description"`
	TopK        int    `json:"top_k,omitempty"`
}

type matchResponse struct {
	TotalCandidates int          `json:"total_candidates"`
	Job             jobView      `json:"job"`
	TopMatches      []matchView  `json:"top_matches"`
	Metadata        metadataView `json:"metadata"`
}

type jobView struct {
	Title          string   `json:"title"`
	Seniority      string   `json:"seniority,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

type matchView struct {
	CandidateID       string   `json:"candidate_id"`
	Name              string   `json:"name"`
	Title             string   `json:"title,omitempty"`
	Score             float64  `json:"score"`
	SkillsMatch       []string `json:"skills_match"`
	Reasoning         string   `json:"reasoning"`
	FaithfulnessScore float64  `json:"faithfulness_score,omitempty"`
	Evaluated         bool     `json:"evaluated"`
}

type metadataView struct {
	RetrievalTimeMs  int64 `json:"retrieval_time_ms"`
	RerankTimeMs     int64 `json:"rerank_time_ms"`
	EvaluationTimeMs int64 `json:"evaluation_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
	PoolSize         int   `json:"pool_size"`
}

// MatchCandidates ranks the candidate pool against a job description.
func (h *Handler) MatchCandidates(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	result, err := h.pipeline.Match(r.Context(), pipeline.MatchRequest{
		Description: req.Description,
		TopK:        req.TopK,
	})
	if err != nil {
		slog.Error("match request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "matching failed")
		return
	}

	matches := make([]matchView, len(result.Matches))
	for i, m := range result.Matches {
		matches[i] = matchView{
			CandidateID: m.Card.ID,
			Name:        m.Card.Name,
			Title:       m.Card.Title,
			Score:       presentScore(m.FinalScore),
			SkillsMatch: m.MatchedSkills,
			Reasoning:   m.Reasoning,
			Evaluated:   m.Evaluated,
		}
		if m.Evaluated {
			matches[i].FaithfulnessScore = m.Faithfulness
		}
		if matches[i].SkillsMatch == nil {
			matches[i].SkillsMatch = []string{}
		}
	}

	writeJSON(w, http.StatusOK, matchResponse{
		TotalCandidates: result.TotalCandidates,
		Job: jobView{
			Title:          result.Query.Title,
			Seniority:      result.Query.Seniority,
			RequiredSkills: result.Query.RequiredSkills,
		},
		TopMatches: matches,
		Metadata: metadataView{
			RetrievalTimeMs:  result.Metadata.RetrievalTimeMs,
			RerankTimeMs:     result.Metadata.RerankTimeMs,
			EvaluationTimeMs: result.Metadata.EvaluationTimeMs,
			TotalTimeMs:      result.Metadata.TotalTimeMs,
			PoolSize:         result.Metadata.PoolSize,
		},
	})
}

type ingestRequest struct {
	CandidateID     string            `json:"candidate_id"`
	Name            string            `json:"name"`
	Title           string            `json:"title"`
	Content         string            `json:"content"`
	Skills          []string          `json:"skills"`
	YearsExperience int               `json:"years_experience"`
	Seniority       string            `json:"seniority"`
	Metadata        map[string]string `json:"metadata"`
}

type profileView struct {
	ID              string   `json:"id"`
	CandidateID     string   `json:"candidate_id"`
	Name            string   `json:"name"`
	Title           string   `json:"title,omitempty"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	Seniority       string   `json:"seniority,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// IngestProfile ingests one candidate profile.
func (h *Handler) IngestProfile(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), ingestion.ProfileInput{
		CandidateID:     req.CandidateID,
		Name:            req.Name,
		Title:           req.Title,
		Content:         req.Content,
		Skills:          req.Skills,
		YearsExperience: req.YearsExperience,
		Seniority:       req.Seniority,
		Metadata:        req.Metadata,
	})
	if err != nil {
		if errors.Is(err, ingestion.ErrInvalidProfile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("profile ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"profile":   toProfileView(result.Profile),
		"duplicate": result.Duplicate,
	})
}

// GetProfile returns one profile by ID.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile ID")
		return
	}

	profile, err := h.profileRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		slog.Error("failed to get profile", "profile_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileView(profile))
}

// ListProfiles returns a page of profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	profiles, total, err := h.profileRepo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	views := make([]profileView, len(profiles))
	for i, p := range profiles {
		views[i] = toProfileView(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": views,
		"total":    total,
	})
}

// DeleteProfile removes a profile and its index entries.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile ID")
		return
	}

	if err := h.ingestor.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		slog.Error("failed to delete profile", "profile_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RebuildIndex forces a keyword index rebuild.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestor.RebuildIndex(r.Context()); err != nil {
		slog.Error("index rebuild failed", "error", err)
		writeError(w, http.StatusInternalServerError, "index rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// ReindexAll re-embeds the whole corpus and rewrites both search indexes.
func (h *Handler) ReindexAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.ingestor.ReindexAll(r.Context())
	if err != nil {
		slog.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "reindexed",
		"profiles": count,
	})
}

func toProfileView(p *repository.Profile) profileView {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return profileView{
		ID:              p.ID.String(),
		CandidateID:     p.CandidateID,
		Name:            p.Name,
		Title:           p.Title,
		Skills:          skills,
		YearsExperience: p.YearsExperience,
		Seniority:       p.Seniority,
		CreatedAt:       p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// presentScore converts an internal [0,1] score into the 0-100 scale the API
// exposes, rounded to one decimal place.
func presentScore(score float64) float64 {
	return math.Round(score*1000) / 10
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
