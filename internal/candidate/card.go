// Package candidate normalizes loosely-typed profile metadata into a
// strongly-typed candidate card.
//
// Metadata arrives as string key-value pairs with inconsistent field names
// across producers ("skills" vs "top_skills", numbers as strings). All
// normalization lives in FromMetadata with a fixed priority list and
// documented defaults; callers must never branch on raw metadata keys.
package candidate

import (
	"strconv"
	"strings"
)

// Card is the normalized, strongly-typed view of a candidate profile.
type Card struct {
	ID              string
	Name            string
	Title           string
	Skills          []string
	YearsExperience int
	Seniority       string
	Location        string
	Company         string
}

// skillsKeys is the priority order for locating the skill list.
var skillsKeys = []string{"skills", "top_skills"}

// FromMetadata builds a Card from a metadata map. Missing fields get
// explicit defaults rather than rejecting the candidate: skills default to
// empty, experience to 0, name to "Unknown". fallbackID is used when no
// candidate identifier is present, so every card has a stable non-empty ID.
func FromMetadata(md map[string]string, fallbackID string) Card {
	card := Card{
		ID:        firstNonEmpty(md["candidate_id"], md["id"], fallbackID),
		Name:      firstNonEmpty(md["name"], "Unknown"),
		Title:     firstNonEmpty(md["title"], md["current_title"], "Unknown"),
		Seniority: md["seniority"],
		Location:  md["location"],
		Company:   md["company"],
	}

	for _, key := range skillsKeys {
		if raw, ok := md[key]; ok && strings.TrimSpace(raw) != "" {
			card.Skills = splitSkills(raw)
			break
		}
	}

	if raw, ok := md["years_experience"]; ok {
		if years, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && years >= 0 {
			card.YearsExperience = years
		}
	}

	return card
}

// MatchSkills returns the candidate's skills that satisfy the required
// skills, comparing case-insensitively and tolerating qualified skill names
// (a requirement "vue" matches a skill "Vue.js"). With no requirements the
// candidate's own skills are returned, so match-based scoring still has a
// signal.
func (c Card) MatchSkills(required []string) []string {
	if len(required) == 0 {
		return c.Skills
	}

	var matched []string
	for _, skill := range c.Skills {
		lower := strings.ToLower(skill)
		for _, req := range required {
			if strings.Contains(lower, strings.ToLower(strings.TrimSpace(req))) {
				matched = append(matched, skill)
				break
			}
		}
	}
	return matched
}

// splitSkills parses a skill list serialized as a delimited string.
func splitSkills(raw string) []string {
	raw = strings.NewReplacer(";", ",", "|", ",").Replace(raw)
	parts := strings.Split(raw, ",")

	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
