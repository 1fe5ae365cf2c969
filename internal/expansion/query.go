// Package expansion turns a job query into multiple semantically diverse
// search queries, and extracts structured facets from raw job descriptions.
package expansion

import "strings"

// Query is an immutable job query: the raw description plus optional
// structured facets. Built once per ranking request and never mutated.
type Query struct {
	Title          string
	Description    string
	RequiredSkills []string
	Seniority      string
	Department     string
}

// SearchText returns the consolidated text block used for query expansion
// and as the fallback search string.
func (q Query) SearchText() string {
	var sb strings.Builder
	if q.Title != "" {
		sb.WriteString("Job Title: ")
		sb.WriteString(q.Title)
		sb.WriteString("\n")
	}
	sb.WriteString("Description: ")
	sb.WriteString(q.Description)
	sb.WriteString("\n")
	if len(q.RequiredSkills) > 0 {
		sb.WriteString("Required Skills: ")
		sb.WriteString(strings.Join(q.RequiredSkills, ", "))
		sb.WriteString("\n")
	}
	if q.Seniority != "" {
		sb.WriteString("Seniority Level: ")
		sb.WriteString(q.Seniority)
		sb.WriteString("\n")
	}
	if q.Department != "" {
		sb.WriteString("Department: ")
		sb.WriteString(q.Department)
		sb.WriteString("\n")
	}
	return sb.String()
}

// baseQueryText is the search string for variant zero: the description
// itself, prefixed with the title when one is known.
func (q Query) baseQueryText() string {
	if q.Title == "" {
		return q.Description
	}
	return q.Title + " " + q.Description
}
