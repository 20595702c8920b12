// Package project describes the project a conversation is happening in.
// Profiles are consumed read-only by the query synthesizer and the scorer.
package project

import (
	"strings"
	"time"
)

// GitInfo carries lightweight repository state for scoring adjustments.
type GitInfo struct {
	Branch       string    `json:"branch,omitempty"`
	LastCommitAt time.Time `json:"last_commit_at,omitempty"`
}

// Profile identifies the detected project.
type Profile struct {
	Name       string   `json:"name"`
	Language   string   `json:"language,omitempty"`
	Frameworks []string `json:"frameworks,omitempty"`
	Tools      []string `json:"tools,omitempty"`
	Git        *GitInfo `json:"git,omitempty"`
	Confidence float64  `json:"confidence"`
}

// ContextTerms returns the lower-cased non-empty identity terms of the
// profile: name, language, frameworks, and tools. This is the tag-affinity
// context the scorer intersects against memory tags.
func (p Profile) ContextTerms() []string {
	var terms []string
	add := func(s string) {
		if s != "" {
			terms = append(terms, strings.ToLower(s))
		}
	}
	add(p.Name)
	add(p.Language)
	for _, f := range p.Frameworks {
		add(f)
	}
	for _, t := range p.Tools {
		add(t)
	}
	return terms
}
