package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/memstore"
	"github.com/lazypower/salience/internal/project"
)

// Project affinity labels attached to the breakdown.
const (
	AffinityHigh     = "high"
	AffinityLow      = "low"
	AffinityFiltered = "none (filtered)"
)

// Breakdown records every sub-score that fed a final relevance value.
type Breakdown struct {
	TimeDecay             float64 `json:"time_decay"`
	TagRelevance          float64 `json:"tag_relevance"`
	ContentRelevance      float64 `json:"content_relevance"`
	ContentQuality        float64 `json:"content_quality"`
	BackendQuality        float64 `json:"backend_quality"`
	ConversationRelevance float64 `json:"conversation_relevance,omitempty"`
	TypeBonus             float64 `json:"type_bonus"`
	RecencyBonus          float64 `json:"recency_bonus"`
	ProjectAffinity       string  `json:"project_affinity"`
}

// Scored is the in-memory augmented view of a store record. The record
// itself stays read-only.
type Scored struct {
	memstore.Memory
	RelevanceScore float64   `json:"relevance_score"`
	Breakdown      Breakdown `json:"score_breakdown"`
	QueryContext   string    `json:"query_context,omitempty"`
}

// Scorer holds the fixed inputs of one scoring pass.
type Scorer struct {
	Project   project.Profile
	Analysis  *analysis.Analysis // nil disables the conversation factor
	Weights   Weights
	DecayRate float64
	Now       func() time.Time
}

// NewScorer builds a scorer with the default profile for the given inputs.
func NewScorer(p project.Profile, a *analysis.Analysis) *Scorer {
	return &Scorer{
		Project:   p,
		Analysis:  a,
		Weights:   DefaultWeights(a != nil),
		DecayRate: DefaultDecayRate,
		Now:       time.Now,
	}
}

// Score computes the final relevance for one memory. The result is always in
// [0,1]; hard-filtered memories come back exactly 0.
func (s *Scorer) Score(m memstore.Memory) (float64, Breakdown) {
	now := s.Now()
	b := Breakdown{
		TimeDecay:        TimeDecay(m, now, s.DecayRate),
		TagRelevance:     TagRelevance(m, s.Project),
		ContentRelevance: ContentRelevance(m, s.Project),
		ContentQuality:   ContentQuality(m.Content),
		BackendQuality:   BackendQuality(m),
		TypeBonus:        TypeBonus(m.MemoryType),
		RecencyBonus:     RecencyBonus(m, now),
	}

	final := s.Weights.TimeDecay*b.TimeDecay +
		s.Weights.TagRelevance*b.TagRelevance +
		s.Weights.ContentRelevance*b.ContentRelevance +
		s.Weights.ContentQuality*b.ContentQuality +
		s.Weights.BackendQuality*b.BackendQuality

	if s.Analysis != nil {
		b.ConversationRelevance = ConversationRelevance(m, s.Analysis)
		final += s.Weights.ConversationRelevance * b.ConversationRelevance
	}

	// Bonuses apply outside the weighted sum.
	final += b.TypeBonus + b.RecencyBonus

	if b.ContentQuality < 0.2 {
		final *= 0.5
	}

	switch s.projectAffinity(m, b.TagRelevance) {
	case AffinityHigh:
		b.ProjectAffinity = AffinityHigh
	case AffinityLow:
		b.ProjectAffinity = AffinityLow
		final *= 0.5
	default:
		b.ProjectAffinity = AffinityFiltered
		return 0, b
	}

	return clamp(final, 0, 1), b
}

// projectAffinity classifies how strongly a memory belongs to the current
// project. "high" means the project name shows up in a tag or the content;
// "low" means tag relevance alone carries it; anything weaker is filtered.
func (s *Scorer) projectAffinity(m memstore.Memory, tagRelevance float64) string {
	name := strings.ToLower(s.Project.Name)
	if name == "" {
		return AffinityHigh
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), name) {
			return AffinityHigh
		}
	}
	if strings.Contains(strings.ToLower(m.Content), name) {
		return AffinityHigh
	}
	if tagRelevance >= 0.3 {
		return AffinityLow
	}
	return AffinityFiltered
}

// ScoreMemoryRelevance scores every memory, attaches score and breakdown,
// and returns the augmented list sorted non-increasing by relevance.
func (s *Scorer) ScoreMemoryRelevance(memories []memstore.Memory) []Scored {
	scored := make([]Scored, 0, len(memories))
	for _, m := range memories {
		final, breakdown := s.Score(m)
		scored = append(scored, Scored{
			Memory:         m,
			RelevanceScore: final,
			Breakdown:      breakdown,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	return scored
}

// FilterByRelevance drops entries scoring below min.
func FilterByRelevance(scored []Scored, min float64) []Scored {
	kept := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.RelevanceScore >= min {
			kept = append(kept, s)
		}
	}
	return kept
}
