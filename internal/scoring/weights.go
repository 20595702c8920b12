// Package scoring computes per-memory relevance with a weighted additive
// model, multiplicative penalties, and a hard project-affinity filter.
package scoring

// Weight map keys accepted by Merge and configuration overrides.
const (
	WeightTimeDecay             = "time_decay"
	WeightTagRelevance          = "tag_relevance"
	WeightContentRelevance      = "content_relevance"
	WeightContentQuality        = "content_quality"
	WeightBackendQuality        = "backend_quality"
	WeightConversationRelevance = "conversation_relevance"
	WeightTypeBonus             = "type_bonus"
)

// Weights is one named profile of factor weights. TypeBonus participates in
// the profile for configurability but, like the recency bonus, is applied as
// an un-weighted adjustment on top of the weighted sum.
type Weights struct {
	TimeDecay             float64
	TagRelevance          float64
	ContentRelevance      float64
	ContentQuality        float64
	BackendQuality        float64
	ConversationRelevance float64
	TypeBonus             float64
}

// DefaultWeights returns the standard profile. When no conversation context
// is available its weight is redistributed across the remaining factors.
func DefaultWeights(withConversation bool) Weights {
	if withConversation {
		return Weights{
			TimeDecay:             0.15,
			TagRelevance:          0.25,
			ContentRelevance:      0.10,
			ContentQuality:        0.15,
			BackendQuality:        0.15,
			ConversationRelevance: 0.20,
			TypeBonus:             0.05,
		}
	}
	return Weights{
		TimeDecay:        0.20,
		TagRelevance:     0.30,
		ContentRelevance: 0.10,
		ContentQuality:   0.20,
		BackendQuality:   0.20,
		TypeBonus:        0.05,
	}
}

// Merge returns a copy of w with the given per-factor overrides applied.
// Unknown keys are ignored so configuration can carry forward-compatible
// entries without breaking older binaries.
func (w Weights) Merge(overrides map[string]float64) Weights {
	for k, v := range overrides {
		switch k {
		case WeightTimeDecay:
			w.TimeDecay = v
		case WeightTagRelevance:
			w.TagRelevance = v
		case WeightContentRelevance:
			w.ContentRelevance = v
		case WeightContentQuality:
			w.ContentQuality = v
		case WeightBackendQuality:
			w.BackendQuality = v
		case WeightConversationRelevance:
			w.ConversationRelevance = v
		case WeightTypeBonus:
			w.TypeBonus = v
		}
	}
	return w
}
