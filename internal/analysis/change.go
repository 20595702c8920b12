package analysis

// Significance thresholds and weights for change detection. The first
// analysis of a session weighs new topics more heavily since everything is
// new by definition.
const (
	firstTopicFloor   = 0.3
	firstTopicWeight  = 0.4
	newTopicFloor     = 0.4
	newTopicWeight    = 0.3
	intentShiftWeight = 0.4

	// TopicShiftThreshold is the significance at which a change counts as a
	// topic shift when a prior analysis exists.
	TopicShiftThreshold = 0.3
)

// DetectTopicChanges compares the current analysis against the previous one
// (nil for the first call of a session) and emits a Change with a
// significance score in [0,1].
func DetectTopicChanges(previous *Analysis, current Analysis) Change {
	if previous == nil {
		var fresh []Topic
		for _, t := range current.Topics {
			if t.Confidence > firstTopicFloor {
				fresh = append(fresh, t)
			}
		}
		score := float64(len(fresh)) * firstTopicWeight
		if score > 1.0 {
			score = 1.0
		}
		return Change{
			HasTopicShift:     len(fresh) > 0,
			NewTopics:         fresh,
			SignificanceScore: score,
		}
	}

	known := make(map[string]bool, len(previous.Topics))
	for _, t := range previous.Topics {
		known[t.Name] = true
	}

	var fresh []Topic
	for _, t := range current.Topics {
		if !known[t.Name] && t.Confidence > newTopicFloor {
			fresh = append(fresh, t)
		}
	}

	changedIntents := current.Intent != nil &&
		(previous.Intent == nil || previous.Intent.Name != current.Intent.Name)

	score := float64(len(fresh)) * newTopicWeight
	if changedIntents {
		score += intentShiftWeight
	}
	if score > 1.0 {
		score = 1.0
	}

	return Change{
		HasTopicShift:     score >= TopicShiftThreshold,
		NewTopics:         fresh,
		ChangedIntents:    changedIntents,
		SignificanceScore: score,
	}
}
