package analysis

import "time"

// Topic is a coarse conversation label drawn from the fixed taxonomy.
type Topic struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Entity is a concrete technology or project mentioned in conversation.
type Entity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"` // language, framework, database, tool, cloud, project
	Confidence float64 `json:"confidence"`
}

// Intent captures what the user is trying to accomplish.
type Intent struct {
	Name       string  `json:"name"` // learning, problem-solving, development, optimization, review, planning
	Confidence float64 `json:"confidence"`
}

// CodeContext records which code-shaped signals were present in the text.
type CodeContext struct {
	HasCodeBlocks    bool     `json:"has_code_blocks"`
	HasInlineCode    bool     `json:"has_inline_code"`
	HasFilePaths     bool     `json:"has_file_paths"`
	HasErrorMessages bool     `json:"has_error_messages"`
	HasCommands      bool     `json:"has_commands"`
	HasURLs          bool     `json:"has_urls"`
	Languages        []string `json:"languages,omitempty"`
	IsCodeRelated    bool     `json:"is_code_related"`
}

// Metadata describes the analyzed input.
type Metadata struct {
	Length     int       `json:"length"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Analysis is the immutable output of one Analyze call.
type Analysis struct {
	Topics      []Topic      `json:"topics"`
	Entities    []Entity     `json:"entities"`
	Intent      *Intent      `json:"intent,omitempty"`
	CodeContext *CodeContext `json:"code_context,omitempty"`
	Confidence  float64      `json:"confidence"`
	Metadata    Metadata     `json:"metadata"`
}

// Change summarizes how much the conversation moved between two analyses.
type Change struct {
	HasTopicShift     bool    `json:"has_topic_shift"`
	NewTopics         []Topic `json:"new_topics"`
	ChangedIntents    bool    `json:"changed_intents"`
	SignificanceScore float64 `json:"significance_score"`
}

// Options controls which factors Analyze extracts.
type Options struct {
	ExtractTopics      bool
	ExtractEntities    bool
	DetectIntent       bool
	DetectCodeContext  bool
	MinTopicConfidence float64
}

// DefaultOptions enables every factor with the standard confidence floor.
func DefaultOptions() Options {
	return Options{
		ExtractTopics:      true,
		ExtractEntities:    true,
		DetectIntent:       true,
		DetectCodeContext:  true,
		MinTopicConfidence: 0.3,
	}
}
