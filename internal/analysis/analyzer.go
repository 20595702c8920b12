// Package analysis extracts topics, entities, intent, and code context from
// raw conversation text using fixed pattern taxonomies. Analyses are pure
// functions of their inputs: same text, same options, same output (up to the
// analyzed-at timestamp).
package analysis

import (
	"sort"
	"strings"
	"time"
)

// matchScore implements the shared rule-scoring curve: more matches raise
// confidence, saturating at 1.0.
func matchScore(matches int, weight float64) float64 {
	s := float64(matches) * weight * 0.3
	if s > 1.0 {
		return 1.0
	}
	return s
}

// Analyze runs the configured extraction passes over text. It never fails:
// malformed or empty input yields a partial Analysis with whichever factors
// produced anything.
func Analyze(text string, opts Options) Analysis {
	a := Analysis{
		Metadata: Metadata{
			Length:     len(text),
			AnalyzedAt: time.Now(),
		},
	}

	if opts.ExtractTopics {
		a.Topics = extractTopics(text, opts.MinTopicConfidence)
	}
	if opts.ExtractEntities {
		a.Entities = extractEntities(text)
	}
	if opts.DetectIntent {
		a.Intent = detectIntent(text)
	}
	if opts.DetectCodeContext {
		a.CodeContext = detectCodeContext(text)
	}

	a.Confidence = overallConfidence(&a)
	return a
}

// extractTopics scores every topic rule and keeps the best score per label,
// dropping labels below minConfidence and capping at the top 10.
func extractTopics(text string, minConfidence float64) []Topic {
	best := make(map[string]Topic)
	order := make(map[string]int)

	for i, rule := range topicRules {
		matches := rule.pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		score := matchScore(len(matches), rule.weight)
		if prev, ok := best[rule.label]; !ok || score > prev.Confidence {
			best[rule.label] = Topic{Name: rule.label, Confidence: score, Weight: rule.weight}
			if !ok {
				order[rule.label] = i
			}
		}
	}

	var topics []Topic
	for _, t := range best {
		if t.Confidence >= minConfidence {
			topics = append(topics, t)
		}
	}

	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Confidence != topics[j].Confidence {
			return topics[i].Confidence > topics[j].Confidence
		}
		return order[topics[i].Name] < order[topics[j].Name]
	})

	if len(topics) > 10 {
		topics = topics[:10]
	}
	return topics
}

// extractEntities collects matches across all entity rules, lower-cased and
// de-duplicated by name. The first rule to claim a name wins its type.
func extractEntities(text string) []Entity {
	seen := make(map[string]bool)
	var entities []Entity

	for _, rule := range entityRules {
		for _, m := range rule.pattern.FindAllString(text, -1) {
			name := strings.ToLower(m)
			if seen[name] {
				continue
			}
			seen[name] = true
			entities = append(entities, Entity{Name: name, Type: rule.etype, Confidence: 0.8})
		}
	}
	return entities
}

// detectIntent returns the single best-scoring intent, ties broken by rule
// order. Nil when nothing matches.
func detectIntent(text string) *Intent {
	var best *Intent
	for _, rule := range intentRules {
		matches := rule.pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		score := matchScore(len(matches), rule.weight)
		if best == nil || score > best.Confidence {
			best = &Intent{Name: rule.name, Confidence: score}
		}
	}
	return best
}

func detectCodeContext(text string) *CodeContext {
	cc := &CodeContext{
		HasCodeBlocks:    reCodeBlock.MatchString(text),
		HasInlineCode:    reInlineCode.MatchString(text),
		HasFilePaths:     reFilePath.MatchString(text),
		HasErrorMessages: reErrorMsg.MatchString(text),
		HasCommands:      reCommand.MatchString(text),
		HasURLs:          reURL.MatchString(text),
	}

	langSeen := make(map[string]bool)
	for _, m := range reFenceLang.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(m[1])
		if !langSeen[lang] {
			langSeen[lang] = true
			cc.Languages = append(cc.Languages, lang)
		}
	}

	cc.IsCodeRelated = cc.HasCodeBlocks || cc.HasInlineCode || cc.HasFilePaths ||
		cc.HasErrorMessages || cc.HasCommands || cc.HasURLs || len(cc.Languages) > 0
	return cc
}

// overallConfidence is the mean across the factors that produced anything:
// average topic confidence, average entity confidence, intent confidence,
// and a flat 0.8 when the text is code-related. Zero when nothing fired.
func overallConfidence(a *Analysis) float64 {
	var sum float64
	var n int

	if len(a.Topics) > 0 {
		var t float64
		for _, topic := range a.Topics {
			t += topic.Confidence
		}
		sum += t / float64(len(a.Topics))
		n++
	}
	if len(a.Entities) > 0 {
		var e float64
		for _, ent := range a.Entities {
			e += ent.Confidence
		}
		sum += e / float64(len(a.Entities))
		n++
	}
	if a.Intent != nil {
		sum += a.Intent.Confidence
		n++
	}
	if a.CodeContext != nil && a.CodeContext.IsCodeRelated {
		sum += 0.8
		n++
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
