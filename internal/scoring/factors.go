package scoring

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/memstore"
	"github.com/lazypower/salience/internal/project"
)

// DefaultDecayRate is the per-day exponential decay constant.
const DefaultDecayRate = 0.05

// Per-field defaults when a record is missing or malformed.
const (
	missingDateDecay    = 0.5
	emptyTagsRelevance  = 0.3
	emptyContextBase    = 0.5
	missingQuality      = 0.5
	noAnalysisRelevance = 0.3
)

// fixedContentKeywords always participate in content relevance alongside the
// project-derived terms.
var fixedContentKeywords = []string{
	"architecture", "decision", "implementation", "bug", "fix",
	"feature", "config", "setup", "deployment", "performance",
}

// genericContentPatterns match low-value session-summary boilerplate; any hit
// floors content quality at 0.05.
var genericContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^#*\s*session summary`),
	regexp.MustCompile(`(?i)^session (started|ended|completed|resumed)`),
	regexp.MustCompile(`(?i)^(updated|modified|changed) \d+ files?`),
	regexp.MustCompile(`(?i)^continu(ing|ation of) (the )?(previous )?(session|conversation)`),
	regexp.MustCompile(`(?i)^(working on|worked on) (the )?(project|codebase)\.?$`),
	regexp.MustCompile(`(?i)^no significant (changes|progress)`),
}

// meaningfulMarkers signal substantive content. Each occurrence nudges the
// quality score up.
var meaningfulMarkers = []string{
	"decided", "because", "solution", "fixed", "implemented", "architecture",
	"pattern", "learned", "important", "approach", "tradeoff", "resolved",
	"configured", "designed", "discovered", "optimized", "refactored", "migrated",
}

// typeBonuses is the memory_type adjustment table.
var typeBonuses = map[string]float64{
	"decision":     0.3,
	"architecture": 0.3,
	"reference":    0.2,
	"insight":      0.2,
	"session":      0.15,
	"bug-fix":      0.15,
	"feature":      0.1,
	"note":         0.05,
	"todo":         0.05,
	"temporary":    -0.1,
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TimeDecay scores exponential freshness on created_at. Records without a
// usable date sit at the neutral 0.5, and decay is monotonically
// non-increasing in age with a 0.01 floor.
func TimeDecay(m memstore.Memory, now time.Time, decayRate float64) float64 {
	created, ok := m.CreatedTime()
	if !ok {
		return missingDateDecay
	}
	daysOld := now.Sub(created).Hours() / 24
	return math.Max(0.01, math.Min(1.0, math.Exp(-decayRate*daysOld)))
}

// TagRelevance measures overlap between memory tags and the project's
// identity terms, with bonuses for direct name, language, and framework hits.
func TagRelevance(m memstore.Memory, p project.Profile) float64 {
	if len(m.Tags) == 0 {
		return emptyTagsRelevance
	}
	ctx := p.ContextTerms()
	if len(ctx) == 0 {
		return emptyContextBase
	}

	tagSet := make(map[string]bool, len(m.Tags))
	for _, t := range m.Tags {
		tagSet[strings.ToLower(t)] = true
	}

	matched := 0
	for _, term := range ctx {
		if tagSet[term] {
			matched++
		}
	}
	score := float64(matched) / float64(len(ctx))

	name := strings.ToLower(p.Name)
	lang := strings.ToLower(p.Language)
	if name != "" && tagSet[name] {
		score += 0.3
	}
	if lang != "" && tagSet[lang] {
		score += 0.2
	}
	for _, fw := range p.Frameworks {
		fw = strings.ToLower(fw)
		for tag := range tagSet {
			if fw != "" && strings.Contains(tag, fw) {
				score += 0.1
				break
			}
		}
	}

	return clamp(score, 0.1, 1.0)
}

// ContentRelevance counts project and fixed keyword occurrences in the
// memory body with logarithmic dampening on repeats.
func ContentRelevance(m memstore.Memory, p project.Profile) float64 {
	keywords := append(p.ContextTerms(), fixedContentKeywords...)
	if len(keywords) == 0 {
		return 0.1
	}

	content := strings.ToLower(m.Content)
	hit := 0
	var accumulated float64
	for _, kw := range keywords {
		count := strings.Count(content, kw)
		if count > 0 {
			hit++
			accumulated += math.Log(1+float64(count)) * 0.1
		}
	}

	score := math.Min(1.0, float64(hit)/float64(len(keywords))+accumulated)
	return clamp(score, 0.1, 1.0)
}

// ContentQuality is a length/diversity/meaningfulness heuristic in
// [0.05, 1.0]. Generic session-summary boilerplate pins to 0.05.
func ContentQuality(content string) float64 {
	trimmed := strings.TrimSpace(content)
	for _, re := range genericContentPatterns {
		if re.MatchString(trimmed) {
			return 0.05
		}
	}
	if len(trimmed) < 50 {
		return 0.2
	}

	lower := strings.ToLower(trimmed)
	meaningful := 0
	for _, marker := range meaningfulMarkers {
		meaningful += strings.Count(lower, marker)
	}

	words := strings.Fields(lower)
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	diversity := 0.0
	if len(words) > 0 {
		diversity = float64(len(unique)) / float64(len(words))
	}

	score := math.Min(0.4, float64(meaningful)*0.08) +
		math.Min(0.3, diversity*0.5) +
		math.Min(0.3, float64(len(trimmed))/1000)
	return clamp(score, 0.05, 1.0)
}

// BackendQuality reads the store-attached quality scalar, defaulting to the
// neutral midpoint when absent.
func BackendQuality(m memstore.Memory) float64 {
	if q, ok := m.Quality(); ok {
		return clamp(q, 0, 1)
	}
	return missingQuality
}

// TypeBonus looks up the memory_type adjustment; unknown types get zero.
func TypeBonus(memoryType string) float64 {
	return typeBonuses[strings.ToLower(memoryType)]
}

// RecencyBonus rewards memories created in the last month, tiered by age.
// Invalid or future dates earn nothing.
func RecencyBonus(m memstore.Memory, now time.Time) float64 {
	created, ok := m.CreatedTime()
	if !ok {
		return 0
	}
	daysOld := now.Sub(created).Hours() / 24
	switch {
	case daysOld < 0:
		return 0
	case daysOld <= 7:
		return 0.15
	case daysOld <= 14:
		return 0.10
	case daysOld <= 30:
		return 0.05
	default:
		return 0
	}
}

// ConversationRelevance measures how well a memory lines up with the live
// analysis across four factors: topics, entities, intent keywords, and code
// indicators. Only factors that matched contribute, and the sum is
// normalized by the matched-factor count.
func ConversationRelevance(m memstore.Memory, a *analysis.Analysis) float64 {
	if a == nil || strings.TrimSpace(m.Content) == "" {
		return noAnalysisRelevance
	}

	content := strings.ToLower(m.Content)
	tags := make([]string, len(m.Tags))
	for i, t := range m.Tags {
		tags[i] = strings.ToLower(t)
	}
	inMemory := func(term string) bool {
		if strings.Contains(content, term) {
			return true
		}
		for _, tag := range tags {
			if strings.Contains(tag, term) {
				return true
			}
		}
		return false
	}

	var sum float64
	matched := 0

	var topicScore float64
	for _, t := range a.Topics {
		if inMemory(t.Name) {
			topicScore += 0.4 * t.Confidence
		}
	}
	if topicScore > 0 {
		sum += math.Min(1.0, topicScore)
		matched++
	}

	var entityScore float64
	for _, e := range a.Entities {
		if inMemory(e.Name) {
			entityScore += 0.3 * e.Confidence
		}
	}
	if entityScore > 0 {
		sum += math.Min(1.0, entityScore)
		matched++
	}

	if a.Intent != nil {
		hits := 0
		for _, kw := range analysis.IntentKeywords(a.Intent.Name) {
			if strings.Contains(content, kw) {
				hits++
			}
		}
		if hits > 0 {
			sum += math.Min(1.0, float64(hits)*0.25)
			matched++
		}
	}

	if a.CodeContext != nil && a.CodeContext.IsCodeRelated {
		hits := 0
		for _, ind := range analysis.CodeIndicators() {
			if strings.Contains(content, ind) {
				hits++
			}
		}
		if hits > 0 {
			sum += math.Min(1.0, float64(hits)*0.2)
			matched++
		}
	}

	if matched == 0 {
		return 0.1
	}
	return clamp(sum/float64(matched), 0.1, 1.0)
}
