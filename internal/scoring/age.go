package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lazypower/salience/internal/memstore"
)

// DefaultGitContextWeight is the configured multiplier applied to git-hot
// memories before adaptive reduction.
const DefaultGitContextWeight = 1.2

// AgeStats summarizes the age distribution of a retrieved batch, in days.
// Advisory only: callers decide whether to act on the recommendation.
type AgeStats struct {
	Total   int     `json:"total"`
	Dated   int     `json:"dated"`
	Average float64 `json:"average_days"`
	Median  float64 `json:"median_days"`
	P75     float64 `json:"p75_days"`
	P90     float64 `json:"p90_days"`
	Recent  int     `json:"recent"` // ≤ 14 days
	Stale   int     `json:"stale"`  // > 30 days
}

// IsStale reports whether the batch skews old: median beyond a month, or
// fewer than a fifth of the whole batch recent. Undated records dilute the
// recent share rather than dropping out of it.
func (a AgeStats) IsStale() bool {
	if a.Dated == 0 {
		return false
	}
	return a.Median > 30 || float64(a.Recent)/float64(a.Total) < 0.2
}

// AnalyzeAgeDistribution computes batch age statistics. Records without a
// usable date count toward Total but not the distribution.
func AnalyzeAgeDistribution(memories []memstore.Memory, now time.Time) AgeStats {
	stats := AgeStats{Total: len(memories)}

	var ages []float64
	for _, m := range memories {
		created, ok := m.CreatedTime()
		if !ok {
			continue
		}
		age := now.Sub(created).Hours() / 24
		if age < 0 {
			continue
		}
		ages = append(ages, age)
		if age <= 14 {
			stats.Recent++
		}
		if age > 30 {
			stats.Stale++
		}
	}

	stats.Dated = len(ages)
	if len(ages) == 0 {
		return stats
	}

	sort.Float64s(ages)
	var sum float64
	for _, a := range ages {
		sum += a
	}
	stats.Average = sum / float64(len(ages))
	stats.Median = percentile(ages, 0.50)
	stats.P75 = percentile(ages, 0.75)
	stats.P90 = percentile(ages, 0.90)
	return stats
}

// percentile reads the q-th percentile from a sorted slice using the
// nearest-rank method.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// RecommendWeights suggests weight overrides for a batch's age profile plus
// a human-readable explanation. A nil map means the defaults are fine.
func RecommendWeights(stats AgeStats) (map[string]float64, string) {
	if stats.IsStale() {
		return map[string]float64{
				WeightTimeDecay:    0.50,
				WeightTagRelevance: 0.20,
				"recency_bonus":    0.25,
			}, fmt.Sprintf(
				"memory batch is stale (median %.0f days, %d/%d recent): weight freshness heavily",
				stats.Median, stats.Recent, stats.Total)
	}
	if stats.Dated > 0 && stats.Average <= 14 {
		return map[string]float64{
				WeightTimeDecay:    0.30,
				WeightTagRelevance: 0.30,
			}, fmt.Sprintf(
				"memory batch is fresh (average %.0f days): balance freshness and affinity",
				stats.Average)
	}
	return nil, ""
}

// AdaptiveGitWeight reconciles git activity with memory freshness. Recent
// commits against a stale memory set reduce the git multiplier sharply; an
// idle repository with fresh memories reduces it mildly. Aligned signals
// leave it unchanged. The result never drops below 1.0.
func AdaptiveGitWeight(configured float64, lastCommit time.Time, stats AgeStats, now time.Time) float64 {
	if configured <= 0 {
		configured = DefaultGitContextWeight
	}
	if lastCommit.IsZero() || stats.Dated == 0 {
		return configured
	}

	commitAgeDays := now.Sub(lastCommit).Hours() / 24
	switch {
	case commitAgeDays <= 7 && stats.Median > 30:
		return math.Max(1.0, configured*0.7)
	case commitAgeDays > 14 && stats.Recent > 0:
		return math.Max(1.0, configured*0.85)
	default:
		return configured
	}
}
