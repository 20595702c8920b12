package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/salience/internal/memstore"
)

func batchAgedDays(days ...int) []memstore.Memory {
	memories := make([]memstore.Memory, len(days))
	for i, d := range days {
		memories[i] = memAgedDays(d)
	}
	return memories
}

func TestAnalyzeAgeDistribution(t *testing.T) {
	memories := batchAgedDays(1, 5, 10, 40, 100)
	memories = append(memories, memstore.Memory{Content: "undated"})

	stats := AnalyzeAgeDistribution(memories, testNow)

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 5, stats.Dated)
	assert.Equal(t, 3, stats.Recent)
	assert.Equal(t, 2, stats.Stale)
	assert.InDelta(t, 10, stats.Median, 0.01)
	assert.InDelta(t, 40, stats.P75, 0.01)
	assert.InDelta(t, 100, stats.P90, 0.01)
	assert.InDelta(t, 31.2, stats.Average, 0.01)
}

func TestAnalyzeAgeDistributionEmpty(t *testing.T) {
	stats := AnalyzeAgeDistribution(nil, testNow)
	assert.Equal(t, 0, stats.Total)
	assert.False(t, stats.IsStale())
}

func TestAnalyzeAgeDistributionSkipsFutureDates(t *testing.T) {
	stats := AnalyzeAgeDistribution(batchAgedDays(-3, 5), testNow)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Dated)
}

func TestIsStale(t *testing.T) {
	stale := AnalyzeAgeDistribution(batchAgedDays(40, 50, 60, 90, 120), testNow)
	assert.True(t, stale.IsStale())

	fresh := AnalyzeAgeDistribution(batchAgedDays(1, 2, 3, 5, 8), testNow)
	assert.False(t, fresh.IsStale())

	// Median fine but almost nothing recent.
	skewed := AnalyzeAgeDistribution(batchAgedDays(20, 20, 20, 20, 20), testNow)
	assert.True(t, skewed.IsStale())
}

func TestIsStaleCountsUndatedInRecentShare(t *testing.T) {
	batch := batchAgedDays(5)
	for i := 0; i < 9; i++ {
		batch = append(batch, memstore.Memory{Content: "undated"})
	}

	stats := AnalyzeAgeDistribution(batch, testNow)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 1, stats.Recent)
	assert.True(t, stats.IsStale(), "one recent memory in ten is a stale batch")
}

func TestRecommendWeightsStale(t *testing.T) {
	stats := AnalyzeAgeDistribution(batchAgedDays(40, 50, 60, 90, 120), testNow)
	overrides, why := RecommendWeights(stats)

	require.NotNil(t, overrides)
	assert.Equal(t, 0.50, overrides[WeightTimeDecay])
	assert.Equal(t, 0.20, overrides[WeightTagRelevance])
	assert.Equal(t, 0.25, overrides["recency_bonus"])
	assert.NotEmpty(t, why)
}

func TestRecommendWeightsFresh(t *testing.T) {
	stats := AnalyzeAgeDistribution(batchAgedDays(1, 2, 3, 5, 8), testNow)
	overrides, why := RecommendWeights(stats)

	require.NotNil(t, overrides)
	assert.Equal(t, 0.30, overrides[WeightTimeDecay])
	assert.Equal(t, 0.30, overrides[WeightTagRelevance])
	assert.NotEmpty(t, why)
}

func TestRecommendWeightsMixedBatchKeepsDefaults(t *testing.T) {
	stats := AnalyzeAgeDistribution(batchAgedDays(5, 10, 25, 28, 29), testNow)
	overrides, why := RecommendWeights(stats)
	assert.Nil(t, overrides)
	assert.Empty(t, why)
}

func TestAdaptiveGitWeight(t *testing.T) {
	staleStats := AnalyzeAgeDistribution(batchAgedDays(40, 50, 60, 90, 120), testNow)
	freshStats := AnalyzeAgeDistribution(batchAgedDays(1, 2, 3), testNow)

	// Hot repo, stale memories: sharp reduction.
	got := AdaptiveGitWeight(1.2, testNow.AddDate(0, 0, -2), staleStats, testNow)
	assert.InDelta(t, 1.0, got, 1e-9)

	// Idle repo, fresh memories: mild reduction.
	got = AdaptiveGitWeight(1.2, testNow.AddDate(0, 0, -20), freshStats, testNow)
	assert.InDelta(t, 1.02, got, 1e-9)

	// Aligned signals: unchanged.
	got = AdaptiveGitWeight(1.2, testNow.AddDate(0, 0, -2), freshStats, testNow)
	assert.Equal(t, 1.2, got)

	// Never below 1.0.
	got = AdaptiveGitWeight(1.1, testNow.AddDate(0, 0, -2), staleStats, testNow)
	assert.Equal(t, 1.0, got)

	// No git info or no dated memories: configured value passes through.
	got = AdaptiveGitWeight(1.2, time.Time{}, staleStats, testNow)
	assert.Equal(t, 1.2, got)

	// Non-positive configured weight falls back to the default.
	got = AdaptiveGitWeight(0, testNow.AddDate(0, 0, -2), freshStats, testNow)
	assert.Equal(t, DefaultGitContextWeight, got)
}
