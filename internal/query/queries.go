// Package query turns an analysis and its change delta into a small ordered
// set of retrieval queries for the remote memory store.
package query

import (
	"sort"
	"strings"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/project"
)

// Query is one retrieval request against the memory store.
type Query struct {
	Query  string  `json:"query"`
	Type   string  `json:"type"` // topic, intent, entity
	Weight float64 `json:"weight"`
	Limit  int     `json:"limit"`
}

const (
	maxQueries       = 4
	maxEntityQueries = 2

	topicConfidenceFloor  = 0.4
	intentConfidenceFloor = 0.5
	entityConfidenceFloor = 0.7
)

// GenerateMemoryQueries emits at most four queries, weight-descending:
// one per sufficiently confident new topic, one for a changed intent, and up
// to two for high-confidence entities. An empty result means the pipeline
// has nothing actionable and should short-circuit.
func GenerateMemoryQueries(a analysis.Analysis, change analysis.Change, proj project.Profile) []Query {
	var queries []Query

	for _, t := range change.NewTopics {
		if t.Confidence > topicConfidenceFloor {
			queries = append(queries, Query{
				Query:  t.Name,
				Type:   "topic",
				Weight: t.Confidence,
				Limit:  2,
			})
		}
	}

	if change.ChangedIntents && a.Intent != nil && a.Intent.Confidence > intentConfidenceFloor {
		queries = append(queries, Query{
			Query:  strings.TrimSpace(a.Intent.Name + " " + proj.Name),
			Type:   "intent",
			Weight: a.Intent.Confidence,
			Limit:  1,
		})
	}

	entityCount := 0
	for _, e := range a.Entities {
		if entityCount >= maxEntityQueries {
			break
		}
		if e.Confidence > entityConfidenceFloor {
			queries = append(queries, Query{
				Query:  e.Name + " " + e.Type,
				Type:   "entity",
				Weight: e.Confidence,
				Limit:  1,
			})
			entityCount++
		}
	}

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Weight > queries[j].Weight
	})

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}
