// Package retrieval ranks stored embedding records against a query vector.
package retrieval

import (
	"math"
	"sort"

	"clausewise/internal/model"
)

// Hit is a ranked record. Position is the record's index in the candidate
// slice, which callers keep in insertion order.
type Hit struct {
	Record   model.EmbeddingRecord
	Score    float64
	Position int
}

// CosineSimilarity is dot(a,b) / (|a|·|b|). It is 0 when either vector is
// empty or zero, and when the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against query and returns at most k hits in
// non-increasing score order. Equal scores keep insertion order.
func Rank(query []float32, candidates []model.EmbeddingRecord, k int) []Hit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	hits := make([]Hit, len(candidates))
	for i := range candidates {
		hits[i] = Hit{
			Record:   candidates[i],
			Score:    CosineSimilarity(query, candidates[i].EmbeddingVector()),
			Position: i,
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}
