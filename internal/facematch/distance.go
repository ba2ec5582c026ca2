// Package facematch implements the identity matching used at attendance
// time: Euclidean distance between face embeddings and an exhaustive
// nearest-neighbor scan over the enrolled registry.
package facematch

import (
	"errors"
	"fmt"
	"math"
)

// DefaultThreshold is the acceptance distance used when neither the model
// profile nor configuration overrides it. Tuned for 128-dim facenet
// embeddings; a distance at or above the threshold is treated as unknown.
const DefaultThreshold = 0.6

// ErrDimensionMismatch means two embeddings cannot be compared because
// their lengths differ (typically a model change between enrollment and
// scan).
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Candidate is one enrolled identity considered during a match scan.
type Candidate struct {
	Name      string
	Embedding []float32
}

// Match is the nearest enrolled identity that passed the threshold.
type Match struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// EuclideanDistance computes the L2 distance between two embeddings.
// Identical vectors yield exactly 0.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Closest scans every candidate and returns the one nearest to query,
// provided its distance is strictly below threshold. It returns nil without
// touching the query when there are no candidates, and nil when even the
// nearest candidate is too far away. Equal distances keep the earlier
// candidate, so results are deterministic for a given candidate order.
func Closest(query []float32, candidates []Candidate, threshold float64) (*Match, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		dist, err := EuclideanDistance(query, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: %w", c.Name, err)
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	if bestDist >= threshold {
		return nil, nil
	}
	return &Match{Name: candidates[best].Name, Distance: bestDist}, nil
}
