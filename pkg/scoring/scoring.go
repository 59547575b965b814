// Package scoring implements the interchangeable similarity strategies used
// to compare face observations. All scorers are pure and safe for concurrent
// use; every score lands in [0, 1].
package scoring

import (
	"fmt"

	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/features"
)

// Strategy selects how two observations are compared.
type Strategy string

const (
	// StrategyHeuristic weighs box, pose, and expression criteria.
	StrategyHeuristic Strategy = "heuristic"
	// StrategyGeometry weighs landmark geometry only, for storage-backed
	// re-verification.
	StrategyGeometry Strategy = "geometry"
	// StrategyCosine compares embeddings by cosine similarity.
	StrategyCosine Strategy = "cosine"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyHeuristic, StrategyGeometry, StrategyCosine:
		return true
	}
	return false
}

// RecordScorer scores the similarity of two feature records in [0, 1].
type RecordScorer interface {
	Score(a, b features.Record) float64
}

// ForStrategy returns the record scorer implementing the named strategy.
// The embedding configuration only matters for the cosine strategy.
func ForStrategy(s Strategy, cfg embedding.Config) (RecordScorer, error) {
	switch s {
	case StrategyHeuristic:
		return HeuristicScorer{}, nil
	case StrategyGeometry:
		return GeometryScorer{}, nil
	case StrategyCosine:
		return EmbeddingRecordScorer{Config: cfg}, nil
	}
	return nil, fmt.Errorf("unknown scoring strategy: %q", s)
}
